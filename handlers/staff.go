package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"restaurant-queue/lifecycle"
	"restaurant-queue/middleware"
	"restaurant-queue/models"
	"restaurant-queue/statemachine"
)

func staffActor(c *gin.Context) string {
	return lifecycle.StaffActor(middleware.GetUsername(c))
}

// GetDashboard returns the queue, awaiting and active orders
func (h *Handler) GetDashboard(c *gin.Context) {
	d, err := h.orders.Dashboard(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"queue":          d.Queue,
		"awaiting":       d.Awaiting,
		"active":         d.Active,
		"estimated_wait": d.WaitEstimate,
		"summary": gin.H{
			"in_queue": len(d.Queue),
			"awaiting": len(d.Awaiting),
			"active":   len(d.Active),
		},
	})
}

// ListOrders returns orders, optionally filtered by ?status=A,B
func (h *Handler) ListOrders(c *gin.Context) {
	var statuses []models.OrderStatus
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, models.OrderStatus(strings.ToUpper(strings.TrimSpace(s))))
		}
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), statuses...)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	summary := map[string]int{}
	for _, o := range orders {
		summary[string(o.Status)]++
	}
	c.JSON(http.StatusOK, gin.H{
		"order_summary": summary,
		"count":         len(orders),
		"orders":        orders,
	})
}

// GetOrderDetail returns one order with items and status history
func (h *Handler) GetOrderDetail(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":             order,
		"total":             order.Total().StringFixed(2),
		"valid_next_states": h.nextStates(order.Status),
	})
}

func (h *Handler) nextStates(s models.OrderStatus) []models.OrderStatus {
	if !h.orders.Machine().Strict {
		next := make([]models.OrderStatus, 0, len(models.AllStatuses))
		for _, st := range models.AllStatuses {
			if st != s {
				next = append(next, st)
			}
		}
		return next
	}
	return statemachine.ValidTransitionsFrom(s)
}

type WalkInRequest struct {
	CustomerName string         `json:"customer_name" binding:"required,max=100"`
	Items        map[string]int `json:"items" binding:"required"`
}

// CreateWalkIn records an order taken at the door. It skips the queue and
// starts as RECEIVED.
func (h *Handler) CreateWalkIn(c *gin.Context) {
	var req WalkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	items, err := parseItems(req.Items)
	if err != nil {
		h.respondError(c, err)
		return
	}
	placed, err := h.orders.CreateOrder(c.Request.Context(), lifecycle.CreateOrderRequest{
		CustomerName: req.CustomerName,
		Items:        items,
		Status:       models.StatusReceived,
		Actor:        staffActor(c),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":    "Walk-in order recorded",
		"order_code": placed.Order.OrderCode,
		"order":      placed.Order,
	})
}

// NotifyDiner tells a queued diner to come in
func (h *Handler) NotifyDiner(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.NotifyDiner(c.Request.Context(), id, staffActor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":             "Diner " + order.CustomerName + " (" + order.OrderCode + ") has been notified to approach",
		"order":               order,
		"target_arrival_time": order.TargetArrivalTime,
	})
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note" binding:"max=500"`
}

// UpdateOrderStatus applies a staff status change
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	to := models.OrderStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))

	order, err := h.orders.UpdateStatus(c.Request.Context(), id, to, staffActor(c), req.Note)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Order status updated",
		"order":          order,
		"current_status": order.Status,
	})
}

type OccupancyRequest struct {
	OccupiedTables *int `json:"occupied_tables" binding:"required"`
}

// UpdateOccupancy records how many tables are taken right now
func (h *Handler) UpdateOccupancy(c *gin.Context) {
	var req OccupancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	profile, err := h.orders.UpdateOccupancy(c.Request.Context(), *req.OccupiedTables)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":        profile,
		"estimated_wait": h.orders.EstimateWait(c.Request.Context()),
	})
}

type CopilotRequest struct {
	Query string `json:"query" binding:"max=500"`
}

// AskCopilot answers a staff question from live order data
func (h *Handler) AskCopilot(c *gin.Context) {
	var req CopilotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	insight, err := h.orders.Ask(c.Request.Context(), req.Query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, insight)
}
