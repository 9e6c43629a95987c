package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"restaurant-queue/apperr"
	"restaurant-queue/lifecycle"
	"restaurant-queue/models"
)

// PlaceOrderRequest keys items by menu item id, the way the order form
// posts one quantity field per dish.
type PlaceOrderRequest struct {
	CustomerName string         `json:"customer_name" binding:"required,max=100"`
	Items        map[string]int `json:"items" binding:"required"`
}

func parseItems(raw map[string]int) (map[uint]int, error) {
	items := make(map[uint]int, len(raw))
	for key, qty := range raw {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil || id == 0 {
			return nil, apperr.Validation("invalid menu item id %q", key)
		}
		if qty < 0 {
			return nil, apperr.Validation("quantity for menu item %q must not be negative", key)
		}
		if _, dup := items[uint(id)]; dup {
			return nil, apperr.Validation("menu item %d is listed more than once", id)
		}
		items[uint(id)] = qty
	}
	return items, nil
}

// PlaceOrder queues a new order (public)
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
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
		Status:       models.StatusInQueue,
		Actor:        lifecycle.ActorCustomer,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":        "Order placed successfully",
		"order_code":     placed.Order.OrderCode,
		"order":          placed.Order,
		"total":          placed.Order.Total().StringFixed(2),
		"estimated_wait": placed.WaitEstimate,
	})
}

// GetOrderStatus lets a diner look up their order by code (public)
func (h *Handler) GetOrderStatus(c *gin.Context) {
	order, err := h.orders.GetOrderStatus(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_code":          order.OrderCode,
		"customer_name":       order.CustomerName,
		"status":              order.Status,
		"status_label":        order.Status.Label(),
		"queue_position":      order.QueuePosition,
		"target_arrival_time": order.TargetArrivalTime,
		"items":               order.Items,
		"total":               order.Total().StringFixed(2),
		"created_at":          order.CreatedAt,
	})
}
