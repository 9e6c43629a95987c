package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"restaurant-queue/apperr"
	"restaurant-queue/models"
)

// ──────────────────────────────────────────────────────────────
// Menu management
// ──────────────────────────────────────────────────────────────

type CreateMenuItemRequest struct {
	Name                 string          `json:"name" binding:"required,max=100"`
	Description          string          `json:"description"`
	Price                decimal.Decimal `json:"price"`
	EstimatedPrepMinutes *int            `json:"estimated_prep_minutes"`
	IsAvailable          *bool           `json:"is_available"`
}

// CreateMenuItem adds a dish to the menu
func (h *Handler) CreateMenuItem(c *gin.Context) {
	var req CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	item := models.MenuItem{
		Name:                 req.Name,
		Description:          req.Description,
		Price:                req.Price,
		EstimatedPrepMinutes: models.DefaultPrepMinutes,
		IsAvailable:          true,
	}
	if req.EstimatedPrepMinutes != nil {
		item.EstimatedPrepMinutes = *req.EstimatedPrepMinutes
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}

	if err := h.store.CreateMenuItem(c.Request.Context(), &item); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":   "Menu item added",
		"menu_item": item,
	})
}

type UpdateMenuItemRequest struct {
	Name                 *string          `json:"name" binding:"omitempty,max=100"`
	Description          *string          `json:"description"`
	Price                *decimal.Decimal `json:"price"`
	EstimatedPrepMinutes *int             `json:"estimated_prep_minutes"`
	IsAvailable          *bool            `json:"is_available"`
}

// UpdateMenuItem changes only the fields present in the request
func (h *Handler) UpdateMenuItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	found, err := h.store.GetMenuItems(ctx, []uint{id})
	if err != nil {
		h.respondError(c, err)
		return
	}
	item, exists := found[id]
	if !exists {
		h.respondError(c, apperr.NotFound("menu item %d not found", id))
		return
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Price != nil {
		item.Price = *req.Price
	}
	if req.EstimatedPrepMinutes != nil {
		item.EstimatedPrepMinutes = *req.EstimatedPrepMinutes
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}

	if err := h.store.UpdateMenuItem(ctx, &item); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Menu item updated",
		"menu_item": item,
	})
}

// DeleteMenuItem removes a dish. Past orders keep their snapshot.
func (h *Handler) DeleteMenuItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteMenuItem(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item deleted"})
}

// ──────────────────────────────────────────────────────────────
// Restaurant profile
// ──────────────────────────────────────────────────────────────

// GetRestaurantProfile returns seating capacity and the current estimate
func (h *Handler) GetRestaurantProfile(c *gin.Context) {
	p, err := h.orders.Profile(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile":        p,
		"estimated_wait": h.orders.EstimateWait(c.Request.Context()),
	})
}

type UpdateProfileRequest struct {
	Name             *string `json:"name" binding:"omitempty,max=100"`
	TotalTables      *int    `json:"total_tables"`
	OccupiedTables   *int    `json:"occupied_tables"`
	AvgDineInMinutes *int    `json:"avg_dine_in_minutes"`
}

// UpdateRestaurantProfile edits the singleton profile
func (h *Handler) UpdateRestaurantProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	p, err := h.orders.Profile(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.TotalTables != nil {
		p.TotalTables = *req.TotalTables
	}
	if req.OccupiedTables != nil {
		p.OccupiedTables = *req.OccupiedTables
	}
	if req.AvgDineInMinutes != nil {
		p.AvgDineInMinutes = *req.AvgDineInMinutes
	}

	if err := h.orders.SaveProfile(ctx, p); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Restaurant profile updated",
		"profile":        p,
		"estimated_wait": h.orders.EstimateWait(ctx),
	})
}

// DeleteOrder removes an order together with its items and history
func (h *Handler) DeleteOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.orders.DeleteOrder(c.Request.Context(), id, staffActor(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}
