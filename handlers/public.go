package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"restaurant-queue/statemachine"
)

// Health reports whether the store is reachable
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "Restaurant Order Queue API",
	})
}

// GetMenu returns the orderable menu with the current wait estimate (public)
func (h *Handler) GetMenu(c *gin.Context) {
	items, wait, err := h.orders.Menu(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":          len(items),
		"menu":           items,
		"estimated_wait": wait,
	})
}

// GetWaitEstimate returns how long a diner joining now would wait (public)
func (h *Handler) GetWaitEstimate(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"estimated_wait": h.orders.EstimateWait(c.Request.Context())})
}

// GetStateMachineInfo returns the full state machine for informational purposes
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	transitions := statemachine.GetAllTransitions()
	info := make([]gin.H, len(transitions))
	for i, t := range transitions {
		info[i] = gin.H{"from": t.From, "to": t.To, "action": t.Action}
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   info,
		"terminal_states": statemachine.TerminalStates(),
		"strict":          h.orders.Machine().Strict,
		"description":     "Restaurant Order Queue Lifecycle State Machine",
	})
}
