package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"restaurant-queue/apperr"
	"restaurant-queue/lifecycle"
	"restaurant-queue/logger"
	"restaurant-queue/middleware"
	"restaurant-queue/store"
)

// Handler carries the dependencies shared by every endpoint.
type Handler struct {
	orders *lifecycle.Manager
	store  store.Store
	auth   *middleware.Authenticator
	log    *logger.Logger
}

func New(orders *lifecycle.Manager, auth *middleware.Authenticator, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{orders: orders, store: orders.Store(), auth: auth, log: log}
}

// respondError writes err as {"error", "kind"} with the matching status.
// Internal errors are logged and their cause is not exposed.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromGin(c, h.log).WithError(err).Error("request failed", "path", c.FullPath())
	}
	c.JSON(status, gin.H{
		"error": apperr.PublicMessage(err),
		"kind":  apperr.KindOf(err),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": apperr.KindValidation})
}

// paramID parses a positive numeric path parameter. It writes a 400 and
// returns false when the value is not a valid id.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "kind": apperr.KindValidation})
		return 0, false
	}
	return uint(id), true
}
