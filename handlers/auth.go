package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"restaurant-queue/apperr"
	"restaurant-queue/logger"
	"restaurant-queue/middleware"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a staff member and returns a JWT
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.store.GetStaffByUsername(c.Request.Context(), req.Username)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		h.respondError(c, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		logger.FromGin(c, h.log).Warn("login failed", "username", req.Username)
		h.respondError(c, apperr.Unauthorized("Invalid username or password"))
		return
	}

	token, expires, err := h.auth.GenerateToken(user)
	if err != nil {
		h.respondError(c, apperr.Internal(err, "sign token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"token":      token,
		"expires_at": expires,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

// GetMe returns the authenticated staff member's identity
func (h *Handler) GetMe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":       middleware.GetStaffID(c),
			"username": middleware.GetUsername(c),
			"role":     middleware.GetRole(c),
		},
	})
}
