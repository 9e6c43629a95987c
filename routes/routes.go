package routes

import (
	"net/http"

	"restaurant-queue/handlers"
	"restaurant-queue/middleware"
	"restaurant-queue/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handler, auth *middleware.Authenticator, metricsHandler http.Handler) {
	r.GET("/health", h.Health)
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		public.POST("/auth/login", h.Login)

		// Diners (no auth needed)
		public.GET("/menu", h.GetMenu)
		public.GET("/wait-estimate", h.GetWaitEstimate)
		public.POST("/orders", h.PlaceOrder)
		public.GET("/orders/:code", h.GetOrderStatus)

		// State machine info
		public.GET("/state-machine", h.GetStateMachineInfo)
	}

	// ── Staff routes ───────────────────────────────────────────────
	staff := r.Group("/api/staff")
	staff.Use(auth.AuthRequired(), middleware.RoleRequired(models.RoleStaff, models.RoleManager))
	{
		staff.GET("/me", h.GetMe)
		staff.GET("/dashboard", h.GetDashboard)

		staff.GET("/orders", h.ListOrders)
		staff.POST("/orders", h.CreateWalkIn)
		staff.GET("/orders/:id", h.GetOrderDetail)
		staff.POST("/orders/:id/notify", h.NotifyDiner)
		staff.PUT("/orders/:id/status", h.UpdateOrderStatus)

		staff.PUT("/profile/occupancy", h.UpdateOccupancy)
		staff.POST("/copilot", h.AskCopilot)
	}

	// ── Manager routes ─────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(auth.AuthRequired(), middleware.RoleRequired(models.RoleManager))
	{
		admin.POST("/menu", h.CreateMenuItem)
		admin.PUT("/menu/:id", h.UpdateMenuItem)
		admin.DELETE("/menu/:id", h.DeleteMenuItem)

		admin.GET("/profile", h.GetRestaurantProfile)
		admin.PUT("/profile", h.UpdateRestaurantProfile)

		admin.DELETE("/orders/:id", h.DeleteOrder)
	}
}
