package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"restaurant-queue/handlers"
	"restaurant-queue/logger"
	"restaurant-queue/metrics"
	"restaurant-queue/middleware"
	"restaurant-queue/routes"
)

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. Migrations run on startup.

The server shuts down gracefully on SIGINT or SIGTERM, waiting up to
SHUTDOWN_TIMEOUT for in-flight requests to finish.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if port != "" {
				a.cfg.Port = port
			}
			return serve(cmd.Context(), a)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "port to listen on (overrides PORT)")
	return cmd
}

// cors lets a browser front end on another origin call the API.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, "+logger.RequestIDHeader)
		c.Header("Access-Control-Expose-Headers", logger.RequestIDHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func newRouter(a *app) *gin.Engine {
	gin.SetMode(a.cfg.GinMode)

	auth := middleware.NewAuthenticator(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL)
	r := gin.New()
	r.Use(gin.Recovery(), logger.Middleware(a.log), a.metrics.Instrument(), cors())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to the Restaurant Order Queue API",
			"docs":    "/api/state-machine",
			"health":  "/health",
			"roles":   []string{"staff", "manager"},
		})
	})

	routes.SetupRoutes(r, handlers.New(a.orders, auth, a.log), auth, metrics.HandlerFor(a.registry))
	return r
}

func serve(ctx context.Context, a *app) error {
	if a.cfg.UsesDevSecret() {
		a.log.Warn("JWT_SECRET is not set, signing staff tokens with the development secret")
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info("server listening",
			"addr", srv.Addr,
			"db_driver", a.cfg.DB.Driver,
			"strict_transitions", a.cfg.Orders.StrictTransitions,
			"events", a.cfg.AMQP.URL != "",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.log.Info("shutting down", "timeout", a.cfg.Shutdown.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Shutdown)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	a.log.Info("server stopped")
	return nil
}
