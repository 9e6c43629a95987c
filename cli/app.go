package cli

import (
	"context"
	"errors"
	"os"
	"os/user"

	"github.com/prometheus/client_golang/prometheus"

	"restaurant-queue/config"
	"restaurant-queue/events"
	"restaurant-queue/lifecycle"
	"restaurant-queue/logger"
	"restaurant-queue/metrics"
	"restaurant-queue/ordercode"
	"restaurant-queue/store"
)

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	store     store.Store
	publisher events.Publisher
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	orders    *lifecycle.Manager
}

// openApp loads configuration, connects and migrates the store and wires
// the lifecycle manager.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: logger.Format(cfg.Log.Format),
	})

	s, err := config.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	pub, err := config.OpenPublisher(cfg)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	reg, m := metrics.NewRegistry()
	a := &app{
		cfg:       cfg,
		log:       log,
		store:     s,
		publisher: pub,
		registry:  reg,
		metrics:   m,
	}
	a.orders = lifecycle.New(s,
		lifecycle.WithCodeSource(ordercode.New(ordercode.WithMaxAttempts(cfg.Orders.CodeMaxAttempts))),
		lifecycle.WithStrictTransitions(cfg.Orders.StrictTransitions),
		lifecycle.WithNotifyLeadTime(cfg.Orders.NotifyLeadTime),
		lifecycle.WithPublisher(pub),
		lifecycle.WithMetrics(m),
		lifecycle.WithLogger(log),
	)
	return a, nil
}

func (a *app) Close() error {
	return errors.Join(a.publisher.Close(), a.store.Close())
}

// operator names the person running the CLI for the status history.
func operator() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}
