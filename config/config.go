package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm/logger"

	"restaurant-queue/events"
	"restaurant-queue/ordercode"
	"restaurant-queue/store"
	"restaurant-queue/store/postgres"
	"restaurant-queue/store/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// DevJWTSecret signs tokens when JWT_SECRET is unset. Fine locally,
	// never in production.
	DevJWTSecret = "restaurant_queue_dev_secret"
)

type Config struct {
	Port     string
	GinMode  string
	DB       DBConfig
	Auth     AuthConfig
	Orders   OrdersConfig
	AMQP     AMQPConfig
	Log      LogConfig
	Shutdown time.Duration
}

type DBConfig struct {
	Driver string
	Path   string
	URL    string
}

type AuthConfig struct {
	JWTSecret []byte
	TokenTTL  time.Duration
}

type OrdersConfig struct {
	NotifyLeadTime    time.Duration
	StrictTransitions bool
	CodeMaxAttempts   int
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []string
	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(getEnv(key, def))
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid duration %q", key, os.Getenv(key)))
			d, _ = time.ParseDuration(def)
		}
		return d
	}
	boolean := func(key, def string) bool {
		b, err := strconv.ParseBool(getEnv(key, def))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid boolean %q", key, os.Getenv(key)))
			b, _ = strconv.ParseBool(def)
		}
		return b
	}
	integer := func(key, def string) int {
		n, err := strconv.Atoi(getEnv(key, def))
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid positive integer %q", key, os.Getenv(key)))
			n, _ = strconv.Atoi(def)
		}
		return n
	}

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),
		DB: DBConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
			Path:   getEnv("DB_PATH", "restaurant.db"),
			URL:    getEnv("DATABASE_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret: []byte(getEnv("JWT_SECRET", DevJWTSecret)),
			TokenTTL:  duration("JWT_TTL", "24h"),
		},
		Orders: OrdersConfig{
			NotifyLeadTime:    duration("NOTIFY_LEAD_TIME", "15m"),
			StrictTransitions: boolean("STRICT_TRANSITIONS", "true"),
			CodeMaxAttempts:   integer("CODE_MAX_ATTEMPTS", strconv.Itoa(ordercode.DefaultMaxAttempts)),
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", events.DefaultExchange),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Shutdown: duration("SHUTDOWN_TIMEOUT", "10s"),
	}

	switch cfg.DB.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DB.URL == "" {
			errs = append(errs, "DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("DB_DRIVER: unsupported driver %q", cfg.DB.Driver))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// UsesDevSecret reports whether tokens are signed with the built-in secret.
func (c *Config) UsesDevSecret() bool {
	return string(c.Auth.JWTSecret) == DevJWTSecret
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// OpenStore connects to the configured backend. It does not migrate.
func OpenStore(ctx context.Context, cfg *Config) (store.Store, error) {
	if cfg.DB.Driver == DriverPostgres {
		s, err := postgres.Open(ctx, cfg.DB.URL)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := sqlite.Open(cfg.DB.Path, logger.Warn)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenPublisher dials the broker when AMQP_URL is set and returns a no-op
// publisher otherwise.
func OpenPublisher(cfg *Config) (events.Publisher, error) {
	if cfg.AMQP.URL == "" {
		return events.NopPublisher{}, nil
	}
	p, err := events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		return nil, err
	}
	return p, nil
}
