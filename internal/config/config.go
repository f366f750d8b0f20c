// Package config reads the storefront's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"Yakebda/internal/store"
)

type Config struct {
	Port     string
	LogLevel string

	Store     store.Options
	KeyPrefix string

	OrderTTL      time.Duration
	CheckInterval time.Duration
	DeliveryFee   decimal.Decimal

	ReceiptSecret string
	MetricsToken  string
	CheckoutLimit int
}

// Load applies defaults for unset variables and fails on values that do not
// parse. Call Validate before use.
func Load() (Config, error) {
	var errs []error

	ttl, err := getDuration("ORDER_TTL", "10h")
	errs = append(errs, err)
	interval, err := getDuration("EXPIRY_CHECK_INTERVAL", "60s")
	errs = append(errs, err)
	limit, err := getInt("CHECKOUT_LIMIT_PER_MIN", "5")
	errs = append(errs, err)

	fee, err := decimal.NewFromString(getenv("DELIVERY_FEE", "30"))
	if err != nil {
		errs = append(errs, fmt.Errorf("DELIVERY_FEE: %w", err))
	}

	c := Config{
		Port:     getenv("PORT", "8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),
		Store: store.Options{
			Backend:     getenv("STORE_BACKEND", store.BackendSQLite),
			SQLitePath:  getenv("SQLITE_PATH", "./data/cart.db"),
			DatabaseURL: getenv("DATABASE_URL", ""),
			RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
		},
		KeyPrefix:     getenv("KEY_PREFIX", store.DefaultPrefix),
		OrderTTL:      ttl,
		CheckInterval: interval,
		DeliveryFee:   fee,
		ReceiptSecret: getenv("RECEIPT_SECRET", "dev-secret"),
		MetricsToken:  getenv("METRICS_TOKEN", ""),
		CheckoutLimit: limit,
	}
	return c, errors.Join(errs...)
}

func (c Config) Validate() error {
	var errs []error

	if c.OrderTTL <= 0 {
		errs = append(errs, errors.New("ORDER_TTL must be positive"))
	}
	if c.CheckInterval <= 0 {
		errs = append(errs, errors.New("EXPIRY_CHECK_INTERVAL must be positive"))
	} else if c.OrderTTL > 0 && c.CheckInterval >= c.OrderTTL {
		errs = append(errs, errors.New("EXPIRY_CHECK_INTERVAL must be shorter than ORDER_TTL"))
	}
	if c.DeliveryFee.IsNegative() {
		errs = append(errs, errors.New("DELIVERY_FEE must not be negative"))
	}

	switch c.Store.Backend {
	case store.BackendMemory, store.BackendSQLite, store.BackendRedis:
	case store.BackendPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}

	return errors.Join(errs...)
}

func (c Config) Addr() string { return ":" + c.Port }

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenv(k, def))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

func getInt(k, def string) (int, error) {
	n, err := strconv.Atoi(getenv(k, def))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}
