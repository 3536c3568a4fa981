package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	defaultJWTSecret = "change-me-jwt-secret"
	defaultDSN       = "file:salonbook.db?_pragma=busy_timeout(5000)"
)

type Config struct {
	AppEnv      string        `envconfig:"APP_ENV" default:"dev"`
	HTTPAddr    string        `envconfig:"HTTP_ADDR" default:":8080"`
	DatabaseURL string        `envconfig:"DATABASE_URL" default:"file:salonbook.db?_pragma=busy_timeout(5000)"`
	JWTSecret   string        `envconfig:"JWT_SECRET" default:"change-me-jwt-secret"`
	JWTTTL      time.Duration `envconfig:"JWT_TTL" default:"24h"`

	ReservationTTL    time.Duration `envconfig:"RESERVATION_TTL" default:"15m"`
	CheckoutTTL       time.Duration `envconfig:"CHECKOUT_TTL" default:"30m"`
	ReaperInterval    time.Duration `envconfig:"REAPER_INTERVAL" default:"1m"`
	ReaperBatchSize   int           `envconfig:"REAPER_BATCH_SIZE" default:"200"`
	SlotBufferMinutes int           `envconfig:"SLOT_BUFFER_MINUTES" default:"10"`
	HomeSurcharge     int64         `envconfig:"HOME_SERVICE_SURCHARGE" default:"20000"`
	Currency          string        `envconfig:"CURRENCY" default:"THB"`
	CashBookingStatus string        `envconfig:"CASH_BOOKING_STATUS" default:"pending"`

	OmisePublicKey  string `envconfig:"OMISE_PUBLIC_KEY"`
	OmiseSecretKey  string `envconfig:"OMISE_SECRET_KEY"`
	OmiseSourceType string `envconfig:"OMISE_SOURCE_TYPE" default:"promptpay"`
	OmiseReturnURI  string `envconfig:"OMISE_RETURN_URI"`

	RabbitURL       string `envconfig:"RABBIT_URL"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`

	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	WebhookLockTTL time.Duration `envconfig:"WEBHOOK_LOCK_TTL" default:"2m"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"salonbook"`
	CORSOrigins  string `envconfig:"CORS_ALLOWED_ORIGINS"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.CashBookingStatus = strings.ToLower(strings.TrimSpace(cfg.CashBookingStatus))

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	log.Printf("config loaded: env=%s addr=%s reservation_ttl=%s checkout_ttl=%s payments=%t events=%t redis=%t tracing=%t",
		cfg.AppEnv, cfg.HTTPAddr, cfg.ReservationTTL, cfg.CheckoutTTL,
		cfg.PaymentsEnabled(), cfg.RabbitURL != "", cfg.RedisAddr != "", cfg.OTLPEndpoint != "")
	return &cfg, nil
}

func (c *Config) PaymentsEnabled() bool {
	return c.OmisePublicKey != "" && c.OmiseSecretKey != ""
}

func (c *Config) SlotBuffer() time.Duration {
	return time.Duration(c.SlotBufferMinutes) * time.Minute
}

func validateConfig(cfg *Config) error {
	if cfg.ReservationTTL <= 0 {
		return fmt.Errorf("RESERVATION_TTL must be > 0")
	}
	if cfg.CheckoutTTL <= 0 {
		return fmt.Errorf("CHECKOUT_TTL must be > 0")
	}
	if cfg.ReaperInterval <= 0 {
		return fmt.Errorf("REAPER_INTERVAL must be > 0")
	}
	if cfg.ReaperBatchSize <= 0 {
		return fmt.Errorf("REAPER_BATCH_SIZE must be > 0")
	}
	if cfg.SlotBufferMinutes < 0 {
		return fmt.Errorf("SLOT_BUFFER_MINUTES must be >= 0")
	}
	if cfg.HomeSurcharge < 0 {
		return fmt.Errorf("HOME_SERVICE_SURCHARGE must be >= 0")
	}
	if cfg.WebhookLockTTL <= 0 {
		return fmt.Errorf("WEBHOOK_LOCK_TTL must be > 0")
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		return fmt.Errorf("CURRENCY must not be empty")
	}
	if cfg.CashBookingStatus != "pending" && cfg.CashBookingStatus != "confirmed" {
		return fmt.Errorf("CASH_BOOKING_STATUS must be one of: pending, confirmed")
	}
	if (cfg.OmisePublicKey == "") != (cfg.OmiseSecretKey == "") {
		return fmt.Errorf("OMISE_PUBLIC_KEY and OMISE_SECRET_KEY must be set together")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.DatabaseURL, defaultDSN) {
			return fmt.Errorf("in prod/release DATABASE_URL must be set and not default")
		}
		if !cfg.PaymentsEnabled() {
			return fmt.Errorf("in prod/release OMISE_PUBLIC_KEY and OMISE_SECRET_KEY must be set")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}
