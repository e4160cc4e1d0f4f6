package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	pkgconfig "github.com/agromart/marketplace/pkg/config"
	"github.com/agromart/marketplace/pkg/database"
	"github.com/agromart/marketplace/pkg/kafka"
	"github.com/agromart/marketplace/pkg/middleware"
	"github.com/agromart/marketplace/pkg/tracing"
)

// Config holds all configuration for the marketplace server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	// Reverse proxies (CIDRs or addresses) whose X-Forwarded-For is believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	Postgres database.PostgresConfig `envPrefix:"POSTGRES_"`
	Redis    database.RedisConfig    `envPrefix:"REDIS_"`
	Kafka    kafka.ProducerConfig    `envPrefix:"KAFKA_"`
	Tracing  tracing.Config          `envPrefix:"OTEL_"`

	SlowQueryThreshold time.Duration `env:"LOG_SLOW_QUERY" envDefault:"500ms"`

	Cache   CacheConfig   `envPrefix:"CACHE_"`
	JWT     JWTConfig     `envPrefix:"JWT_"`
	OTP     OTPConfig     `envPrefix:"OTP_"`
	Storage StorageConfig `envPrefix:"STORAGE_"`
	Notify  NotifyConfig  `envPrefix:"NOTIFY_"`
}

// CacheConfig sets the TTL of each named cache key.
type CacheConfig struct {
	CategoriesTTL      time.Duration `env:"CATEGORIES_TTL" envDefault:"30m"`
	NewArrivalsTTL     time.Duration `env:"NEW_ARRIVALS_TTL" envDefault:"5m"`
	ProductSnapshotTTL time.Duration `env:"PRODUCT_SNAPSHOT_TTL" envDefault:"5m"`
	SearchHistoryTTL   time.Duration `env:"SEARCH_HISTORY_TTL" envDefault:"1h"`
}

type JWTConfig struct {
	Secret        string        `env:"SECRET" envDefault:"change-me-in-production"`
	AccessExpiry  time.Duration `env:"ACCESS_EXPIRY" envDefault:"1h"`
	RefreshExpiry time.Duration `env:"REFRESH_EXPIRY" envDefault:"168h"`
}

type OTPConfig struct {
	Expiry time.Duration `env:"EXPIRY" envDefault:"15m"`
	// Per-IP limit on the send-otp routes.
	RateEvery time.Duration `env:"RATE_EVERY" envDefault:"20s"`
	RateBurst int           `env:"RATE_BURST" envDefault:"3"`
	// Per-IP limit on the verify-otp routes.
	VerifyRateEvery time.Duration `env:"VERIFY_RATE_EVERY" envDefault:"10s"`
	VerifyRateBurst int           `env:"VERIFY_RATE_BURST" envDefault:"5"`
}

type StorageConfig struct {
	Root    string `env:"ROOT" envDefault:"./data/media"`
	BaseURL string `env:"BASE_URL" envDefault:"/media"`
	// MaxUploadBytes bounds a whole multipart request.
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
}

// MediaPath is the path /media files are served under. BaseURL may be a
// bare path or an absolute URL (a CDN in front of this server); either
// way only its path is routed.
func (s StorageConfig) MediaPath() string {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(u.Path, "/")
}

// NotifyConfig selects how OTP codes are delivered. With no gateway URL
// codes are only logged, which is what local development wants.
type NotifyConfig struct {
	SMSGatewayURL   string        `env:"SMS_GATEWAY_URL"`
	EmailGatewayURL string        `env:"EMAIL_GATEWAY_URL"`
	APIKey          string        `env:"GATEWAY_API_KEY"`
	Timeout         time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"5s"`
	MaxRetries      int           `env:"GATEWAY_MAX_RETRIES" envDefault:"2"`
}

// Load reads configuration from MARKETPLACE_* environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, "MARKETPLACE_"); err != nil {
		return nil, fmt.Errorf("load marketplace config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}
	if c.Postgres.Host == "" {
		errs = append(errs, errors.New("POSTGRES_HOST is required"))
	}
	if len(c.JWT.Secret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.Environment == "production" && c.JWT.Secret == "change-me-in-production" {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.Tracing.SampleRate))
	}
	if _, err := middleware.ParseTrustedProxies(c.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}
	if u, err := url.Parse(c.Storage.BaseURL); err != nil || !strings.HasPrefix(u.Path, "/") || c.Storage.MediaPath() == "" {
		errs = append(errs, fmt.Errorf("STORAGE_BASE_URL must be a path such as /media or a URL with one, got %q", c.Storage.BaseURL))
	}
	if c.OTP.Expiry <= 0 {
		errs = append(errs, errors.New("OTP_EXPIRY must be positive"))
	}
	for name, ttl := range map[string]time.Duration{
		"CACHE_CATEGORIES_TTL":       c.Cache.CategoriesTTL,
		"CACHE_NEW_ARRIVALS_TTL":     c.Cache.NewArrivalsTTL,
		"CACHE_PRODUCT_SNAPSHOT_TTL": c.Cache.ProductSnapshotTTL,
		"CACHE_SEARCH_HISTORY_TTL":   c.Cache.SearchHistoryTTL,
	} {
		if ttl <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	return errors.Join(errs...)
}
