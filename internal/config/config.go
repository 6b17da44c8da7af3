package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Gateway   GatewayConfig
	Checkout  CheckoutConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	S3        S3Config
	Sweeper   SweeperConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string `env:"DB_HOST" envDefault:"localhost"`
	Port            int    `env:"DB_PORT" envDefault:"5432"`
	User            string `env:"DB_USER" envDefault:"postgres"`
	Password        string `env:"DB_PASSWORD"`
	Database        string `env:"DB_NAME" envDefault:"storefront"`
	MaxConnections  int    `env:"DB_MAX_CONNECTIONS" envDefault:"25"`
	MinConnections  int    `env:"DB_MIN_CONNECTIONS" envDefault:"5"`
	MaxConnLifetime int    `env:"DB_MAX_CONN_LIFETIME" envDefault:"300"` // seconds
	AutoMigrate     bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	// StatementTimeout caps each statement server-side. Zero disables it.
	StatementTimeout time.Duration `env:"DB_STATEMENT_TIMEOUT" envDefault:"15s"`
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"` // "json" or "console"
}

// AuthConfig holds caller authentication configuration.
type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET"`
}

// GatewayConfig holds payment gateway configuration.
type GatewayConfig struct {
	BaseURL       string        `env:"GATEWAY_BASE_URL" envDefault:"https://api.paychangu.com"`
	SecretKey     string        `env:"GATEWAY_SECRET_KEY"`
	WebhookSecret string        `env:"GATEWAY_WEBHOOK_SECRET"` // defaults to SecretKey
	Timeout       time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"15s"`
	CheckoutTitle string        `env:"GATEWAY_CHECKOUT_TITLE" envDefault:"Store Payment"`
	Description   string        `env:"GATEWAY_CHECKOUT_DESCRIPTION" envDefault:"Payment for items in cart"`
}

// CheckoutConfig holds checkout configuration.
type CheckoutConfig struct {
	Currency string `env:"CHECKOUT_CURRENCY" envDefault:"MWK"`
	SiteURL  string `env:"SITE_URL"`
}

// RateLimitConfig holds rate limiting configuration for checkout initiation.
type RateLimitConfig struct {
	Requests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"10"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`
	Backend  string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory"` // "memory" or "redis"
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// KafkaConfig holds domain event publishing configuration.
type KafkaConfig struct {
	Enabled  bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers  []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	ClientID string   `env:"KAFKA_CLIENT_ID" envDefault:"storefront"`
}

// S3Config holds AWS S3 configuration for product image uploads.
type S3Config struct {
	Enabled  bool   `env:"S3_ENABLED" envDefault:"false"`
	Bucket   string `env:"S3_BUCKET"`
	Region   string `env:"S3_REGION" envDefault:"us-east-1"`
	Prefix   string `env:"S3_PREFIX" envDefault:"product-images/"` // Path prefix within bucket
	Endpoint string `env:"S3_ENDPOINT"`                              // optional, for S3-compatible stores
}

// SweeperConfig holds configuration for the pending-payment sweeper.
type SweeperConfig struct {
	Enabled   bool          `env:"SWEEPER_ENABLED" envDefault:"false"`
	Interval  time.Duration `env:"SWEEPER_INTERVAL" envDefault:"1m"`
	MinAge    time.Duration `env:"SWEEPER_MIN_AGE" envDefault:"5m"`
	MaxAge    time.Duration `env:"SWEEPER_MAX_AGE" envDefault:"72h"`
	Workers   int           `env:"SWEEPER_WORKERS" envDefault:"4"`
	BatchSize int           `env:"SWEEPER_BATCH_SIZE" envDefault:"100"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.Gateway.WebhookSecret == "" {
		cfg.Gateway.WebhookSecret = cfg.Gateway.SecretKey
	}
	cfg.Checkout.SiteURL = strings.TrimRight(cfg.Checkout.SiteURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.StatementTimeout < 0 {
		return fmt.Errorf("database statement timeout must not be negative")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if c.Gateway.SecretKey == "" {
		return fmt.Errorf("gateway secret key is required")
	}

	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("gateway timeout must be positive")
	}

	if c.Checkout.SiteURL == "" {
		return fmt.Errorf("site URL is required")
	}

	if u, err := url.Parse(c.Checkout.SiteURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid site URL: %s", c.Checkout.SiteURL)
	}

	if c.Checkout.Currency == "" {
		return fmt.Errorf("checkout currency is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.RateLimit.Requests < 1 {
		return fmt.Errorf("rate limit requests must be at least 1")
	}

	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}

	if c.RateLimit.Backend != "memory" && c.RateLimit.Backend != "redis" {
		return fmt.Errorf("invalid rate limit backend: %s (must be memory or redis)", c.RateLimit.Backend)
	}

	if c.RateLimit.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when rate limit backend is redis")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Sweeper.Enabled {
		if c.Sweeper.Workers < 1 {
			return fmt.Errorf("sweeper workers must be at least 1")
		}
		if c.Sweeper.Interval <= 0 {
			return fmt.Errorf("sweeper interval must be positive")
		}
		if c.Sweeper.MaxAge <= c.Sweeper.MinAge {
			return fmt.Errorf("sweeper max age must exceed min age")
		}
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CallbackURL is where the gateway posts payment notifications.
func (c *CheckoutConfig) CallbackURL() string {
	return c.SiteURL + "/api/webhooks/paychangu"
}

// ReturnURL is where the customer lands after the hosted payment page.
func (c *CheckoutConfig) ReturnURL(orderID string) string {
	return c.SiteURL + "/dashboard/orders/" + orderID
}
