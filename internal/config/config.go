package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Redis    RedisConfig
	Stripe   StripeConfig
	Jobs     JobsConfig
	Access   AccessConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver   string
	Path     string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port        string
	FrontendURL string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret string
	PublicURL string
	Env       string
	LogLevel  string
}

// RedisConfig holds the Redis connection used by the notification queue
// and the access code throttle. An empty Addr disables both.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StripeConfig holds payment link settings
type StripeConfig struct {
	SecretKey          string
	Currency           string
	PlatformFeePercent float64
	SuccessURL         string
	CancelURL          string
	Timeout            time.Duration
}

// JobsConfig holds background job settings
type JobsConfig struct {
	SweepInterval  time.Duration
	SweepBatchSize int
}

// AccessConfig holds guest access code settings
type AccessConfig struct {
	CodeTTL      time.Duration
	TokenTTL     time.Duration
	CodeCooldown time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	p := &parser{}

	config := &Config{
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Path:     getEnv("DB_PATH", "adslot_market.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "adslot_market"),
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		App: AppConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			PublicURL: getEnv("APP_PUBLIC_URL", "http://localhost:3000"),
			Env:       getEnv("APP_ENV", "development"),
			LogLevel:  getEnv("LOG_LEVEL", "info"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       p.int("REDIS_DB", 0),
		},
		Stripe: StripeConfig{
			SecretKey:          getEnv("STRIPE_SECRET_KEY", ""),
			Currency:           getEnv("STRIPE_CURRENCY", "usd"),
			PlatformFeePercent: p.float("PLATFORM_FEE_PERCENT", 5),
			SuccessURL:         getEnv("STRIPE_SUCCESS_URL", "http://localhost:3000/payments/success"),
			CancelURL:          getEnv("STRIPE_CANCEL_URL", "http://localhost:3000/payments/cancel"),
			Timeout:            p.duration("STRIPE_TIMEOUT", 10*time.Second),
		},
		Jobs: JobsConfig{
			SweepInterval:  p.duration("SWEEP_INTERVAL", time.Minute),
			SweepBatchSize: p.int("SWEEP_BATCH_SIZE", 100),
		},
		Access: AccessConfig{
			CodeTTL:      p.duration("ACCESS_CODE_TTL", 15*time.Minute),
			TokenTTL:     p.duration("ACCESS_TOKEN_TTL", time.Hour),
			CodeCooldown: p.duration("ACCESS_CODE_COOLDOWN", 60*time.Second),
		},
	}

	if p.err != nil {
		return nil, p.err
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.Database.Driver != "postgres" && config.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("DB_DRIVER must be postgres or sqlite")
	}

	if config.Stripe.PlatformFeePercent < 0 || config.Stripe.PlatformFeePercent >= 100 {
		return nil, fmt.Errorf("PLATFORM_FEE_PERCENT must be in [0, 100)")
	}

	if config.Jobs.SweepInterval <= 0 || config.Jobs.SweepBatchSize <= 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL and SWEEP_BATCH_SIZE must be positive")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// parser records the first malformed typed value
type parser struct {
	err error
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.fail(key, err)
		return defaultValue
	}
	return d
}

func (p *parser) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, err)
		return defaultValue
	}
	return n
}

func (p *parser) float(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.fail(key, err)
		return defaultValue
	}
	return f
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
