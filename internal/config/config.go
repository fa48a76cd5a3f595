package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string

	// UpstreamTimeout bounds every call to the card processor and the redirect gateway.
	UpstreamTimeout time.Duration

	JWTSecret   string
	JWTLifetime time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	Mongo struct {
		URI      string
		Database string
	}

	Postgres struct {
		Host              string
		Port              int
		User              string
		Password          string
		DBName            string
		MigrationsDirPath string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Kafka struct {
		Brokers       []string
		ReceiptsTopic string
		ConsumerGroup string
	}

	Outbox struct {
		PollInterval     time.Duration
		RecoveryInterval time.Duration
		PurgeGrace       time.Duration
	}

	Stripe struct {
		SecretKey string
		Currency  string
	}

	Gateway GatewayConfig

	SMTP struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
}

// GatewayConfig carries the merchant credentials and callback URLs handed
// to the hosted payment page.
type GatewayConfig struct {
	MerchantID       string
	MerchantSecret   string
	InitURL          string
	ValidationURL    string
	ValidateCallback bool
	SuccessURL       string
	FailURL          string
	CancelURL        string
	CartViewURL      string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.HTTPPort = getEnv("PORT", "5000")
	cfg.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second)
	cfg.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.UpstreamTimeout = getEnvAsDuration("UPSTREAM_TIMEOUT", 10*time.Second)

	cfg.JWTSecret = getEnv("ACCESS_TOKEN_SECRET", "")
	cfg.JWTLifetime = getEnvAsDuration("ACCESS_TOKEN_LIFETIME", time.Hour)

	cfg.RateLimitRPS = getEnvAsFloat("RATE_LIMIT_RPS", 5)
	cfg.RateLimitBurst = getEnvAsInt("RATE_LIMIT_BURST", 10)

	cfg.Mongo.URI = getEnv("MONGO_URI", "mongodb://localhost:27017")
	cfg.Mongo.Database = getEnv("MONGO_DATABASE", "bistroDb")

	cfg.Postgres.Host = getEnv("POSTGRES_HOST", "localhost")
	cfg.Postgres.Port = getEnvAsInt("POSTGRES_PORT", 5432)
	cfg.Postgres.User = getEnv("POSTGRES_USER", "postgres")
	cfg.Postgres.Password = getEnv("POSTGRES_PASSWORD", "postgres")
	cfg.Postgres.DBName = getEnv("POSTGRES_DB", "payments")
	cfg.Postgres.MigrationsDirPath = getEnv("MIGRATIONS_DIR", "./internal/repository/migrations")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)

	cfg.Kafka.Brokers = strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	cfg.Kafka.ReceiptsTopic = getEnv("KAFKA_RECEIPTS_TOPIC", "payment-receipts")
	cfg.Kafka.ConsumerGroup = getEnv("KAFKA_CONSUMER_GROUP", "payment-receipt-mailer")

	cfg.Outbox.PollInterval = getEnvAsDuration("OUTBOX_POLL_INTERVAL", time.Second)
	cfg.Outbox.RecoveryInterval = getEnvAsDuration("OUTBOX_RECOVERY_INTERVAL", 30*time.Second)
	cfg.Outbox.PurgeGrace = getEnvAsDuration("OUTBOX_PURGE_GRACE", time.Minute)

	cfg.Stripe.SecretKey = getEnv("STRIPE_SECRET_KEY", "")
	cfg.Stripe.Currency = getEnv("STRIPE_CURRENCY", "usd")

	cfg.Gateway.MerchantID = getEnv("STORE_ID", "")
	cfg.Gateway.MerchantSecret = getEnv("STORE_PASSWD", "")
	cfg.Gateway.InitURL = getEnv("SSLCOMMERZ_INIT_URL", "https://sandbox.sslcommerz.com/gwprocess/v4/api.php")
	cfg.Gateway.ValidationURL = getEnv("SSLCOMMERZ_VALIDATION_URL", "https://sandbox.sslcommerz.com/validator/api/validationserverAPI.php")
	cfg.Gateway.ValidateCallback = getEnvAsBool("SSLCOMMERZ_VALIDATE_CALLBACK", true)
	cfg.Gateway.SuccessURL = getEnv("PAYMENT_SUCCESS_URL", "http://localhost:5000/success-payment")
	cfg.Gateway.FailURL = getEnv("PAYMENT_FAIL_URL", "http://localhost:5000/fail")
	cfg.Gateway.CancelURL = getEnv("PAYMENT_CANCEL_URL", "http://localhost:5000/cancle")
	cfg.Gateway.CartViewURL = getEnv("CART_VIEW_URL", "http://localhost:5173/dashboard/cart")

	cfg.SMTP.Host = getEnv("SMTP_HOST", "smtp.gmail.com")
	cfg.SMTP.Port = getEnvAsInt("SMTP_PORT", 587)
	cfg.SMTP.Username = getEnv("EMAIL_USER", "")
	cfg.SMTP.Password = getEnv("EMAIL_PASS", "")
	cfg.SMTP.From = getEnv("EMAIL_FROM", cfg.SMTP.Username)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	if c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}
	if c.Gateway.MerchantID == "" || c.Gateway.MerchantSecret == "" {
		errs = append(errs, errors.New("STORE_ID and STORE_PASSWD are required"))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
