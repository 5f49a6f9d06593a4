package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	ServiceName string

	HTTPPort       int
	EndpointPrefix string
	GinMode        string

	StoreDriver string
	Postgres    Postgres
	Mongo       Mongo

	Auth    Auth
	Pricing Pricing
	Recipe  Recipe
	SMTP    SMTP
	S3      S3
	Stripe  Stripe

	KafkaBrokers     []string
	KafkaOrdersTopic string
	RedisAddr        string
	ConsulAddr       string
}

type Postgres struct {
	Host    string
	Port    int
	User    string
	Pass    string
	DB      string
	SSLMode string
}

// DSN renders the connection string understood by pgx.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", p.User, p.Pass, p.Host, p.Port, p.DB, p.SSLMode)
}

type Mongo struct {
	URI      string
	Database string
}

type Auth struct {
	Secret        string
	TokenTTL      time.Duration
	AdminEmail    string
	AdminPassword string
}

type Pricing struct {
	ShippingFee decimal.Decimal
	TaxRate     decimal.Decimal
}

type Recipe struct {
	APIKey    string
	Model     string
	Endpoint  string
	RetryBase time.Duration
}

type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
}

type S3 struct {
	Bucket        string
	Region        string
	PublicBaseURL string
}

type Stripe struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// Production reports whether error details must be hidden from clients.
func (c Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := Config{
		AppEnv:      getEnv("APP_ENV", "dev"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		ServiceName: getEnv("SERVICE_NAME", "bakery"),

		HTTPPort:       getEnvInt("HTTP_PORT", 4000),
		EndpointPrefix: getEnv("SERVICE_ENDPOINT_PREFIX", "/api"),
		GinMode:        getEnv("GIN_MODE", "debug"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		Postgres: Postgres{
			Host:    getEnv("POSTGRES_HOST", "localhost"),
			Port:    getEnvInt("POSTGRES_PORT", 5432),
			User:    getEnv("POSTGRES_USER", "bakery"),
			Pass:    getEnv("POSTGRES_PASSWORD", "bakery"),
			DB:      getEnv("POSTGRES_DB", "bakery"),
			SSLMode: getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Mongo: Mongo{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "bakery"),
		},

		Auth: Auth{
			Secret:        os.Getenv("JWT_SECRET"),
			TokenTTL:      getEnvDuration("TOKEN_TTL", 24*time.Hour),
			AdminEmail:    os.Getenv("ADMIN_EMAIL"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		},
		Pricing: Pricing{
			ShippingFee: getEnvDecimal("SHIPPING_FEE", decimal.NewFromInt(5)),
			TaxRate:     getEnvDecimal("TAX_RATE", decimal.RequireFromString("0.07")),
		},
		Recipe: Recipe{
			APIKey:    os.Getenv("GEMINI_KEY"),
			Model:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Endpoint:  getEnv("GEMINI_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),
			RetryBase: getEnvDuration("RECIPE_RETRY_BASE", 2*time.Second),
		},
		SMTP: SMTP{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvInt("SMTP_PORT", 587),
			User:     os.Getenv("EMAIL_USER"),
			Password: os.Getenv("EMAIL_PASSWORD"),
		},
		S3: S3{
			Bucket:        os.Getenv("S3_BUCKET"),
			Region:        getEnv("S3_REGION", "ap-south-1"),
			PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		},
		Stripe: Stripe{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			SuccessURL:    getEnv("STRIPE_SUCCESS_URL", "http://localhost:5173/orders?paid=1"),
			CancelURL:     getEnv("STRIPE_CANCEL_URL", "http://localhost:5173/cart"),
		},

		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaOrdersTopic: getEnv("KAFKA_TOPIC_ORDERS", "bakery.orders"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		ConsulAddr:       os.Getenv("CONSUL_ADDR"),
	}

	if cfg.Auth.Secret == "" {
		return Config{}, errors.New("JWT_SECRET is not set")
	}
	switch cfg.StoreDriver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.Pricing.ShippingFee.IsNegative() || cfg.Pricing.TaxRate.IsNegative() {
		return Config{}, errors.New("SHIPPING_FEE and TAX_RATE must not be negative")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getEnvDecimal(key string, def decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
