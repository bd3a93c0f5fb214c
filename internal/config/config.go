package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env  string `validate:"required,oneof=development stage production"`
	Http Http

	Cors CORS `validate:"required"`

	ShipStation ShipStation `validate:"required"`
	Accounts    []Account   `validate:"required,min=1,dive"`

	FedEx FedEx `validate:"required"`
	UPS   UPS   `validate:"required"`
	USPS  USPS  `validate:"required"`

	Cache Cache

	// Postgres and Kafka are optional side channels; leave the host or
	// brokers unset to run without them.
	Postgres Postgres
	Kafka    Kafka
}

type Http struct {
	Host string `validate:"required,hostname|ip"`
	Port string `validate:"required,gt=0,lte=65535"`
}

type CORS struct {
	AllowedOrigins []string `validate:"required,min=1"`
}

type ShipStation struct {
	BaseURL string        `validate:"required,url"`
	Timeout time.Duration `validate:"gte=0"`
}

// Account is one platform account the batch processes. Name must match
// the tag and provider-id tables ("nuveau" or "lentics").
type Account struct {
	Name      string `validate:"required,oneof=nuveau lentics"`
	APIKey    string `validate:"required"`
	APISecret string `validate:"required"`
}

type FedEx struct {
	BaseURL       string `validate:"required,url"`
	AccountNumber string `validate:"required"`
	ClientID      string `validate:"required"`
	ClientSecret  string `validate:"required"`
}

type UPS struct {
	BaseURL      string `validate:"required,url"`
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
}

type USPS struct {
	BaseURL  string `validate:"required,url"`
	UserID   string `validate:"required"`
	Password string `validate:"required"`
}

type Cache struct {
	Capacity int           `validate:"gte=1"`
	TTL      time.Duration `validate:"gt=0"`
}

type Postgres struct {
	Host     string
	Port     int `validate:"gte=0,lte=65535"`
	DBName   string
	User     string
	Password string

	SSLMode string `validate:"omitempty,oneof=disable require verify-ca verify-full"`

	MaxOpenConns    int           `validate:"gte=0"`
	MaxIdleConns    int           `validate:"gte=0"`
	ConnMaxLifetime time.Duration `validate:"gte=0"`
}

func (p Postgres) Enabled() bool { return p.Host != "" }

type Kafka struct {
	Brokers []string
	Topic   string

	BatchTimeout time.Duration `validate:"gte=0"`
}

func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

func New() Config {
	return Config{
		Env: env("ENV", "development"),

		Http: Http{
			Host: env("HOST", "localhost"),
			Port: env("PORT", "8080"),
		},

		Cors: CORS{
			AllowedOrigins: strings.Split(env("ALLOWED_CORS_ORIGINS", "http://localhost:3000"), ","),
		},

		ShipStation: ShipStation{
			BaseURL: env("SHIPSTATION_BASE_URL", "https://ssapi.shipstation.com"),
			Timeout: envDuration("SHIPSTATION_TIMEOUT", 120*time.Second),
		},

		Accounts: []Account{
			{
				Name:      "nuveau",
				APIKey:    env("API_KEY_NUVEAU_SS", ""),
				APISecret: env("API_SECRET_NUVEAU_SS", ""),
			},
			{
				Name:      "lentics",
				APIKey:    env("API_KEY_LENTICS_SS", ""),
				APISecret: env("API_SECRET_LENTICS_SS", ""),
			},
		},

		FedEx: FedEx{
			BaseURL:       env("FEDEX_BASE_URL", "https://apis.fedex.com"),
			AccountNumber: env("FEDEX_ACCOUNT_NUMBER", ""),
			ClientID:      env("API_KEY_LENTICS_FEDEX", ""),
			ClientSecret:  env("API_SECRET_LENTICS_FEDEX", ""),
		},

		UPS: UPS{
			BaseURL:      env("UPS_BASE_URL", "https://onlinetools.ups.com"),
			ClientID:     env("API_KEY_LENTICS_UPS", ""),
			ClientSecret: env("API_SECRET_LENTICS_UPS", ""),
		},

		USPS: USPS{
			BaseURL:  env("USPS_BASE_URL", "https://secure.shippingapis.com"),
			UserID:   env("API_KEY_NUVEAU_USPS", ""),
			Password: env("API_SECRET_NUVEAU_USPS", ""),
		},

		Cache: Cache{
			Capacity: envInt("QUOTE_CACHE_CAPACITY", 512),
			TTL:      envDuration("QUOTE_CACHE_TTL", 15*time.Minute),
		},

		Postgres: Postgres{
			Host:     env("POSTGRES_HOST", ""),
			Port:     envInt("POSTGRES_PORT", 5432),
			DBName:   env("POSTGRES_DB", "rate_shopper"),
			User:     env("POSTGRES_USER", ""),
			Password: env("POSTGRES_PASSWORD", ""),

			SSLMode: env("POSTGRES_SSL_MODE", "disable"),

			MaxOpenConns:    envInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("POSTGRES_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: envDuration("POSTGRES_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Kafka: Kafka{
			Brokers:      splitNonEmpty(env("KAFKA_BROKERS", "")),
			Topic:        env("KAFKA_TOPIC", "shipping-decisions"),
			BatchTimeout: envDuration("KAFKA_BATCH_TIMEOUT", 10*time.Millisecond),
		},
	}
}

func (c Config) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func env(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if len(fallback) == 0 {
		return ""
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}
