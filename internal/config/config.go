package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	AppBaseURL  string

	OTLPEndpoint string

	DBType            string
	DBURL             string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBMigrate         bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Backend       BackendConfig
	AuthJWTSecret string

	LemonSqueezy LemonSqueezyConfig
	Webhook      WebhookConfig

	PlansConfigPath string
}

// BackendConfig points at the backend-as-a-service that owns auth users.
type BackendConfig struct {
	URL        string
	ServiceKey string
}

type LemonSqueezyConfig struct {
	APIKey  string
	StoreID string
	BaseURL string
}

type WebhookConfig struct {
	Secret       string
	RelayURL     string
	RelayTimeout time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "familyhub"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		AppBaseURL:        strings.TrimRight(getenv("APP_BASE_URL", "http://localhost:5173"), "/"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBURL:             strings.TrimSpace(getenv("DATABASE_URL", "")),
		DBHost:            getenv("DATABASE_HOST", ""),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "postgres"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "require"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBMigrate:         getenvBool("DATABASE_MIGRATE", true),
		RedisAddr:         strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		RedisDB:           getenvInt("REDIS_DB", 0),
		Backend: BackendConfig{
			URL:        strings.TrimRight(strings.TrimSpace(getenv("BACKEND_URL", "")), "/"),
			ServiceKey: strings.TrimSpace(getenv("BACKEND_SERVICE_KEY", "")),
		},
		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		LemonSqueezy: LemonSqueezyConfig{
			APIKey:  strings.TrimSpace(getenv("LEMONSQUEEZY_API_KEY", "")),
			StoreID: strings.TrimSpace(getenv("LEMONSQUEEZY_STORE_ID", "")),
			BaseURL: strings.TrimRight(getenv("LEMONSQUEEZY_BASE_URL", "https://api.lemonsqueezy.com"), "/"),
		},
		Webhook: WebhookConfig{
			Secret:       strings.TrimSpace(getenv("WEBHOOK_SECRET", "")),
			RelayURL:     strings.TrimSpace(getenv("RELAY_URL", "")),
			RelayTimeout: getenvDuration("RELAY_TIMEOUT", 5*time.Second),
		},
		PlansConfigPath: strings.TrimSpace(getenv("PLANS_CONFIG", "")),
	}

	return cfg
}

// Provide loads the configuration and refuses to start when a required
// value is missing.
func Provide() (Config, error) {
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ErrMissingConfig is returned by Validate for every absent required value.
var ErrMissingConfig = errors.New("missing_config")

// Validate reports all required values that are absent.
func (c Config) Validate() error {
	var missing []string
	if c.DBURL == "" && c.DBHost == "" && c.DBType != "sqlite" {
		missing = append(missing, "DATABASE_URL or DATABASE_HOST")
	}
	if c.Backend.URL == "" {
		missing = append(missing, "BACKEND_URL")
	}
	if c.Backend.ServiceKey == "" {
		missing = append(missing, "BACKEND_SERVICE_KEY")
	}
	if c.AuthJWTSecret == "" {
		missing = append(missing, "AUTH_JWT_SECRET")
	}
	if c.LemonSqueezy.APIKey == "" {
		missing = append(missing, "LEMONSQUEEZY_API_KEY")
	}
	if c.LemonSqueezy.StoreID == "" {
		missing = append(missing, "LEMONSQUEEZY_STORE_ID")
	}
	if c.Webhook.Secret == "" {
		missing = append(missing, "WEBHOOK_SECRET")
	}
	if c.Webhook.RelayURL == "" {
		missing = append(missing, "RELAY_URL")
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
