package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
)

type CKey string

type Config struct {
	Validator *validator.Validate
	SecretKey string
}

// AppConfig is read from the environment once at startup
type AppConfig struct {
	Port        string `env:"APP_PORT" env-default:"9999" env-description:"HTTP listen port"`
	Environment string `env:"ENVIRONMENT" env-default:"development" validate:"oneof=development test production"`
	LogLevel    string `env:"LOG_LEVEL" env-description:"debug, info, warn or error"`

	OpenSearchURL  string `env:"OPENSEARCH_URL" env-default:"http://localhost:9200"`
	OpenSearchUser string `env:"OPENSEARCH_USER"`
	OpenSearchPass string `env:"OPENSEARCH_PASSWORD"`
	EnableLogging  bool   `env:"ENABLE_OPENSEARCH_LOGGING" env-default:"false"`

	StorageDriver string `env:"STORAGE_DRIVER" env-default:"sqlite" validate:"oneof=sqlite postgres memory"`
	SQLitePath    string `env:"SQLITE_PATH" env-default:"./data/gobuckaroo.db"`
	DatabaseURL   string `env:"DATABASE_URL" validate:"required_if=StorageDriver postgres"`

	JWTSecret          string   `env:"JWT_SECRET" env-description:"HMAC key for API tokens; random per process when empty"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" env-default:"100" validate:"gt=0"`
	WebhookIPWhitelist []string `env:"WEBHOOK_IP_WHITELIST" env-separator:"," env-description:"client IPs allowed to post push notifications"`
	TrustProxyHeaders  bool     `env:"TRUST_PROXY_HEADERS" env-default:"false" env-description:"take the client IP from X-Forwarded-For and X-Real-IP"`

	BuckarooSecretKey     string `env:"BUCKAROO_SECRET_KEY"`
	BuckarooWebsiteKey    string `env:"BUCKAROO_WEBSITE_KEY"`
	BuckarooTest          bool   `env:"BUCKAROO_TEST" env-default:"true"`
	BuckarooMandatePrefix string `env:"BUCKAROO_MANDATE_PREFIX"`
}

var (
	instance     *Config
	instanceOnce sync.Once
)

// App returns the process wide validator and fallback secret
func App() *Config {
	instanceOnce.Do(func() {
		instance = &Config{
			Validator: validator.New(validator.WithRequiredStructEnabled()),
			// changes on every restart; set JWT_SECRET to keep tokens valid
			SecretKey: uuid.New().String(),
		}
	})
	return instance
}

// LoadAppConfig reads the environment into an AppConfig and validates it
func LoadAppConfig() (*AppConfig, error) {
	var cfg AppConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		desc, _ := cleanenv.GetDescription(&cfg, nil)
		return nil, fmt.Errorf("config: read environment: %w\n%s", err, desc)
	}

	if err := App().Validator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: invalid environment: %w", err)
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = App().SecretKey
	}

	return &cfg, nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
