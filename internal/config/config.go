package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix                 = "PEERNOTES"
	defaultHTTPAddress        = "0.0.0.0:8080"
	defaultDatabaseDriver     = DriverSQLite
	defaultDatabasePath       = "peernotes.db"
	defaultLogLevel           = "info"
	defaultModerationModel    = "gemini-2.5-flash"
	defaultModerationTemp     = 0.2
	defaultRequestsPerMinute  = 10
	defaultMetricsEnabled     = true
	defaultCORSAllowedOrigins = "http://localhost:5173,http://localhost:3000,https://*.vercel.app"
	maxModerationTemperature  = 2.0
)

// Supported values for database.driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress           string
	DatabaseDriver        string
	DatabasePath          string
	DatabaseDSN           string
	DatabaseTLS           bool
	LogLevel              string
	ModerationAPIKey      string
	ModerationModel       string
	ModerationTemperature float32
	CORSAllowedOrigins    []string
	RateLimitRedisAddress string
	RequestsPerMinute     int
	MetricsEnabled        bool
}

// StorageConfigured reports whether a backing store was selected.
func (c AppConfig) StorageConfigured() bool {
	return c.DatabaseDriver != DriverNone
}

// RateLimitEnabled reports whether a redis address was provided.
func (c AppConfig) RateLimitEnabled() bool {
	return c.RateLimitRedisAddress != ""
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.dsn", "")
	configViper.SetDefault("database.tls", false)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("moderation.api_key", "")
	configViper.SetDefault("moderation.model", defaultModerationModel)
	configViper.SetDefault("moderation.temperature", defaultModerationTemp)
	configViper.SetDefault("cors.allowed_origins", defaultCORSAllowedOrigins)
	configViper.SetDefault("ratelimit.redis_address", "")
	configViper.SetDefault("ratelimit.requests_per_minute", defaultRequestsPerMinute)
	configViper.SetDefault("metrics.enabled", defaultMetricsEnabled)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:           strings.TrimSpace(configViper.GetString("http.address")),
		DatabaseDriver:        strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabasePath:          strings.TrimSpace(configViper.GetString("database.path")),
		DatabaseDSN:           strings.TrimSpace(configViper.GetString("database.dsn")),
		DatabaseTLS:           configViper.GetBool("database.tls"),
		LogLevel:              configViper.GetString("log.level"),
		ModerationAPIKey:      strings.TrimSpace(configViper.GetString("moderation.api_key")),
		ModerationModel:       strings.TrimSpace(configViper.GetString("moderation.model")),
		ModerationTemperature: float32(configViper.GetFloat64("moderation.temperature")),
		CORSAllowedOrigins:    splitList(configViper.GetStringSlice("cors.allowed_origins")),
		RateLimitRedisAddress: strings.TrimSpace(configViper.GetString("ratelimit.redis_address")),
		RequestsPerMinute:     configViper.GetInt("ratelimit.requests_per_minute"),
		MetricsEnabled:        configViper.GetBool("metrics.enabled"),
	}
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = DriverNone
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.HTTPAddress == "" {
		return fmt.Errorf("http.address is required")
	}
	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	case DriverNone:
	default:
		return fmt.Errorf("database.driver %q is not supported", c.DatabaseDriver)
	}
	if c.ModerationModel == "" {
		return fmt.Errorf("moderation.model is required")
	}
	if c.ModerationTemperature < 0 || c.ModerationTemperature > maxModerationTemperature {
		return fmt.Errorf("moderation.temperature must be between 0 and %.0f", maxModerationTemperature)
	}
	if c.RateLimitEnabled() && c.RequestsPerMinute <= 0 {
		return fmt.Errorf("ratelimit.requests_per_minute must be positive")
	}
	return nil
}

// splitList accepts both list values and a single comma separated string.
func splitList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	return result
}
