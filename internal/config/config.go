// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// TaxRate is one configured tax rate. Empty location fields match anything.
type TaxRate struct {
	Country  string  `koanf:"country"`
	State    string  `koanf:"state"`
	TaxClass string  `koanf:"tax_class"`
	Shipping bool    `koanf:"shipping"`
	Percent  float64 `koanf:"percent"`
}

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database. Optional: when empty the gateway runs on in-memory stores.
	DatabaseURL string `koanf:"database_url"`

	// Redis. Optional: used for distributed rate limiting when set.
	RedisURL string `koanf:"redis_url"`

	// JWT authentication for management endpoints.
	JWTSecret         string `koanf:"jwt_secret"`
	JWTPreviousSecret string `koanf:"jwt_previous_secret"`

	// Zaver provider credentials.
	ZaverAPIKey        string `koanf:"zaver_api_key"`
	ZaverCallbackToken string `koanf:"zaver_callback_token"`
	ZaverTestMode      bool   `koanf:"zaver_test_mode"`

	// StoreURL is the storefront's public base URL (redirect targets).
	StoreURL string `koanf:"store_url"`

	// PublicURL is this gateway's public base URL. Provider callbacks are
	// only registered when it is HTTPS.
	PublicURL string `koanf:"public_url"`

	// Platform names the host platform in payment metadata.
	Platform string `koanf:"platform"`

	// Tax rates used when pricing order lines. File-only configuration.
	TaxRates []TaxRate `koanf:"tax_rates"`

	// Tracing
	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingExporterType string  `koanf:"tracing_exporter_type"`
	TracingOTLPEndpoint string  `koanf:"tracing_otlp_endpoint"`
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`
	TracingInsecureMode bool    `koanf:"tracing_insecure_mode"`
}

// Configuration validation errors.
var (
	ErrMissingJWTSecret      = errors.New("JWT_SECRET is required")
	ErrMissingZaverAPIKey    = errors.New("ZAVER_API_KEY is required")
	ErrMissingStoreURL       = errors.New("STORE_URL is required")
	ErrInvalidStoreURL       = errors.New("STORE_URL must start with http:// or https://")
	ErrInvalidPublicURL      = errors.New("PUBLIC_URL must start with http:// or https://")
	ErrInvalidSamplingRate   = errors.New("TRACING_SAMPLING_RATE must be between 0 and 1")
	ErrInvalidPort           = errors.New("PORT must be a valid integer")
	ErrInvalidTaxRatePercent = errors.New("tax rate percent must not be negative")
)

// Default values for non-secret configuration.
const (
	DefaultPort     = 8080
	DefaultEnv      = "development"
	DefaultPlatform = "commercekit"
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefaultMulti([]string{"GATEWAY_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	samplingRate, samplingErr := getEnvFloatOrDefault("TRACING_SAMPLING_RATE", k.Float64("tracing_sampling_rate"), 0)
	if samplingErr != nil {
		loadErrs = append(loadErrs, samplingErr)
	}

	var taxRates []TaxRate
	if k.Exists("tax_rates") {
		if err := k.Unmarshal("tax_rates", &taxRates); err != nil {
			loadErrs = append(loadErrs, fmt.Errorf("failed to parse tax_rates: %w", err))
		}
	}

	cfg := &Config{
		Port:                port,
		Env:                 getEnvOrDefaultMulti([]string{"GATEWAY_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:         getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:            getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		JWTSecret:           getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTPreviousSecret:   getEnvOrKoanf("JWT_PREVIOUS_SECRET", k, "jwt_previous_secret"),
		ZaverAPIKey:         getEnvOrKoanf("ZAVER_API_KEY", k, "zaver_api_key"),
		ZaverCallbackToken:  getEnvOrKoanf("ZAVER_CALLBACK_TOKEN", k, "zaver_callback_token"),
		ZaverTestMode:       getEnvBoolOrKoanf("ZAVER_TEST_MODE", k, "zaver_test_mode"),
		StoreURL:            getEnvOrKoanf("STORE_URL", k, "store_url"),
		PublicURL:           getEnvOrKoanf("PUBLIC_URL", k, "public_url"),
		Platform:            getEnvOrDefault("PLATFORM", k.String("platform"), DefaultPlatform),
		TaxRates:            taxRates,
		TracingEnabled:      getEnvBoolOrKoanf("TRACING_ENABLED", k, "tracing_enabled"),
		TracingExporterType: getEnvOrKoanf("TRACING_EXPORTER_TYPE", k, "tracing_exporter_type"),
		TracingOTLPEndpoint: getEnvOrKoanf("TRACING_OTLP_ENDPOINT", k, "tracing_otlp_endpoint"),
		TracingSamplingRate: samplingRate,
		TracingInsecureMode: getEnvBoolOrKoanf("TRACING_INSECURE_MODE", k, "tracing_insecure_mode"),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvBoolOrKoanf returns the environment variable as bool if set,
// otherwise the koanf value.
func getEnvBoolOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) bool {
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return k.Bool(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as a float.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.ZaverAPIKey == "" {
		errs = append(errs, ErrMissingZaverAPIKey)
	}

	if c.StoreURL == "" {
		errs = append(errs, ErrMissingStoreURL)
	} else if !isHTTPURL(c.StoreURL) {
		errs = append(errs, ErrInvalidStoreURL)
	}

	if c.PublicURL != "" && !isHTTPURL(c.PublicURL) {
		errs = append(errs, ErrInvalidPublicURL)
	}

	if c.TracingSamplingRate < 0 || c.TracingSamplingRate > 1 {
		errs = append(errs, ErrInvalidSamplingRate)
	}

	for _, rate := range c.TaxRates {
		if rate.Percent < 0 {
			errs = append(errs, ErrInvalidTaxRatePercent)
			break
		}
	}

	return errs
}

func isHTTPURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                  fmt.Sprintf("%d", c.Port),
		"env":                   c.Env,
		"database_url":          maskDatabaseURL(c.DatabaseURL),
		"redis_url":             maskDatabaseURL(c.RedisURL),
		"jwt_secret":            maskSecret(c.JWTSecret),
		"jwt_previous_secret":   maskSecret(c.JWTPreviousSecret),
		"zaver_api_key":         maskSecret(c.ZaverAPIKey),
		"zaver_callback_token":  maskSecret(c.ZaverCallbackToken),
		"zaver_test_mode":       fmt.Sprintf("%t", c.ZaverTestMode),
		"store_url":             c.StoreURL,
		"public_url":            c.PublicURL,
		"platform":              c.Platform,
		"tax_rates":             fmt.Sprintf("%d configured", len(c.TaxRates)),
		"tracing_enabled":       fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_exporter_type": c.TracingExporterType,
		"tracing_otlp_endpoint": c.TracingOTLPEndpoint,
		"tracing_sampling_rate": fmt.Sprintf("%g", c.TracingSamplingRate),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
