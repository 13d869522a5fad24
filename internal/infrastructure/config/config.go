// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	transfer := cfg.Reconciliation.Profile(matcher.FlavorTransfer)
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
)

const (
	defaultDatabasePath = "reconciler.db"
	defaultBaseCurrency = "USD"
	defaultExchange     = "reconciliation"
	defaultPort         = 8080
)

// Config represents the entire application configuration
type Config struct {
	Storage        StorageConfig        `yaml:"storage"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	Currency       CurrencyConfig       `yaml:"currency"`
	Events         EventsConfig         `yaml:"events"`
	API            APIConfig            `yaml:"api"`
	Observability  ObservabilityConfig  `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ReconciliationConfig holds the base currency and per-flavor overrides.
// Unset profile fields keep the built-in defaults.
type ReconciliationConfig struct {
	BaseCurrency  string        `yaml:"base_currency"`
	Reimbursement ProfileConfig `yaml:"reimbursement"`
	Transfer      ProfileConfig `yaml:"transfer"`
	Duplicate     ProfileConfig `yaml:"duplicate"`
}

// ProfileConfig overrides parts of a flavor's matching profile
type ProfileConfig struct {
	MaxDaysDifference   *int     `yaml:"max_days_difference"`
	TolerancePercentage *float64 `yaml:"tolerance_percentage"`
	DateWeight          *float64 `yaml:"date_weight"`
	AmountWeight        *float64 `yaml:"amount_weight"`
	AutoApplyConfidence *float64 `yaml:"auto_apply_confidence"`
}

// CurrencyConfig holds static exchange rates, each the value of one unit
// of the currency in the base currency (e.g. EUR: "1.08")
type CurrencyConfig struct {
	Rates map[string]string `yaml:"rates"`
}

// EventsConfig holds match event publishing settings
type EventsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${AMQP_URL})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			DatabasePath: getEnv("RECONCILER_DB_PATH", defaultDatabasePath),
		},
		Reconciliation: ReconciliationConfig{
			BaseCurrency: getEnv("RECONCILER_BASE_CURRENCY", defaultBaseCurrency),
		},
		Currency: CurrencyConfig{
			Rates: parseRates(os.Getenv("RECONCILER_FX_RATES")),
		},
		Events: EventsConfig{
			Enabled:  getEnvBool("EVENTS_ENABLED", false),
			AMQPURL:  os.Getenv("AMQP_URL"),
			Exchange: getEnv("AMQP_EXCHANGE", defaultExchange),
		},
		API: APIConfig{
			Port: getEnvInt("API_PORT", defaultPort),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

func (c *Config) applyDefaults() {
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = defaultDatabasePath
	}
	if c.Reconciliation.BaseCurrency == "" {
		c.Reconciliation.BaseCurrency = defaultBaseCurrency
	}
	c.Reconciliation.BaseCurrency = strings.ToUpper(c.Reconciliation.BaseCurrency)
	if c.Events.Exchange == "" {
		c.Events.Exchange = defaultExchange
	}
	if c.API.Port == 0 {
		c.API.Port = defaultPort
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

// Validate checks every matching profile and the event settings
func (c *Config) Validate() error {
	var errs []error
	for _, flavor := range matcher.AllFlavors {
		if err := c.Reconciliation.Profile(flavor).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("reconciliation.%s: %w", flavor, err))
		}
	}
	if c.Events.Enabled && c.GetSecret(c.Events.AMQPURL, "AMQP_URL", "RABBITMQ_URL") == "" {
		errs = append(errs, errors.New("events.amqp_url is required when events are enabled"))
	}
	return errors.Join(errs...)
}

// Profile returns the matching profile for a flavor with overrides applied
func (r ReconciliationConfig) Profile(f matcher.Flavor) matcher.Config {
	cfg := matcher.DefaultConfig(f)

	var override ProfileConfig
	switch f {
	case matcher.FlavorReimbursement:
		override = r.Reimbursement
	case matcher.FlavorTransfer:
		override = r.Transfer
	case matcher.FlavorDuplicate:
		override = r.Duplicate
	}
	return override.apply(cfg)
}

// Profiles returns every flavor's matching profile
func (r ReconciliationConfig) Profiles() map[matcher.Flavor]matcher.Config {
	profiles := make(map[matcher.Flavor]matcher.Config, len(matcher.AllFlavors))
	for _, f := range matcher.AllFlavors {
		profiles[f] = r.Profile(f)
	}
	return profiles
}

func (p ProfileConfig) apply(cfg matcher.Config) matcher.Config {
	if p.MaxDaysDifference != nil {
		cfg.MaxDaysDifference = *p.MaxDaysDifference
	}
	if p.TolerancePercentage != nil {
		cfg.TolerancePercentage = *p.TolerancePercentage
	}
	if p.DateWeight != nil {
		cfg.DateWeight = *p.DateWeight
	}
	if p.AmountWeight != nil {
		cfg.AmountWeight = *p.AmountWeight
	}
	if p.AutoApplyConfidence != nil {
		cfg.AutoApplyConfidence = *p.AutoApplyConfidence
	}
	return cfg
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvBool retrieves a boolean environment variable with a fallback default
func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

// parseRates reads "EUR=1.08,GBP=1.27"
func parseRates(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	rates := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		code, rate, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		rates[strings.ToUpper(strings.TrimSpace(code))] = strings.TrimSpace(rate)
	}
	return rates
}

// GetSecret retrieves a secret from config first, then tries multiple environment variable names
// Usage: GetSecret(cfg.Events.AMQPURL, "AMQP_URL", "RABBITMQ_URL")
func (c *Config) GetSecret(configValue string, envVarNames ...string) string {
	// First, try the config value
	if configValue != "" {
		return configValue
	}

	// Then try each environment variable in order
	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}

	return ""
}
