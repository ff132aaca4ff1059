package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"ecommerce-dashboard/internal/dataset"
)

var ErrConfigFileNotFound = errors.New("config file not found")

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Logger   LoggerConfig   `yaml:"logger"`
	Security SecurityConfig `yaml:"security"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"localhost"`
	Port            int           `yaml:"port" default:"8084"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
}

type DatasetConfig struct {
	Dir              string        `yaml:"dir" default:"dashboard"`
	Files            FilesConfig   `yaml:"files"`
	StrictJoin       bool          `yaml:"strict_join"`
	CategorySentinel string        `yaml:"category_sentinel" default:"Select All Categories"`
	LoadTimeout      time.Duration `yaml:"load_timeout" default:"60s"`
}

type FilesConfig struct {
	Orders       string `yaml:"orders" default:"orders_df_clean.csv"`
	OrderItems   string `yaml:"order_items" default:"order_items_df.csv"`
	Customers    string `yaml:"customers" default:"customers_df.csv"`
	Products     string `yaml:"products" default:"products_df.csv"`
	Geolocation  string `yaml:"geolocation" default:"geolocation_df.csv"`
	Translations string `yaml:"translations" default:"product_category_name_translation.csv"`
	RFM          string `yaml:"rfm" default:"rfm.csv"`
}

type LoggerConfig struct {
	Level     string `yaml:"level" default:"info"`
	Format    string `yaml:"format" default:"json"`
	AddSource bool   `yaml:"add_source" default:"true"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `yaml:"rate_limit_enabled" default:"true"`
	RateLimitRPS    int      `yaml:"rate_limit_rps" default:"100"`
	RateLimitBurst  int      `yaml:"rate_limit_burst" default:"10"`
	AllowedOrigins  []string `yaml:"allowed_origins" default:"[\"http://localhost:8084\"]"`
	TrustedProxies  []string `yaml:"trusted_proxies" default:"[\"127.0.0.1\"]"`
}

// Load builds the configuration from struct defaults, the optional YAML file
// at path and then environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if path != "" {
		raw, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnvString("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Dataset.Dir = getEnvString("DATA_DIR", c.Dataset.Dir)
	c.Dataset.Files.Orders = getEnvString("DATASET_ORDERS_FILE", c.Dataset.Files.Orders)
	c.Dataset.Files.OrderItems = getEnvString("DATASET_ORDER_ITEMS_FILE", c.Dataset.Files.OrderItems)
	c.Dataset.Files.Customers = getEnvString("DATASET_CUSTOMERS_FILE", c.Dataset.Files.Customers)
	c.Dataset.Files.Products = getEnvString("DATASET_PRODUCTS_FILE", c.Dataset.Files.Products)
	c.Dataset.Files.Geolocation = getEnvString("DATASET_GEOLOCATION_FILE", c.Dataset.Files.Geolocation)
	c.Dataset.Files.Translations = getEnvString("DATASET_TRANSLATIONS_FILE", c.Dataset.Files.Translations)
	c.Dataset.Files.RFM = getEnvString("DATASET_RFM_FILE", c.Dataset.Files.RFM)
	c.Dataset.StrictJoin = getEnvBool("DATASET_STRICT_JOIN", c.Dataset.StrictJoin)
	c.Dataset.CategorySentinel = getEnvString("DATASET_CATEGORY_SENTINEL", c.Dataset.CategorySentinel)
	c.Dataset.LoadTimeout = getEnvDuration("DATASET_LOAD_TIMEOUT", c.Dataset.LoadTimeout)

	c.Logger.Level = getEnvString("LOG_LEVEL", c.Logger.Level)
	c.Logger.Format = getEnvString("LOG_FORMAT", c.Logger.Format)
	c.Logger.AddSource = getEnvBool("LOG_ADD_SOURCE", c.Logger.AddSource)

	c.Security.EnableRateLimit = getEnvBool("SECURITY_RATE_LIMIT_ENABLED", c.Security.EnableRateLimit)
	c.Security.RateLimitRPS = getEnvInt("SECURITY_RATE_LIMIT_RPS", c.Security.RateLimitRPS)
	c.Security.RateLimitBurst = getEnvInt("SECURITY_RATE_LIMIT_BURST", c.Security.RateLimitBurst)
	c.Security.AllowedOrigins = getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", c.Security.AllowedOrigins)
	c.Security.TrustedProxies = getEnvStringSlice("SECURITY_TRUSTED_PROXIES", c.Security.TrustedProxies)
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	files := map[string]string{
		"orders":       c.Dataset.Files.Orders,
		"order_items":  c.Dataset.Files.OrderItems,
		"customers":    c.Dataset.Files.Customers,
		"products":     c.Dataset.Files.Products,
		"geolocation":  c.Dataset.Files.Geolocation,
		"translations": c.Dataset.Files.Translations,
		"rfm":          c.Dataset.Files.RFM,
	}
	for name, path := range files {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("dataset file for %s cannot be empty", name)
		}
	}

	if c.Dataset.CategorySentinel == "" {
		return fmt.Errorf("category sentinel cannot be empty")
	}

	if c.Dataset.LoadTimeout <= 0 {
		return fmt.Errorf("dataset load timeout must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

// Paths resolves the dataset file names against the data directory.
func (c *Config) Paths() dataset.Paths {
	f := c.Dataset.Files
	return dataset.Paths{
		Orders:       f.Orders,
		OrderItems:   f.OrderItems,
		Customers:    f.Customers,
		Products:     f.Products,
		Geolocation:  f.Geolocation,
		Translations: f.Translations,
		RFM:          f.RFM,
	}.Under(c.Dataset.Dir)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
