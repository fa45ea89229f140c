package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Catalog source kinds
const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
	SourceURL    = "url"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Catalog   CatalogConfig
	Matching  MatchingConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig selects where the vehicle catalog is loaded from
type CatalogConfig struct {
	Source     string `mapstructure:"source"` // "csv", "sqlite" or "url"
	Path       string `mapstructure:"path"`
	SQLitePath string `mapstructure:"sqlite_path"`
	URL        string `mapstructure:"url"`
}

// MatchingConfig holds recommendation defaults, applied when a request omits a field
type MatchingConfig struct {
	Price            float64 `mapstructure:"price"`
	Mileage          float64 `mapstructure:"mileage"`
	PriceTolerance   float64 `mapstructure:"price_tolerance"`
	MileageTolerance float64 `mapstructure:"mileage_tolerance"`
	Limit            int     `mapstructure:"limit"`
	MaxLimit         int     `mapstructure:"max_limit"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // "memory" or "none"
	TTL  time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration, in requests per minute
type RateLimitConfig struct {
	PerIP  int `mapstructure:"per_ip"`
	Remote int `mapstructure:"remote"`
}

// LogConfig controls logger output
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration like Load but reads the given config file
// instead of searching the default locations when path is not empty.
func LoadFile(path string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/vehiclematch/")
	}

	// Environment variable settings
	v.SetEnvPrefix("VEHICLEMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional unless one was named explicitly
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// Catalog defaults
	v.SetDefault("catalog.source", SourceCSV)
	v.SetDefault("catalog.path", "./data/vehicles.csv")
	v.SetDefault("catalog.sqlite_path", "./data/vehicles.db")
	v.SetDefault("catalog.url", "")

	// Matching defaults mirror the dashboard inputs
	v.SetDefault("matching.price", 20000)
	v.SetDefault("matching.mileage", 50000)
	v.SetDefault("matching.price_tolerance", 2000)
	v.SetDefault("matching.mileage_tolerance", 5000)
	v.SetDefault("matching.limit", 5)
	v.SetDefault("matching.max_limit", 20)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "10m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 120)
	v.SetDefault("ratelimit.remote", 30)

	// Log defaults
	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Catalog.Source {
	case SourceCSV:
		if config.Catalog.Path == "" {
			return fmt.Errorf("catalog path is required when source is 'csv' (set VEHICLEMATCH_CATALOG_PATH)")
		}
	case SourceSQLite:
		if config.Catalog.SQLitePath == "" {
			return fmt.Errorf("catalog sqlite_path is required when source is 'sqlite'")
		}
	case SourceURL:
		if config.Catalog.URL == "" {
			return fmt.Errorf("catalog url is required when source is 'url' (set VEHICLEMATCH_CATALOG_URL)")
		}
	default:
		return fmt.Errorf("catalog source must be 'csv', 'sqlite' or 'url', got: %s", config.Catalog.Source)
	}

	m := config.Matching
	if m.Price < 0 || m.Mileage < 0 {
		return fmt.Errorf("default price and mileage must not be negative")
	}
	if m.PriceTolerance <= 0 || m.MileageTolerance <= 0 {
		return fmt.Errorf("default tolerances must be positive")
	}
	if m.Limit < 1 {
		return fmt.Errorf("default limit must be at least 1, got: %d", m.Limit)
	}
	if m.MaxLimit < m.Limit {
		return fmt.Errorf("max_limit (%d) must not be below the default limit (%d)", m.MaxLimit, m.Limit)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "none" {
		return fmt.Errorf("cache type must be 'memory' or 'none', got: %s", config.Cache.Type)
	}

	return nil
}

// loadEnvFile exports KEY=VALUE pairs from ./.env without overriding
// variables that are already set. A missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	env := viper.New()
	env.SetConfigFile(".env")
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return err
	}

	for _, key := range env.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, env.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}
