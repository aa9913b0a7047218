package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
)

// Inventory data sources
const (
	SourceInvenTree = "inventree"
	SourceCSV       = "csv"
)

// Config holds application configuration
type Config struct {
	// Source selects the inventory gateway: "inventree" or "csv".
	Source      string            `yaml:"source"`
	SnapshotDir string            `yaml:"snapshot_dir"`
	InvenTree   InvenTreeConfig   `yaml:"inventree"`
	Calculation CalculationConfig `yaml:"calculation"`
	Cache       CacheConfig       `yaml:"cache"`
	API         APIConfig         `yaml:"api"`
	Logging     LoggingConfig     `yaml:"logging"`
	Selections  SelectionsConfig  `yaml:"selections"`
}

// InvenTreeConfig holds the connection to the InvenTree server
type InvenTreeConfig struct {
	URL        string        `yaml:"url"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	PageSize   int           `yaml:"page_size"`
}

// CalculationConfig holds the defaults of a calculation run
type CalculationConfig struct {
	IncludeConsumables   bool     `yaml:"include_consumables"`
	MaxDepth             int      `yaml:"max_depth"`
	POChunkSize          int      `yaml:"po_chunk_size"`
	ExcludeSuppliers     []string `yaml:"exclude_suppliers"`
	ExcludeManufacturers []string `yaml:"exclude_manufacturers"`
	// TargetCategoryID is the category offered when choosing target assemblies.
	TargetCategoryID int `yaml:"target_category_id"`
}

// CacheConfig holds the optional Redis cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	RedisAddr string        `yaml:"redis_addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
	Prefix    string        `yaml:"prefix"`
}

// APIConfig holds API server configuration
type APIConfig struct {
	Port          int           `yaml:"port"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	EnableMetrics bool          `yaml:"enable_metrics"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

// SelectionsConfig holds the saved selection store
type SelectionsConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Source: SourceInvenTree,
		InvenTree: InvenTreeConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			PageSize:   500,
		},
		Calculation: CalculationConfig{
			IncludeConsumables: true,
			MaxDepth:           64,
			POChunkSize:        100,
			TargetCategoryID:   191,
		},
		Cache: CacheConfig{
			RedisAddr: "localhost:6379",
			TTL:       10 * time.Minute,
			Prefix:    "ordercalc",
		},
		API: APIConfig{
			Port:          8080,
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  5 * time.Minute,
			IdleTimeout:   60 * time.Second,
			EnableMetrics: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Selections: SelectionsConfig{
			Path: "data/selections.yaml",
		},
	}
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds the configuration from defaults, the YAML file at path (if
// any) and the environment, in that order. overrides run last, before
// validation.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	for _, o := range overrides {
		o(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Source = getEnv("ORDERCALC_SOURCE", c.Source)
	c.SnapshotDir = getEnv("ORDERCALC_SNAPSHOT_DIR", c.SnapshotDir)

	c.InvenTree.URL = getEnv("INVENTREE_URL", c.InvenTree.URL)
	c.InvenTree.Token = getEnv("INVENTREE_TOKEN", c.InvenTree.Token)
	c.InvenTree.Timeout = getEnvAsDuration("INVENTREE_TIMEOUT", c.InvenTree.Timeout)
	c.InvenTree.MaxRetries = getEnvAsInt("INVENTREE_MAX_RETRIES", c.InvenTree.MaxRetries)
	c.InvenTree.PageSize = getEnvAsInt("INVENTREE_PAGE_SIZE", c.InvenTree.PageSize)

	c.Calculation.IncludeConsumables = getEnvAsBool("ORDERCALC_INCLUDE_CONSUMABLES", c.Calculation.IncludeConsumables)
	c.Calculation.MaxDepth = getEnvAsInt("ORDERCALC_MAX_DEPTH", c.Calculation.MaxDepth)
	c.Calculation.POChunkSize = getEnvAsInt("ORDERCALC_PO_CHUNK_SIZE", c.Calculation.POChunkSize)
	c.Calculation.ExcludeSuppliers = getEnvAsList("ORDERCALC_EXCLUDE_SUPPLIERS", c.Calculation.ExcludeSuppliers)
	c.Calculation.ExcludeManufacturers = getEnvAsList("ORDERCALC_EXCLUDE_MANUFACTURERS", c.Calculation.ExcludeManufacturers)
	c.Calculation.TargetCategoryID = getEnvAsInt("ORDERCALC_TARGET_CATEGORY_ID", c.Calculation.TargetCategoryID)

	c.Cache.Enabled = getEnvAsBool("ORDERCALC_CACHE_ENABLED", c.Cache.Enabled)
	c.Cache.RedisAddr = getEnv("ORDERCALC_REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.Password = getEnv("ORDERCALC_REDIS_PASSWORD", c.Cache.Password)
	c.Cache.DB = getEnvAsInt("ORDERCALC_REDIS_DB", c.Cache.DB)
	c.Cache.TTL = getEnvAsDuration("ORDERCALC_CACHE_TTL", c.Cache.TTL)

	c.API.Port = getEnvAsInt("ORDERCALC_API_PORT", c.API.Port)
	c.API.ReadTimeout = getEnvAsDuration("ORDERCALC_API_READ_TIMEOUT", c.API.ReadTimeout)
	c.API.WriteTimeout = getEnvAsDuration("ORDERCALC_API_WRITE_TIMEOUT", c.API.WriteTimeout)
	c.API.IdleTimeout = getEnvAsDuration("ORDERCALC_API_IDLE_TIMEOUT", c.API.IdleTimeout)
	c.API.EnableMetrics = getEnvAsBool("ORDERCALC_API_ENABLE_METRICS", c.API.EnableMetrics)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)

	c.Selections.Path = getEnv("ORDERCALC_SELECTIONS_PATH", c.Selections.Path)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Source {
	case SourceInvenTree:
		if strings.TrimSpace(c.InvenTree.URL) == "" {
			return &entities.ConfigurationError{Field: "inventree.url", Message: "INVENTREE_URL is not set"}
		}
		if strings.TrimSpace(c.InvenTree.Token) == "" {
			return &entities.ConfigurationError{Field: "inventree.token", Message: "INVENTREE_TOKEN is not set"}
		}
	case SourceCSV:
		if strings.TrimSpace(c.SnapshotDir) == "" {
			return &entities.ConfigurationError{Field: "snapshot_dir", Message: "required when source is csv"}
		}
	default:
		return &entities.ConfigurationError{Field: "source", Message: fmt.Sprintf("unknown source %q (expected inventree or csv)", c.Source)}
	}

	if c.Calculation.MaxDepth < 0 {
		return &entities.ConfigurationError{Field: "calculation.max_depth", Message: "must not be negative"}
	}
	if c.Calculation.POChunkSize < 0 {
		return &entities.ConfigurationError{Field: "calculation.po_chunk_size", Message: "must not be negative"}
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return &entities.ConfigurationError{Field: "api.port", Message: fmt.Sprintf("invalid port %d", c.API.Port)}
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.RedisAddr) == "" {
		return &entities.ConfigurationError{Field: "cache.redis_addr", Message: "required when the cache is enabled"}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return &entities.ConfigurationError{Field: "logging.level", Message: fmt.Sprintf("invalid level %q", c.Logging.Level)}
	}
	validLogFormats := map[string]bool{
		"json": true, "console": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return &entities.ConfigurationError{Field: "logging.format", Message: fmt.Sprintf("invalid format %q", c.Logging.Format)}
	}

	return nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
