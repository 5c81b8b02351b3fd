// Package config loads and validates textdex configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the textdex node configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Auth    AuthConfig    `yaml:"auth"`
	Index   IndexConfig   `yaml:"index"`
	Search  SearchConfig  `yaml:"search"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// IndexConfig holds index creation defaults and limits.
type IndexConfig struct {
	DefaultShards      int `yaml:"default_shards"`
	MaxShards          int `yaml:"max_shards"`
	MaxBulkSize        int `yaml:"max_bulk_size"`
	RefreshIntervalSec int `yaml:"refresh_interval_sec"` // 0 = manual refresh only
}

// SearchConfig holds query phase limits.
type SearchConfig struct {
	MaxConcurrent       int  `yaml:"max_concurrent"`         // searches executed at once; excess is rejected
	DefaultTimeoutMs    int  `yaml:"default_timeout_ms"`     // 0 = no timeout
	TrackTotalHitsUpTo  int  `yaml:"track_total_hits_up_to"` // default hit count accuracy threshold
	MaxClauses          int  `yaml:"max_clauses"`            // boolean clause limit
	PITKeepAliveMaxSec  int  `yaml:"pit_keep_alive_max_sec"`
	RequestCacheTTLSec  int  `yaml:"request_cache_ttl_sec"`
	RequestCacheEnabled bool `yaml:"request_cache_enabled"`
}

// CacheConfig holds the Redis-backed request cache connection settings.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Index.DefaultShards <= 0 {
		c.Index.DefaultShards = 1
	}
	if c.Index.MaxShards <= 0 {
		c.Index.MaxShards = 32
	}
	if c.Index.MaxBulkSize <= 0 {
		c.Index.MaxBulkSize = 1000
	}
	if c.Search.MaxConcurrent <= 0 {
		c.Search.MaxConcurrent = 64
	}
	if c.Search.TrackTotalHitsUpTo == 0 {
		c.Search.TrackTotalHitsUpTo = 10_000
	}
	if c.Search.MaxClauses <= 0 {
		c.Search.MaxClauses = 1024
	}
	if c.Search.PITKeepAliveMaxSec <= 0 {
		c.Search.PITKeepAliveMaxSec = 300
	}
	if c.Search.RequestCacheTTLSec <= 0 {
		c.Search.RequestCacheTTLSec = 60
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "textdex:"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Index.DefaultShards > c.Index.MaxShards {
		return fmt.Errorf(
			"index.default_shards (%d) must not exceed index.max_shards (%d)",
			c.Index.DefaultShards, c.Index.MaxShards,
		)
	}
	if c.Search.RequestCacheEnabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when search.request_cache_enabled is set")
	}
	if c.Search.TrackTotalHitsUpTo < -1 {
		return fmt.Errorf(
			"search.track_total_hits_up_to must be -1 (disabled) or positive, got %d",
			c.Search.TrackTotalHitsUpTo,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
