package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Index drivers.
const (
	IndexDriverElasticsearch = "elasticsearch"
	IndexDriverRedis         = "redis"
)

// Config holds the cinedex API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Cache      CacheConfig      `yaml:"cache"`
	Index      IndexConfig      `yaml:"index"`
	Pagination PaginationConfig `yaml:"pagination"`
	Access     AccessConfig     `yaml:"access"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AccessConfig holds keys for administrative routes. Catalog reads are anonymous.
type AccessConfig struct {
	AdminKeys []string `yaml:"admin_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	Standalone       bool     `yaml:"standalone"` // single node, no cluster discovery
	KeyPrefix        string   `yaml:"key_prefix"`
	TTLSec           int      `yaml:"ttl_sec"`
	NegativeTTLSec   int      `yaml:"negative_ttl_sec"`
	TimeoutMs        int      `yaml:"timeout_ms"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// TTL returns the lifetime of positive entries.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSec) * time.Second }

// NegativeTTL returns the lifetime of confirmed-empty entries.
func (c CacheConfig) NegativeTTL() time.Duration {
	return time.Duration(c.NegativeTTLSec) * time.Second
}

// Timeout bounds a single cache call.
func (c CacheConfig) Timeout() time.Duration { return time.Duration(c.TimeoutMs) * time.Millisecond }

// IndexConfig holds search index settings.
type IndexConfig struct {
	Driver           string     `yaml:"driver"` // elasticsearch, redis (default: elasticsearch)
	Addrs            []string   `yaml:"addrs"`
	Username         string     `yaml:"username"`
	Password         string     `yaml:"password"`
	TimeoutMs        int        `yaml:"timeout_ms"`
	ReadinessTimeout int        `yaml:"readiness_timeout_sec"`
	Names            IndexNames `yaml:"names"`
}

// Timeout bounds a single index call.
func (c IndexConfig) Timeout() time.Duration { return time.Duration(c.TimeoutMs) * time.Millisecond }

// IndexNames maps entity types to index names.
type IndexNames struct {
	Film   string `yaml:"film"`
	Person string `yaml:"person"`
	Genre  string `yaml:"genre"`
}

// PaginationConfig holds page size limits.
type PaginationConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
	MaxResultWindow int `yaml:"max_result_window"` // page_number * page_size cap, <= the index's own window
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML with ${VAR} expansion, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = "redis"
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "cinedex:"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.NegativeTTLSec <= 0 {
		c.Cache.NegativeTTLSec = 30
	}
	if c.Cache.TimeoutMs <= 0 {
		c.Cache.TimeoutMs = 200
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}

	if c.Index.Driver == "" {
		c.Index.Driver = IndexDriverElasticsearch
	}
	if c.Index.Driver == IndexDriverRedis && len(c.Index.Addrs) == 0 {
		c.Index.Addrs = c.Cache.Addrs
	}
	if c.Index.TimeoutMs <= 0 {
		c.Index.TimeoutMs = 2000
	}
	if c.Index.ReadinessTimeout <= 0 {
		c.Index.ReadinessTimeout = 30
	}
	if c.Index.Names.Film == "" {
		c.Index.Names.Film = "movies"
	}
	if c.Index.Names.Person == "" {
		c.Index.Names.Person = "persons"
	}
	if c.Index.Names.Genre == "" {
		c.Index.Names.Genre = "genres"
	}

	if c.Pagination.DefaultPageSize <= 0 {
		c.Pagination.DefaultPageSize = 50
	}
	if c.Pagination.MaxPageSize <= 0 {
		c.Pagination.MaxPageSize = 100
	}
	if c.Pagination.MaxResultWindow <= 0 {
		c.Pagination.MaxResultWindow = 10000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if !slices.Contains([]string{"redis", "valkey"}, c.Cache.Driver) {
		return fmt.Errorf("cache.driver must be \"redis\" or \"valkey\", got %q", c.Cache.Driver)
	}
	if len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required")
	}
	switch c.Index.Driver {
	case IndexDriverElasticsearch, IndexDriverRedis:
	default:
		return fmt.Errorf("index.driver must be %q or %q, got %q",
			IndexDriverElasticsearch, IndexDriverRedis, c.Index.Driver)
	}
	if len(c.Index.Addrs) == 0 {
		return fmt.Errorf("index.addrs is required")
	}
	if c.Pagination.DefaultPageSize > c.Pagination.MaxPageSize {
		return fmt.Errorf("pagination.default_page_size (%d) exceeds max_page_size (%d)",
			c.Pagination.DefaultPageSize, c.Pagination.MaxPageSize)
	}
	if c.Pagination.MaxResultWindow < c.Pagination.MaxPageSize {
		return fmt.Errorf("pagination.max_result_window (%d) is smaller than max_page_size (%d)",
			c.Pagination.MaxResultWindow, c.Pagination.MaxPageSize)
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
