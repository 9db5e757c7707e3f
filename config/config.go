// Package config loads service settings from .env files, an optional YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the service configuration.
type Config struct {
	Port            string        `yaml:"port"`
	GinMode         string        `yaml:"gin_mode"`
	LogLevel        string        `yaml:"log_level"`
	LogPretty       bool          `yaml:"log_pretty"`
	DataDir         string        `yaml:"data_dir"`
	HistoryBackend  string        `yaml:"history_backend"` // memory | file | sqlite
	HistoryCapacity int           `yaml:"history_capacity"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
	MaxPageBytes    int64         `yaml:"max_page_bytes"`
	UserAgent       string        `yaml:"user_agent"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	RateLimit       float64       `yaml:"rate_limit"` // requests per second per client
	RateBurst       float64       `yaml:"rate_burst"`
	WWWEquivalent   bool          `yaml:"www_equivalent"`
	DevMode         bool          `yaml:"dev_mode"`
}

// WithDefaults returns a copy with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.Port == "" {
		c.Port = "8082"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.HistoryBackend == "" {
		c.HistoryBackend = "file"
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = 10
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.MaxPageBytes <= 0 {
		c.MaxPageBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "SEOAnalyzer/1.0"
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * time.Minute
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 2
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 5
	}
	return c
}

// Validate checks values that defaults cannot repair.
func (c Config) Validate() error {
	switch c.HistoryBackend {
	case "", "memory", "file", "json", "sqlite":
	default:
		return fmt.Errorf("unsupported history backend %q (use memory, file or sqlite)", c.HistoryBackend)
	}
	switch c.GinMode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("unsupported gin mode %q", c.GinMode)
	}
	return nil
}

// Load reads .env.development (or .env), then the YAML file named by SEO_CONFIG_FILE,
// then applies environment overrides.
func Load() (Config, error) {
	// Try to load .env.development first (for local development)
	if err := godotenv.Load(".env.development"); err != nil {
		// A missing .env is fine, the environment may already be set
		_ = godotenv.Load()
	}
	return LoadFrom(os.Getenv("SEO_CONFIG_FILE"), os.LookupEnv)
}

// LoadFrom builds the configuration from an optional YAML file and an environment lookup.
func LoadFrom(path string, lookup func(string) (string, bool)) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	cfg = cfg.WithDefaults()
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var err error
	parse := func(key string, set func(string) error) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" || err != nil {
			return
		}
		if perr := set(strings.TrimSpace(v)); perr != nil {
			err = fmt.Errorf("invalid %s: %w", key, perr)
		}
	}
	boolean := func(dst *bool) func(string) error {
		return func(v string) error {
			b, err := strconv.ParseBool(v)
			*dst = b
			return err
		}
	}
	duration := func(dst *time.Duration) func(string) error {
		return func(v string) error {
			d, err := time.ParseDuration(v)
			*dst = d
			return err
		}
	}
	float := func(dst *float64) func(string) error {
		return func(v string) error {
			f, err := strconv.ParseFloat(v, 64)
			*dst = f
			return err
		}
	}

	str("PORT", &cfg.Port)
	str("GIN_MODE", &cfg.GinMode)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("DATA_DIR", &cfg.DataDir)
	str("HISTORY_BACKEND", &cfg.HistoryBackend)
	str("USER_AGENT", &cfg.UserAgent)

	parse("LOG_PRETTY", boolean(&cfg.LogPretty))
	parse("WWW_EQUIVALENT", boolean(&cfg.WWWEquivalent))
	parse("DEV_MODE", boolean(&cfg.DevMode))
	parse("FETCH_TIMEOUT", duration(&cfg.FetchTimeout))
	parse("CACHE_TTL", duration(&cfg.CacheTTL))
	parse("RATE_LIMIT", float(&cfg.RateLimit))
	parse("RATE_BURST", float(&cfg.RateBurst))
	parse("HISTORY_CAPACITY", func(v string) error {
		n, err := strconv.Atoi(v)
		cfg.HistoryCapacity = n
		return err
	})
	parse("MAX_PAGE_BYTES", func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		cfg.MaxPageBytes = n
		return err
	})
	return err
}
