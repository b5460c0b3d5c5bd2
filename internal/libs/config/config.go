// Package config loads application configuration from an optional YAML file
// named by CONFIG_FILE, overridden by environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported store backends
const (
	BackendElasticsearch = "elasticsearch"
	BackendPostgres      = "postgres"
	BackendRedis         = "redis"
	BackendMemory        = "memory"
)

// Config holds application configuration
type Config struct {
	ESHost          string        `yaml:"es_host"`
	ESPort          int           `yaml:"es_port"`
	APIPort         string        `yaml:"api_port"`
	APIHost         string        `yaml:"api_host"`
	LogLevel        string        `yaml:"log_level"`
	StoreBackend    string        `yaml:"store_backend"`
	DatabaseURL     string        `yaml:"database_url"`
	RedisAddr       string        `yaml:"redis_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ESURL combines the store host and port into a connection URL
func (c *Config) ESURL() string {
	return fmt.Sprintf("http://%s:%d", c.ESHost, c.ESPort)
}

// Load reads configuration from an optional YAML file named by CONFIG_FILE,
// then applies environment variable overrides
func Load() (*Config, error) {
	cfg := &Config{
		ESHost:          "elasticsearch",
		ESPort:          9200,
		APIPort:         "8000",
		APIHost:         "0.0.0.0",
		LogLevel:        "info",
		StoreBackend:    BackendElasticsearch,
		RedisAddr:       "localhost:6379",
		ShutdownTimeout: 15 * time.Second,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.ESHost = getEnv("ES_HOST", cfg.ESHost)
	cfg.APIPort = getEnv("API_PORT", cfg.APIPort)
	cfg.APIHost = getEnv("API_HOST", cfg.APIHost)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.StoreBackend = getEnv("STORE_BACKEND", cfg.StoreBackend)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)

	if v := os.Getenv("ES_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ES_PORT %q: %w", v, err)
		}
		cfg.ESPort = port
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q: %w", v, err)
		}
		cfg.ShutdownTimeout = d
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ESPort <= 0 || c.ESPort > 65535 {
		return fmt.Errorf("ES_PORT out of range: %d", c.ESPort)
	}

	switch c.StoreBackend {
	case BackendElasticsearch, BackendRedis, BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
