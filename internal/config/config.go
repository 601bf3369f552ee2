// Package config loads storefront settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// writeMargin leaves room to encode the response after the slowest checkout.
const writeMargin = 5 * time.Second

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

type Config struct {
	HTTPPort       string        `yaml:"http_port"`
	APIBaseURL     string        `yaml:"api_base_url"`
	StorageBackend string        `yaml:"storage_backend"`
	RedisAddr      string        `yaml:"redis_addr"`
	RedisPassword  string        `yaml:"redis_password"`
	CartTTL        time.Duration `yaml:"cart_ttl"`
	SessionIdleTTL time.Duration `yaml:"session_idle_ttl"`
	MongoURI       string        `yaml:"mongo_uri"`
	MongoDBName    string        `yaml:"mongo_db_name"`
	KafkaBrokers   []string      `yaml:"kafka_brokers"`
	KafkaTopic     string        `yaml:"kafka_topic"`

	OrderTimeout    time.Duration `yaml:"order_timeout"`
	AddressTimeout  time.Duration `yaml:"address_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	// WriteTimeout is the server write deadline. Zero derives it from the
	// request and collaborator timeouts.
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	MongoMaxPoolSize uint64 `yaml:"mongo_max_pool_size"`
	MongoMinPoolSize uint64 `yaml:"mongo_min_pool_size"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func Default() Config {
	return Config{
		HTTPPort:         "8080",
		APIBaseURL:       "http://localhost:3000",
		StorageBackend:   BackendMemory,
		RedisAddr:        "localhost:6379",
		CartTTL:          30 * 24 * time.Hour,
		SessionIdleTTL:   30 * time.Minute,
		MongoURI:         "mongodb://localhost:27017",
		MongoDBName:      "storefront",
		KafkaTopic:       "order-placed",
		OrderTimeout:     15 * time.Second,
		AddressTimeout:   10 * time.Second,
		RequestTimeout:   30 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		MongoMaxPoolSize: 100,
		MongoMinPoolSize: 10,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// Load builds the config. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = cfg.MinWriteTimeout()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.APIBaseURL = getEnv("API_BASE_URL", cfg.APIBaseURL)
	cfg.StorageBackend = getEnv("STORAGE_BACKEND", cfg.StorageBackend)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDBName = getEnv("MONGO_DB_NAME", cfg.MongoDBName)
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = splitList(v)
	}

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"CART_TTL", &cfg.CartTTL},
		{"SESSION_IDLE_TTL", &cfg.SessionIdleTTL},
		{"ORDER_TIMEOUT", &cfg.OrderTimeout},
		{"ADDRESS_TIMEOUT", &cfg.AddressTimeout},
		{"REQUEST_TIMEOUT", &cfg.RequestTimeout},
		{"WRITE_TIMEOUT", &cfg.WriteTimeout},
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout},
	} {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, v, err)
		}
		*d.dst = parsed
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory, BackendRedis, BackendMongo:
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("api base url is required")
	}
	if c.OrderTimeout <= 0 || c.AddressTimeout <= 0 {
		return fmt.Errorf("collaborator timeouts must be positive")
	}
	if c.RequestTimeout < c.checkoutBudget() {
		return fmt.Errorf("request timeout %s is shorter than address plus order timeout %s", c.RequestTimeout, c.checkoutBudget())
	}
	if c.WriteTimeout < c.MinWriteTimeout() {
		return fmt.Errorf("write timeout %s must be at least %s", c.WriteTimeout, c.MinWriteTimeout())
	}
	if c.MongoMinPoolSize > c.MongoMaxPoolSize {
		return fmt.Errorf("mongo min pool size %d exceeds max %d", c.MongoMinPoolSize, c.MongoMaxPoolSize)
	}
	return nil
}

// checkoutBudget is the longest a checkout waits on collaborators: an
// address save followed by the order submission.
func (c *Config) checkoutBudget() time.Duration {
	return c.AddressTimeout + c.OrderTimeout
}

// MinWriteTimeout lets the response of the slowest allowed request still be
// written.
func (c *Config) MinWriteTimeout() time.Duration {
	longest := c.RequestTimeout
	if b := c.checkoutBudget(); b > longest {
		longest = b
	}
	return longest + writeMargin
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
