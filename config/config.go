package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Search    SearchConfig    `mapstructure:"search"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	OpenFDA   OpenFDAConfig   `mapstructure:"openfda"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required,numeric"`
	Environment     string        `mapstructure:"environment" validate:"oneof=development test production"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// StoreConfig selects the product repository
type StoreConfig struct {
	Driver  string        `mapstructure:"driver" validate:"oneof=memory sqlite postgres"`
	DSN     string        `mapstructure:"dsn"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the product store
type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold uint32        `mapstructure:"failure_threshold" validate:"min=1"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Interval         time.Duration `mapstructure:"interval" validate:"gte=0"`
	MaxRequests      uint32        `mapstructure:"max_requests" validate:"min=1"`
}

// SearchConfig holds the optional Meilisearch candidate index configuration
type SearchConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url" validate:"required_if=Enabled true,omitempty,url"`
	APIKey        string `mapstructure:"api_key"`
	Index         string `mapstructure:"index" validate:"required"`
	BackfillBatch int    `mapstructure:"backfill_batch" validate:"min=1,max=10000"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type            string        `mapstructure:"type" validate:"oneof=memory none"`
	TTL             time.Duration `mapstructure:"ttl" validate:"gt=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gt=0"`
}

// MatchingConfig holds duplicate matching configuration
type MatchingConfig struct {
	Threshold         float64 `mapstructure:"threshold" validate:"gt=0,lte=1"`
	Limit             int     `mapstructure:"limit" validate:"min=1"`
	CandidatePoolSize int     `mapstructure:"candidate_pool_size" validate:"min=1"`
	MaxBatchPool      int     `mapstructure:"max_batch_pool" validate:"min=1"`
	MaxBatchSize      int     `mapstructure:"max_batch_size" validate:"min=1"`
	BatchConcurrency  int     `mapstructure:"batch_concurrency" validate:"min=1,max=64"`
	DebugLogging      bool    `mapstructure:"debug_logging"`
}

// OpenFDAConfig holds recall feed configuration
type OpenFDAConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url" validate:"required,url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip" validate:"gte=0"` // requests per minute, 0 disables
	Burst int `mapstructure:"burst" validate:"gte=0"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/verdict/")

	// VERDICT_STORE_DSN -> store.dsn
	v.SetEnvPrefix("VERDICT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default so AutomaticEnv can see it during Unmarshal
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
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
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Store defaults
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.breaker.enabled", true)
	v.SetDefault("store.breaker.failure_threshold", 5)
	v.SetDefault("store.breaker.timeout", "10s")
	v.SetDefault("store.breaker.interval", "30s")
	v.SetDefault("store.breaker.max_requests", 3)

	// Search defaults
	v.SetDefault("search.enabled", false)
	v.SetDefault("search.url", "")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.index", "products")
	v.SetDefault("search.backfill_batch", 500)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("cache.cleanup_interval", "10m")

	// Matching defaults
	v.SetDefault("matching.threshold", 0.7)
	v.SetDefault("matching.limit", 5)
	v.SetDefault("matching.candidate_pool_size", 50)
	v.SetDefault("matching.max_batch_pool", 1000)
	v.SetDefault("matching.max_batch_size", 100)
	v.SetDefault("matching.batch_concurrency", 4)
	v.SetDefault("matching.debug_logging", false)

	// openFDA defaults
	v.SetDefault("openfda.enabled", false)
	v.SetDefault("openfda.api_key", "")
	v.SetDefault("openfda.base_url", "https://api.fda.gov")
	v.SetDefault("openfda.cache_ttl", "15m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 120)
	v.SetDefault("ratelimit.burst", 20)
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// validate validates the configuration
func validate(config *Config) error {
	if err := configValidator.Struct(config); err != nil {
		return describe(err)
	}

	if config.Store.Driver != "memory" && strings.TrimSpace(config.Store.DSN) == "" {
		return fmt.Errorf("store DSN is required for driver %q (set VERDICT_STORE_DSN)", config.Store.Driver)
	}

	if config.Matching.MaxBatchPool < config.Matching.CandidatePoolSize {
		return fmt.Errorf("matching.max_batch_pool (%d) must be at least matching.candidate_pool_size (%d)",
			config.Matching.MaxBatchPool, config.Matching.CandidatePoolSize)
	}

	return nil
}

// describe turns validator errors into one readable message
func describe(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// Config.Store.Breaker.Timeout -> Store.Breaker.Timeout
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			messages = append(messages, fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			messages = append(messages, fmt.Sprintf("%s failed %s (got %v)", field, fe.Tag(), fe.Value()))
		}
	}
	return errors.New(strings.Join(messages, "; "))
}
