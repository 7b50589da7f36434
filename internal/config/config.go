package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Document store
	StoreURI        string        `envconfig:"STORE_URI" default:"mongodb://localhost:27017/"`
	DatabaseName    string        `envconfig:"DATABASE_NAME" default:"betlab"`
	MatchCollection string        `envconfig:"MATCH_COLLECTION" default:"matches"`
	StoreTimeout    time.Duration `envconfig:"STORE_TIMEOUT" default:"10s"`

	// Shard discovery
	ShardDir  string `envconfig:"SHARD_DIR" default:"./data"`
	ShardGlob string `envconfig:"SHARD_GLOB" default:"matches_part*.json.gz"`

	// Ingestion
	Concurrency         int `envconfig:"INGEST_CONCURRENCY" default:"1"`
	MaxConsecutiveFails int `envconfig:"MAX_CONSECUTIVE_STORE_FAILURES" default:"3"`

	// Redis shard-marker cache (optional)
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	CacheEnabled  bool   `envconfig:"CACHE_ENABLED" default:"true"`
	CacheTTLShard int    `envconfig:"CACHE_TTL_SHARDS" default:"604800"` // 7 days

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Scheduler (worker only)
	EnableScheduler bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	IngestCron      string `envconfig:"INGEST_CRON" default:"0 3 * * *"`
	RunOnStart      bool   `envconfig:"RUN_ON_START" default:"true"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from a .env file if one is present
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.StoreURI == "" {
		return fmt.Errorf("STORE_URI is required")
	}

	if c.DatabaseName == "" {
		return fmt.Errorf("DATABASE_NAME is required")
	}

	if c.Concurrency < 1 {
		return fmt.Errorf("INGEST_CONCURRENCY must be at least 1, got %d", c.Concurrency)
	}

	if c.MaxConsecutiveFails < 1 {
		return fmt.Errorf("MAX_CONSECUTIVE_STORE_FAILURES must be at least 1, got %d", c.MaxConsecutiveFails)
	}

	return nil
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or exits on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
