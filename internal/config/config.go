// Package config loads the application configuration from a YAML file and
// PAGEWEIGHT_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/fluxbase-eu/pageweight/internal/observability"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig               `mapstructure:"server"`
	CORS     CORSConfig                 `mapstructure:"cors"`
	Fetch    FetchConfig                `mapstructure:"fetch"`
	Analyzer AnalyzerConfig             `mapstructure:"analyzer"`
	Tracing  observability.TracerConfig `mapstructure:"tracing"`
	Debug    bool                       `mapstructure:"debug"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	BodyLimit    int           `mapstructure:"body_limit"`
}

// CORSConfig contains cross-origin settings for the analysis API
type CORSConfig struct {
	AllowedOrigins string `mapstructure:"allowed_origins"`
	AllowedMethods string `mapstructure:"allowed_methods"`
	AllowedHeaders string `mapstructure:"allowed_headers"`
}

// FetchConfig contains settings for remote asset fetching and measurement
type FetchConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
}

// AnalyzerConfig contains tuning knobs for the analysis pipeline
type AnalyzerConfig struct {
	// PageConcurrency bounds concurrent per-page aggregation.
	PageConcurrency int `mapstructure:"page_concurrency"`
	// TraversalBatchSize is the canvas traversal wave size.
	TraversalBatchSize int `mapstructure:"traversal_batch_size"`
	// TraversalConcurrency bounds outstanding tree API calls per wave.
	TraversalConcurrency int `mapstructure:"traversal_concurrency"`
	// MaxTraversalDepth caps tree descent.
	MaxTraversalDepth int `mapstructure:"max_traversal_depth"`
}

// Load reads the configuration from file, environment and defaults.
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	viper.SetConfigName("pageweight")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/pageweight")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PAGEWEIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Info().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Info().Str("file", viper.ConfigFileUsed()).Msg("Config file loaded")
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads environment variables from a .env file
func loadEnvFile() error {
	locations := []string{
		".env",
		".env.local",
		"../.env", // For when running from subdirectories
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Info().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}

	return fmt.Errorf("no .env file found")
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "120s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.body_limit", 32*1024*1024) // 32MB snapshots

	// CORS defaults
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("cors.allowed_methods", "GET,POST,PUT,DELETE,OPTIONS")
	viper.SetDefault("cors.allowed_headers", "Origin,Content-Type,Accept,X-Request-ID")

	// Fetch defaults
	viper.SetDefault("fetch.timeout", "5s")
	viper.SetDefault("fetch.user_agent", "pageweight/1.0")
	viper.SetDefault("fetch.requests_per_second", 10.0)
	viper.SetDefault("fetch.max_body_bytes", 10*1024*1024)

	// Analyzer defaults
	viper.SetDefault("analyzer.page_concurrency", 4)
	viper.SetDefault("analyzer.traversal_batch_size", 10)
	viper.SetDefault("analyzer.traversal_concurrency", 4)
	viper.SetDefault("analyzer.max_traversal_depth", 100)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "localhost:4317")
	viper.SetDefault("tracing.service_name", "pageweight")
	viper.SetDefault("tracing.environment", "development")
	viper.SetDefault("tracing.sample_rate", 1.0)
	viper.SetDefault("tracing.insecure", true)

	viper.SetDefault("debug", false)
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	if c.Fetch.RequestsPerSecond <= 0 {
		return fmt.Errorf("fetch.requests_per_second must be positive")
	}
	if c.Analyzer.PageConcurrency <= 0 {
		return fmt.Errorf("analyzer.page_concurrency must be positive")
	}
	if c.Analyzer.MaxTraversalDepth <= 0 {
		return fmt.Errorf("analyzer.max_traversal_depth must be positive")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0 and 1")
	}
	return nil
}
