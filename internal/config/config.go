package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Generation GenerationConfig `mapstructure:"generation"`
	Suggest    SuggestConfig    `mapstructure:"suggest"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
}

// APIConfig holds backend REST API settings
type APIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Token          string `mapstructure:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// GenerationConfig holds theme generation settings
type GenerationConfig struct {
	DefaultQuantity  int `mapstructure:"default_quantity"`
	MinContentLength int `mapstructure:"min_content_length"`
}

// SuggestConfig holds source URL suggestion settings
type SuggestConfig struct {
	MaxAgeDays   int `mapstructure:"max_age_days"`
	DefaultLimit int `mapstructure:"default_limit"`
}

// SchedulerConfig holds scheduler daemon settings
type SchedulerConfig struct {
	GenerationCron  string `mapstructure:"generation_cron"`
	StatusPollCron  string `mapstructure:"status_poll_cron"`
	GenerationCount int    `mapstructure:"generation_count"`
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	APIRequestsPerSecond   float64 `mapstructure:"api_requests_per_second"`
	CrawlRequestsPerSecond float64 `mapstructure:"crawl_requests_per_second"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// DatabaseConfig holds local run-journal settings
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ServerConfig holds the scheduler's embedded status server settings
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".theme-agent"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("THEME_AGENT")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("api.base_url", "THEME_AGENT_API_BASE_URL")
	v.BindEnv("api.token", "THEME_AGENT_API_TOKEN")
	v.BindEnv("database.dsn", "THEME_AGENT_DATABASE_DSN")
	v.BindEnv("logging.level", "THEME_AGENT_LOGGING_LEVEL")
	v.BindEnv("scheduler.generation_cron", "THEME_AGENT_SCHEDULER_GENERATION_CRON")
	v.BindEnv("scheduler.status_poll_cron", "THEME_AGENT_SCHEDULER_STATUS_POLL_CRON")
	v.BindEnv("server.port", "THEME_AGENT_SERVER_PORT")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.timeout_seconds", 60)

	// Generation defaults
	v.SetDefault("generation.default_quantity", 5)
	v.SetDefault("generation.min_content_length", 50)

	// Suggest defaults
	v.SetDefault("suggest.max_age_days", 7)
	v.SetDefault("suggest.default_limit", 10)

	// Scheduler defaults
	v.SetDefault("scheduler.generation_cron", "0 6 * * *")    // 6am daily
	v.SetDefault("scheduler.status_poll_cron", "*/5 * * * *") // every 5 minutes
	v.SetDefault("scheduler.generation_count", 5)

	// Rate limit defaults
	v.SetDefault("rate_limit.api_requests_per_second", 10.0)
	v.SetDefault("rate_limit.crawl_requests_per_second", 1.0)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")

	// Database defaults
	v.SetDefault("database.dsn", "./data/theme-agent.db")

	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", "9090")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Token == "" {
		return fmt.Errorf("api.token is required")
	}
	return nil
}
