package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/floodwatch/waterpoint-prioritiser/internal/domain"
)

// Config holds the full application configuration, populated from
// config.yaml and PRIORITISER_* environment variables.
type Config struct {
	Elevation ElevationConfig `mapstructure:"elevation"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Enrich    EnrichConfig    `mapstructure:"enrich"`
	Tiering   TieringConfig   `mapstructure:"tiering"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Log       LogConfig       `mapstructure:"log"`
}

// ElevationConfig configures the terrain elevation provider.
type ElevationConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	BaseURL     string  `mapstructure:"base_url"`
	Dataset     string  `mapstructure:"dataset"`
	TimeoutSecs int     `mapstructure:"timeout_secs"`
	CacheSize   int     `mapstructure:"cache_size"`
	RatePerSec  float64 `mapstructure:"rate_per_sec"`
}

// Timeout returns the per-request timeout as a duration.
func (c ElevationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// AnthropicConfig configures the vulnerability reasoning model. The key is
// injected here at construction; nothing reads it from ambient state later.
type AnthropicConfig struct {
	Key        string  `mapstructure:"key"`
	Model      string  `mapstructure:"model"`
	MaxTokens  int64   `mapstructure:"max_tokens"`
	RatePerSec float64 `mapstructure:"rate_per_sec"`
}

// EnrichConfig configures the enrichment collector.
type EnrichConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	CachePath   string `mapstructure:"cache_path"` // sqlite file; empty disables the persistent cache
}

// TieringConfig carries the tier thresholds. A zero CurrentYear means
// "use the wall-clock year".
type TieringConfig struct {
	HighPopulation int `mapstructure:"high_population"`
	MinPopulation  int `mapstructure:"min_population"`
	AgeYears       int `mapstructure:"age_years"`
	CurrentYear    int `mapstructure:"current_year"`
}

// Thresholds converts the config values into domain thresholds.
func (c TieringConfig) Thresholds() domain.Thresholds {
	th := domain.DefaultThresholds()
	th.HighPopulation = c.HighPopulation
	th.MinPopulation = c.MinPopulation
	th.AgeYears = c.AgeYears
	if c.CurrentYear != 0 {
		th.CurrentYear = c.CurrentYear
	}
	return th
}

// KafkaConfig configures the optional tiered-record sink topic.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// MonitorConfig configures the health/metrics HTTP server. An empty
// address disables it.
type MonitorConfig struct {
	Addr            string `mapstructure:"addr"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional) and the
// environment, applying defaults where unset, then validates.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PRIORITISER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("elevation.enabled", true)
	v.SetDefault("elevation.base_url", "https://api.opentopodata.org/v1")
	v.SetDefault("elevation.dataset", "srtm90m")
	v.SetDefault("elevation.timeout_secs", 5)
	v.SetDefault("elevation.cache_size", 1000)
	v.SetDefault("elevation.rate_per_sec", 1)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 256)
	v.SetDefault("anthropic.rate_per_sec", 2)
	v.SetDefault("enrich.concurrency", 4)
	v.SetDefault("enrich.cache_path", "")
	v.SetDefault("tiering.high_population", 2500)
	v.SetDefault("tiering.min_population", 1000)
	v.SetDefault("tiering.age_years", 25)
	v.SetDefault("tiering.current_year", 0)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "tiered-waterpoints")
	v.SetDefault("monitor.addr", "")
	v.SetDefault("monitor.shutdown_timeout_secs", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings every command depends on. Provider credentials
// are checked separately by ValidateEnrichment so tier-only runs do not
// need an API key.
func (c *Config) Validate() error {
	if err := c.Tiering.Thresholds().Validate(); err != nil {
		return fmt.Errorf("tiering config: %w", err)
	}
	if c.Enrich.Concurrency <= 0 {
		return errors.New("enrich.concurrency must be positive")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("kafka.enabled is true but kafka.brokers is empty")
		}
		if c.Kafka.Topic == "" {
			return errors.New("kafka.enabled is true but kafka.topic is not set")
		}
	}
	return nil
}

// ValidateEnrichment checks the settings the live enrichment collector
// needs.
func (c *Config) ValidateEnrichment() error {
	if c.Anthropic.Key == "" {
		return errors.New("anthropic.key is required for enrichment (PRIORITISER_ANTHROPIC_KEY)")
	}
	if c.Anthropic.Model == "" {
		return errors.New("anthropic.model is not set")
	}
	if c.Elevation.Enabled {
		if c.Elevation.BaseURL == "" {
			return errors.New("elevation.enabled is true but elevation.base_url is not set")
		}
		if c.Elevation.Timeout() <= 0 {
			return errors.New("elevation.timeout_secs must be positive")
		}
	}
	return nil
}
