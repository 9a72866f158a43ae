package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Elevation.Enabled)
	assert.Equal(t, "https://api.opentopodata.org/v1", cfg.Elevation.BaseURL)
	assert.Equal(t, "srtm90m", cfg.Elevation.Dataset)
	assert.Equal(t, 1000, cfg.Elevation.CacheSize)
	assert.Equal(t, 4, cfg.Enrich.Concurrency)
	assert.Equal(t, 2500, cfg.Tiering.HighPopulation)
	assert.Equal(t, 1000, cfg.Tiering.MinPopulation)
	assert.Equal(t, 25, cfg.Tiering.AgeYears)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PRIORITISER_TIERING_HIGH_POPULATION", "4000")
	t.Setenv("PRIORITISER_TIERING_CURRENT_YEAR", "2024")
	t.Setenv("PRIORITISER_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Tiering.HighPopulation)
	assert.Equal(t, 2024, cfg.Tiering.CurrentYear)
	assert.Equal(t, "debug", cfg.Log.Level)

	th := cfg.Tiering.Thresholds()
	assert.Equal(t, 4000, th.HighPopulation)
	assert.Equal(t, 2024, th.CurrentYear)
}

func TestLoad_InvalidThresholds(t *testing.T) {
	t.Setenv("PRIORITISER_TIERING_HIGH_POPULATION", "100")
	t.Setenv("PRIORITISER_TIERING_MIN_POPULATION", "500")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tiering config")
}

func TestTieringConfig_Thresholds_DefaultYear(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	// current_year defaults to 0, meaning "use the wall-clock year".
	th := cfg.Tiering.Thresholds()
	assert.GreaterOrEqual(t, th.CurrentYear, 2025)
}

func TestValidate_Kafka(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Kafka.Enabled = true
	cfg.Kafka.Topic = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka.topic")

	cfg.Kafka.Topic = "tiered-waterpoints"
	cfg.Kafka.Brokers = nil
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka.brokers")
}

func TestValidateEnrichment(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.ValidateEnrichment()
	require.Error(t, err, "no API key configured in tests")
	assert.Contains(t, err.Error(), "anthropic.key")

	cfg.Anthropic.Key = "sk-test"
	require.NoError(t, cfg.ValidateEnrichment())

	cfg.Elevation.BaseURL = ""
	assert.Error(t, cfg.ValidateEnrichment())
}
