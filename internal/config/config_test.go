package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paddlecast/internal/forecast"
	"paddlecast/internal/scoring"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: paddlecast\n"))
	require.NoError(t, err)

	assert.Equal(t, "Morro Bay Estuary", cfg.Location.Name)
	assert.Equal(t, "9412110", cfg.Location.TideStationID)
	assert.Equal(t, 2.5, cfg.Thresholds.MinTideFt)
	assert.Equal(t, 7, cfg.Thresholds.DaysAhead)
	assert.Equal(t, []string{"nws", "open-meteo"}, cfg.Sources.WeatherProviders)
	assert.Equal(t, 30*time.Second, cfg.Sources.Timeout)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, "data/data.json", cfg.Output.Path)
	assert.False(t, cfg.Database.Enabled())

	rc := cfg.RunConfig()
	assert.Equal(t, forecast.RunConfig{MinTideFt: 2.5, MinDurationMin: 60, WindowBlockMin: 120, DaylightBufferMin: 30, DaylightOnly: true}, rc)

	table, err := cfg.ScoringTable()
	require.NoError(t, err)
	def := scoring.DefaultTable()
	assert.True(t, def.Base.Equal(table.Base))
	require.Len(t, table.WindBands, len(def.WindBands))
	for i := range def.WindBands {
		assert.Equal(t, def.WindBands[i].Below, table.WindBands[i].Below)
		assert.True(t, def.WindBands[i].Points.Equal(table.WindBands[i].Points), "wind band %d", i)
	}
	require.Len(t, table.GustPenalties, 2)
	assert.True(t, table.GustPenalties[0].Points.Equal(decimal.RequireFromString("-0.5")))
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	t.Setenv("PADDLECAST_THRESHOLDS_MIN_TIDE_FT", "3.1")
	t.Setenv("PADDLECAST_SOURCES_WEATHER_PROVIDERS", "open-meteo")

	path := writeConfig(t, `
location:
  name: Elkhorn Slough
  lat: 36.81
  lon: -121.78
  tide_station_id: "9413450"
scheduler:
  interval: 30m
scoring:
  wind_bands:
    - below: 3
      points: 1.5
    - below: 0
      points: 0.5
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Elkhorn Slough", cfg.Location.Name)
	assert.Equal(t, 3.1, cfg.Thresholds.MinTideFt)
	assert.Equal(t, []string{"open-meteo"}, cfg.Sources.WeatherProviders)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)

	table, err := cfg.ScoringTable()
	require.NoError(t, err)
	require.Len(t, table.WindBands, 2)
	assert.True(t, table.WindBands[0].Points.Equal(decimal.RequireFromString("1.5")))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateReportsFieldPaths(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"negative tide", "thresholds:\n  min_tide_ft: -1\n", "thresholds.min_tide_ft"},
		{"unknown provider", "sources:\n  weather_providers: [nws, darksky]\n", "sources.weather_providers[1]"},
		{"bad timezone", "location:\n  timezone: Mars/Olympus\n", "location.timezone"},
		{"latitude range", "location:\n  lat: 95\n", "location.lat"},
		{"bad log level", "logging:\n  level: loud\n", "logging.level"},
		{"telegram without token", "alerting:\n  enabled: true\n  telegram:\n    enabled: true\n    chat_id: \"42\"\n", "alerting.telegram.bot_token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			var cfgErr *forecast.ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %T: %v", err, err)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestValidateRejectsUnorderedBands(t *testing.T) {
	_, err := Load(writeConfig(t, `
scoring:
  temp_bands:
    - below: 55
      points: -0.5
    - below: 45
      points: -1.5
`))
	var cfgErr *forecast.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "scoring", cfgErr.Field)
}
