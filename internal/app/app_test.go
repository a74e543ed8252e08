package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paddlecast/internal/artifact"
	"paddlecast/internal/config"
	"paddlecast/internal/forecast"
	"paddlecast/internal/storage"
)

func testApp(t *testing.T, out *bytes.Buffer) *App {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  path: "+filepath.Join(t.TempDir(), "data.json")+"\n"), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	a := NewApp(cfg, zerolog.Nop())
	a.Out = out
	return a
}

func publishSample(t *testing.T, path string) artifact.Document {
	t.Helper()
	loc := time.FixedZone("PDT", -7*3600)
	day := time.Date(2025, 8, 7, 0, 0, 0, 0, loc)
	gust := 5.2
	var tides []forecast.TidePoint
	for i := 0; i < 96; i++ {
		tides = append(tides, forecast.TidePoint{Time: day.Add(time.Duration(i) * 15 * time.Minute), HeightFt: 2 + float64(i%24)/10})
	}
	var hours []forecast.HourlyWeather
	for h := 0; h < 24; h++ {
		hours = append(hours, forecast.HourlyWeather{Hour: day.Add(time.Duration(h) * time.Hour), WindMph: float64(h % 7)})
	}
	days := []forecast.Day{{
		Date:       day,
		TidePoints: tides,
		Windows: []forecast.Window{
			{Start: day.Add(7 * time.Hour), End: day.Add(9 * time.Hour), AvgTideFt: 3.1, AvgWindMph: 2.1, Conditions: "Sunny, calm winds (2 mph)", Score: 5},
			{Start: day.Add(15 * time.Hour), End: day.Add(16 * time.Hour), AvgTideFt: 2.7, AvgWindMph: 6.4, AvgWindGustMph: &gust, Conditions: "Breezy,\nbreezy (6 mph)", Score: 3.5},
		},
		WeatherPoints: hours,
	}}
	doc := artifact.Build(artifact.Meta{
		GeneratedAt:   day.Add(6 * time.Hour),
		Location:      "Morro Bay Estuary",
		Config:        forecast.RunConfig{MinTideFt: 2.5, MinDurationMin: 60, WindowBlockMin: 120},
		WeatherSource: "nws",
	}, days)
	_, err := artifact.NewWriter(path, false, false).Write(doc)
	require.NoError(t, err)
	return doc
}

func TestShowRendersWindows(t *testing.T) {
	var out bytes.Buffer
	a := testApp(t, &out)
	publishSample(t, a.Config.Output.Path)

	require.NoError(t, a.Show(context.Background(), ShowOptions{}))
	text := out.String()
	assert.Contains(t, text, "Morro Bay Estuary")
	assert.Contains(t, text, "07:00-09:00")
	assert.Contains(t, text, "15:00-16:00")
	assert.Contains(t, text, "Breezy, breezy (6 mph)")

	out.Reset()
	require.NoError(t, a.Show(context.Background(), ShowOptions{MinScore: 4}))
	assert.NotContains(t, out.String(), "15:00-16:00")

	out.Reset()
	require.NoError(t, a.Show(context.Background(), ShowOptions{Date: "2025-08-09"}))
	assert.Contains(t, out.String(), "no windows found")
}

func TestShowFromDBWithoutDatabase(t *testing.T) {
	var out bytes.Buffer
	a := testApp(t, &out)
	require.Error(t, a.Show(context.Background(), ShowOptions{FromDB: true}))
	require.Error(t, a.Show(context.Background(), ShowOptions{Runs: true, Limit: 5}))
}

func TestRenderRuns(t *testing.T) {
	var out bytes.Buffer
	source := "nws"
	msg := "fetch tides:\nnoaa fetch failed"
	start := time.Date(2025, 8, 7, 14, 0, 0, 0, time.UTC)
	require.NoError(t, renderRuns(&out, []storage.RunRecord{
		{StartedAt: start, FinishedAt: start.Add(2 * time.Second), Status: storage.RunStatusPublished, WeatherSource: &source, WindowCount: 3},
		{StartedAt: start.Add(-time.Hour), FinishedAt: start.Add(-time.Hour), Status: storage.RunStatusFailed, Error: &msg},
	}))
	text := out.String()
	assert.Contains(t, text, "2025-08-07T14:00:00Z")
	assert.Contains(t, text, "fetch tides: noaa fetch failed")

	out.Reset()
	require.NoError(t, renderRuns(&out, nil))
	assert.Equal(t, "no runs found\n", out.String())
}

func TestExportWritesCSVAndPNG(t *testing.T) {
	var out bytes.Buffer
	a := testApp(t, &out)
	publishSample(t, a.Config.Output.Path)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out", "windows.csv")
	pngPath := filepath.Join(dir, "out", "tide.png")
	require.NoError(t, a.Export(context.Background(), ExportOptions{CSVPath: csvPath, PNGPath: pngPath}))

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "avg_tide_ft", rows[0][3])
	assert.Equal(t, []string{"2025-08-07", "2025-08-07T07:00:00-07:00", "2025-08-07T09:00:00-07:00", "3.1", "2.1", "", "5", "Sunny, calm winds (2 mph)"}, rows[1])
	assert.Equal(t, "5.2", rows[2][5])

	png, err := os.ReadFile(pngPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestExportRequiresTarget(t *testing.T) {
	var out bytes.Buffer
	a := testApp(t, &out)
	require.Error(t, a.Export(context.Background(), ExportOptions{}))
}

func TestExportUnknownDate(t *testing.T) {
	var out bytes.Buffer
	a := testApp(t, &out)
	publishSample(t, a.Config.Output.Path)
	err := a.Export(context.Background(), ExportOptions{PNGPath: filepath.Join(t.TempDir(), "x.png"), Date: "2030-01-01"})
	require.Error(t, err)
}

func TestScorePrintsAppliedRules(t *testing.T) {
	var out bytes.Buffer
	a := testApp(t, &out)
	gust := 7.0

	require.NoError(t, a.Score(ScoreOptions{WindMph: 3, GustMph: &gust, TempF: 52, Forecasts: []string{"Light Rain"}, PrecipProbs: []float64{40}}))
	text := out.String()
	// 3.0 + 1.2 - 0.5 - 1.0 - 0.5 = 2.2, quantised to 2.0.
	assert.Contains(t, text, "score: 2.0")
	assert.Contains(t, text, "raw: 2.2")
	assert.Contains(t, text, "Light Rain, light winds (3 mph)")
	assert.True(t, strings.Contains(text, "precipitation"))

	out.Reset()
	require.NoError(t, a.Score(ScoreOptions{WindMph: 12, TempF: 70}))
	assert.Contains(t, out.String(), "gated by: wind_gate")
}
