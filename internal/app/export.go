package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"paddlecast/internal/artifact"
)

// ExportOptions hold parameters for exporting the published forecast.
type ExportOptions struct {
	FromDB  bool
	Path    string
	Date    string
	PNGPath string
	CSVPath string
}

// Export renders the artifact's windows as CSV and one day's tide curve as a
// PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	doc, err := a.loadDocument(ctx, opts.FromDB, opts.Path)
	if err != nil {
		return err
	}
	if len(doc.Days) == 0 {
		a.Logger.Info().Msg("artifact has no days to export")
		return nil
	}

	if opts.CSVPath != "" {
		if err := writeWindowsCSV(opts.CSVPath, doc, opts.Date); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.CSVPath).Msg("windows exported")
	}

	if opts.PNGPath != "" {
		day, err := pickDay(doc, opts.Date)
		if err != nil {
			return err
		}
		if err := writeDayPNG(opts.PNGPath, day, doc.Settings.MinTideFt); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.PNGPath).Str("date", day.Date).Msg("chart exported")
	}

	return nil
}

func pickDay(doc artifact.Document, date string) (artifact.Day, error) {
	if date == "" {
		return doc.Days[0], nil
	}
	for _, d := range doc.Days {
		if d.Date == date {
			return d, nil
		}
	}
	return artifact.Day{}, fmt.Errorf("date %s not in artifact", date)
}

func writeWindowsCSV(path string, doc artifact.Document, date string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"date", "start", "end", "avg_tide_ft", "avg_wind_mph", "avg_wind_gust_mph", "score", "conditions"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, day := range doc.Days {
		if date != "" && day.Date != date {
			continue
		}
		for _, w := range day.Windows {
			gust := ""
			if w.AvgWindGustMph != nil {
				gust = formatFloat(*w.AvgWindGustMph)
			}
			record := []string{
				day.Date,
				w.Start,
				w.End,
				formatFloat(w.AvgTideFt),
				formatFloat(w.AvgWindMph),
				gust,
				formatFloat(w.Score),
				w.Conditions,
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

var windowColor = drawing.ColorFromHex("2ca02c")

func writeDayPNG(path string, day artifact.Day, minTide float64) error {
	if len(day.TidePoints) < 2 {
		return fmt.Errorf("day %s has too few tide points to chart", day.Date)
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, 0, len(day.TidePoints))
	heights := make([]float64, 0, len(day.TidePoints))
	for _, p := range day.TidePoints {
		t, err := time.Parse(time.RFC3339, p.Time)
		if err != nil {
			return fmt.Errorf("tide point time: %w", err)
		}
		x = append(x, t)
		heights = append(heights, p.HeightFt)
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name:    "Tide (ft)",
			XValues: x,
			YValues: heights,
		},
		chart.TimeSeries{
			Name:    fmt.Sprintf("Min tide %.1f ft", minTide),
			XValues: []time.Time{x[0], x[len(x)-1]},
			YValues: []float64{minTide, minTide},
			Style:   chart.Style{StrokeColor: chart.ColorRed, StrokeDashArray: []float64{5, 5}},
		},
	}

	var windX []time.Time
	var wind []float64
	for _, wp := range day.WeatherPoints {
		t, err := time.Parse(time.RFC3339, wp.Time)
		if err != nil {
			continue
		}
		windX = append(windX, t)
		wind = append(wind, wp.WindMph)
	}
	if len(windX) >= 2 {
		series = append(series, chart.TimeSeries{
			Name:    "Wind (mph)",
			XValues: windX,
			YValues: wind,
			YAxis:   chart.YAxisSecondary,
			Style:   chart.Style{StrokeColor: chart.ColorBlue.WithAlpha(128)},
		})
	}

	for _, w := range day.Windows {
		start, err1 := time.Parse(time.RFC3339, w.Start)
		end, err2 := time.Parse(time.RFC3339, w.End)
		if err1 != nil || err2 != nil {
			continue
		}
		series = append(series, chart.TimeSeries{
			Name:    fmt.Sprintf("%s-%s score %.1f", start.Format("15:04"), end.Format("15:04"), w.Score),
			XValues: []time.Time{start, end},
			YValues: []float64{w.AvgTideFt, w.AvgTideFt},
			Style:   chart.Style{StrokeColor: windowColor, StrokeWidth: 8},
		})
	}

	heightFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f")
	}
	graph := chart.Chart{
		Title:  "Tide windows " + day.Date,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeHourValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Tide (ft MLLW)",
			ValueFormatter: heightFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Wind (mph)",
			ValueFormatter: heightFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
