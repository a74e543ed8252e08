// Package artifact renders assembled days into the published JSON document
// and writes it atomically.
package artifact

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"paddlecast/internal/forecast"
)

// Document is the published forecast. Optional values are emitted as null
// so the frontend sees a fixed shape.
type Document struct {
	GeneratedAt        string   `json:"generated_at"`
	Location           string   `json:"location"`
	Settings           Settings `json:"settings"`
	WeatherSource      string   `json:"weather_source"`
	ShortForecastsSeen []string `json:"short_forecasts_seen"`
	Days               []Day    `json:"days"`
}

// Settings echoes the thresholds the document was built with.
type Settings struct {
	MinTideFt      float64 `json:"min_tide_ft"`
	MinDurationMin int     `json:"min_duration_min"`
	WindowBlockMin int     `json:"window_block_min"`
}

// Day is one local calendar date.
type Day struct {
	Date          string         `json:"date"`
	Sunrise       *string        `json:"sunrise"`
	Sunset        *string        `json:"sunset"`
	Moonrise      *string        `json:"moonrise"`
	Moonset       *string        `json:"moonset"`
	MoonPhase     *float64       `json:"moon_phase"`
	TidePoints    []TidePoint    `json:"tide_points"`
	Windows       []Window       `json:"windows"`
	WeatherPoints []WeatherPoint `json:"weather_points"`
}

// TidePoint is one tide sample.
type TidePoint struct {
	Time     string  `json:"time"`
	HeightFt float64 `json:"height_ft"`
}

// Window is one scored window.
type Window struct {
	Start          string   `json:"start"`
	End            string   `json:"end"`
	AvgTideFt      float64  `json:"avg_tide_ft"`
	AvgWindMph     float64  `json:"avg_wind_mph"`
	AvgWindGustMph *float64 `json:"avg_wind_gust_mph"`
	Conditions     string   `json:"conditions"`
	Score          float64  `json:"score"`
}

// WeatherPoint is one local hour of the day's forecast.
type WeatherPoint struct {
	Time         string   `json:"time"`
	WindMph      float64  `json:"wind_mph"`
	WindGustMph  *float64 `json:"wind_gust_mph"`
	WindDir      *string  `json:"wind_dir"`
	TemperatureF *float64 `json:"temperature_f"`
	Condition    string   `json:"condition"`
	Icon         *string  `json:"icon"`
}

// Meta carries the run-level fields of a document.
type Meta struct {
	GeneratedAt    time.Time
	Location       string
	Config         forecast.RunConfig
	WeatherSource  string
	ShortForecasts []string
}

// Build renders days into a Document. It is a pure function of its inputs.
func Build(meta Meta, days []forecast.Day) Document {
	doc := Document{
		GeneratedAt: meta.GeneratedAt.UTC().Format(time.RFC3339),
		Location:    meta.Location,
		Settings: Settings{
			MinTideFt:      meta.Config.MinTideFt,
			MinDurationMin: meta.Config.MinDurationMin,
			WindowBlockMin: meta.Config.WindowBlockMin,
		},
		WeatherSource:      meta.WeatherSource,
		ShortForecastsSeen: append([]string{}, meta.ShortForecasts...),
		Days:               make([]Day, 0, len(days)),
	}

	for _, d := range days {
		out := Day{
			Date:          forecast.DayKey(d.Date),
			Sunrise:       stamp(d.Astronomy.Sunrise),
			Sunset:        stamp(d.Astronomy.Sunset),
			Moonrise:      stamp(d.Astronomy.Moonrise),
			Moonset:       stamp(d.Astronomy.Moonset),
			MoonPhase:     roundPtr(d.Astronomy.MoonPhase, 3),
			TidePoints:    make([]TidePoint, 0, len(d.TidePoints)),
			Windows:       make([]Window, 0, len(d.Windows)),
			WeatherPoints: make([]WeatherPoint, 0, len(d.WeatherPoints)),
		}
		for _, p := range d.TidePoints {
			out.TidePoints = append(out.TidePoints, TidePoint{Time: p.Time.Format(time.RFC3339), HeightFt: round(p.HeightFt, 2)})
		}
		for _, w := range d.Windows {
			out.Windows = append(out.Windows, Window{
				Start:          w.Start.Format(time.RFC3339),
				End:            w.End.Format(time.RFC3339),
				AvgTideFt:      round(w.AvgTideFt, 2),
				AvgWindMph:     round(w.AvgWindMph, 1),
				AvgWindGustMph: roundPtr(w.AvgWindGustMph, 1),
				Conditions:     w.Conditions,
				Score:          w.Score,
			})
		}
		for _, h := range d.WeatherPoints {
			out.WeatherPoints = append(out.WeatherPoints, WeatherPoint{
				Time:         h.Hour.Format(time.RFC3339),
				WindMph:      round(h.WindMph, 1),
				WindGustMph:  roundPtr(h.WindGustMph, 1),
				WindDir:      optional(h.WindDirection),
				TemperatureF: roundPtr(h.TemperatureF, 1),
				Condition:    h.ShortForecast,
				Icon:         optional(h.Icon),
			})
		}
		doc.Days = append(doc.Days, out)
	}
	return doc
}

// Marshal encodes doc, indented when pretty is set.
func Marshal(doc Document, pretty bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return append(data, '\n'), nil
}

// Parse decodes a published document.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode artifact: %w", err)
	}
	return doc, nil
}

// round uses decimal half-up rounding so 2.675 becomes 2.68 rather than the
// binary float result.
func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func roundPtr(v *float64, places int32) *float64 {
	if v == nil {
		return nil
	}
	r := round(*v, places)
	return &r
}

func stamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
