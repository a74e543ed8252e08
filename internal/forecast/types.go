package forecast

import (
	"time"
)

// TidePoint is a single predicted water level relative to MLLW.
type TidePoint struct {
	Time     time.Time
	HeightFt float64
}

// HourlyWeather is one hour bucket of a weather forecast.
type HourlyWeather struct {
	Hour              time.Time
	WindMph           float64
	WindGustMph       *float64
	TemperatureF      *float64
	ShortForecast     string
	PrecipProbability float64
	WindDirection     string
	Icon              string
}

// WeatherSeries is an hour-keyed forecast from a single provider. Keys are
// UTC hour starts, see HourKey.
type WeatherSeries struct {
	Provider     string
	GustsTracked bool
	Hours        map[time.Time]HourlyWeather
}

// Len reports the number of hour buckets.
func (s WeatherSeries) Len() int {
	return len(s.Hours)
}

// Lookup returns the bucket for the hour containing t.
func (s WeatherSeries) Lookup(t time.Time) (HourlyWeather, bool) {
	if s.Hours == nil {
		return HourlyWeather{}, false
	}
	h, ok := s.Hours[HourKey(t)]
	return h, ok
}

// HourKey normalises t to the UTC start of its hour. Whole-hour zone offsets
// keep local and UTC hour boundaries aligned.
func HourKey(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// Astronomy holds the sun and moon markers of one local day.
type Astronomy struct {
	Sunrise   *time.Time
	Sunset    *time.Time
	Moonrise  *time.Time
	Moonset   *time.Time
	MoonPhase *float64
	Source    string
}

// Window is a scored candidate activity interval.
type Window struct {
	Start          time.Time
	End            time.Time
	AvgTideFt      float64
	AvgWindMph     float64
	AvgWindGustMph *float64
	Conditions     string
	Score          float64
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Day is the assembled output for one local calendar date.
type Day struct {
	Date          time.Time
	Astronomy     Astronomy
	TidePoints    []TidePoint
	Windows       []Window
	WeatherPoints []HourlyWeather
}

// RunConfig carries the thresholds of a single run. It is built once and
// passed by value.
type RunConfig struct {
	MinTideFt         float64
	MinDurationMin    int
	WindowBlockMin    int
	DaylightBufferMin int
	DaylightOnly      bool
}

// MinDuration returns MinDurationMin as a duration.
func (c RunConfig) MinDuration() time.Duration {
	return time.Duration(c.MinDurationMin) * time.Minute
}

// WindowBlock returns WindowBlockMin as a duration.
func (c RunConfig) WindowBlock() time.Duration {
	return time.Duration(c.WindowBlockMin) * time.Minute
}

// DaylightBuffer returns DaylightBufferMin as a duration.
func (c RunConfig) DaylightBuffer() time.Duration {
	return time.Duration(c.DaylightBufferMin) * time.Minute
}

// Validate rejects thresholds the segmenter cannot honour.
func (c RunConfig) Validate() error {
	switch {
	case c.MinTideFt <= 0:
		return &ConfigError{Field: "thresholds.min_tide_ft", Reason: "must be greater than zero"}
	case c.MinDurationMin <= 0:
		return &ConfigError{Field: "thresholds.min_duration_min", Reason: "must be greater than zero"}
	case c.WindowBlockMin <= 0:
		return &ConfigError{Field: "thresholds.window_block_min", Reason: "must be greater than zero"}
	case c.WindowBlockMin < c.MinDurationMin:
		return &ConfigError{Field: "thresholds.window_block_min", Reason: "must not be shorter than min_duration_min"}
	case c.DaylightBufferMin < 0:
		return &ConfigError{Field: "thresholds.daylight_buffer_min", Reason: "cannot be negative"}
	}
	return nil
}
