package forecast

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"
)

// Ingestor normalises upstream series into the local time zone of the
// forecast location.
type Ingestor struct {
	loc *time.Location
}

// NewIngestor returns an Ingestor for loc. A nil loc means UTC.
func NewIngestor(loc *time.Location) *Ingestor {
	if loc == nil {
		loc = time.UTC
	}
	return &Ingestor{loc: loc}
}

// Location returns the local time zone.
func (in *Ingestor) Location() *time.Location {
	return in.loc
}

// Tides converts points to local time and verifies they are strictly
// increasing with finite heights.
func (in *Ingestor) Tides(points []TidePoint) ([]TidePoint, error) {
	out := make([]TidePoint, 0, len(points))
	for i, p := range points {
		if p.Time.IsZero() {
			return nil, &DataShapeError{Source: "tides", Field: "t", Err: errors.New("missing timestamp")}
		}
		if math.IsNaN(p.HeightFt) || math.IsInf(p.HeightFt, 0) {
			return nil, &DataShapeError{Source: "tides", Field: "v", From: p.Time, To: p.Time, Err: errors.New("height is not finite")}
		}
		local := TidePoint{Time: p.Time.In(in.loc), HeightFt: p.HeightFt}
		if i > 0 && !local.Time.After(out[i-1].Time) {
			return nil, &DataError{Series: "tides", Index: i, Time: local.Time, Reason: "timestamps must be strictly increasing"}
		}
		out = append(out, local)
	}
	return out, nil
}

// Weather builds an hour-keyed series. The first record seen for an hour
// wins; precipitation probabilities are clamped to [0,100].
func (in *Ingestor) Weather(provider string, gustsTracked bool, records []HourlyWeather) WeatherSeries {
	hours := make(map[time.Time]HourlyWeather, len(records))
	for _, r := range records {
		if r.Hour.IsZero() {
			continue
		}
		key := HourKey(r.Hour)
		if _, seen := hours[key]; seen {
			continue
		}
		r.Hour = key.In(in.loc)
		r.ShortForecast = strings.TrimSpace(r.ShortForecast)
		if math.IsNaN(r.WindMph) || r.WindMph < 0 {
			r.WindMph = 0
		}
		r.PrecipProbability = math.Max(0, math.Min(100, r.PrecipProbability))
		hours[key] = r
	}
	return WeatherSeries{Provider: provider, GustsTracked: gustsTracked, Hours: hours}
}

// DayKey formats the local calendar date of t.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// GroupByDay splits an ordered series into local calendar days.
func (in *Ingestor) GroupByDay(points []TidePoint) map[string][]TidePoint {
	days := make(map[string][]TidePoint)
	for _, p := range points {
		key := DayKey(p.Time.In(in.loc))
		days[key] = append(days[key], p)
	}
	return days
}

// ShortForecasts lists the distinct non-empty forecast strings, sorted.
func ShortForecasts(series WeatherSeries) []string {
	seen := make(map[string]struct{})
	for _, h := range series.Hours {
		if h.ShortForecast != "" {
			seen[h.ShortForecast] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
