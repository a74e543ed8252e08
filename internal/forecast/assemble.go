package forecast

import (
	"fmt"
	"time"

	"paddlecast/internal/scoring"
)

// Assembler composes per-day output from ingested series.
type Assembler struct {
	cfg       RunConfig
	segmenter *Segmenter
	scorer    *scoring.Scorer
	loc       *time.Location
}

// NewAssembler wires the segmenter and scorer for one run.
func NewAssembler(cfg RunConfig, scorer *scoring.Scorer, loc *time.Location) (*Assembler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if scorer == nil {
		return nil, fmt.Errorf("assembler requires a scorer")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Assembler{cfg: cfg, segmenter: NewSegmenter(cfg), scorer: scorer, loc: loc}, nil
}

// Inputs are the normalised series for the whole run.
type Inputs struct {
	Tides     []TidePoint
	Weather   WeatherSeries
	Astronomy map[string]Astronomy
}

// Assemble builds days consecutive local days starting at the day containing
// start. Days without tide samples are still emitted with their astronomy
// and weather points.
func (a *Assembler) Assemble(start time.Time, days int, in Inputs) ([]Day, error) {
	byDay := make(map[string][]TidePoint)
	for _, p := range in.Tides {
		key := DayKey(p.Time.In(a.loc))
		byDay[key] = append(byDay[key], p)
	}

	first := StartOfDay(start, a.loc)
	out := make([]Day, 0, days)
	for i := 0; i < days; i++ {
		dayStart := first.AddDate(0, 0, i)
		next := dayStart.AddDate(0, 0, 1)
		key := DayKey(dayStart)

		day, err := a.assembleDay(dayStart, next, byDay[key], byDay[DayKey(next)], in.Weather, in.Astronomy[key])
		if err != nil {
			return nil, fmt.Errorf("assemble %s: %w", key, err)
		}
		out = append(out, day)
	}
	return out, nil
}

func (a *Assembler) assembleDay(dayStart, next time.Time, points, nextPoints []TidePoint, weather WeatherSeries, astro Astronomy) (Day, error) {
	day := Day{
		Date:          dayStart,
		Astronomy:     astro,
		TidePoints:    points,
		Windows:       []Window{},
		WeatherPoints: weatherPoints(dayStart, weather),
	}
	if len(points) == 0 {
		return day, nil
	}

	series := points
	if len(nextPoints) > 0 {
		series = append(append(make([]TidePoint, 0, len(points)+1), points...), nextPoints[0])
	}

	stubs, err := a.segmenter.Segment(series)
	if err != nil {
		return Day{}, err
	}

	aligner := NewAligner(astro, a.cfg)
	for _, w := range stubs {
		if !w.Start.Before(next) {
			continue
		}
		if a.cfg.DaylightOnly && !aligner.OverlapsDaylight(w) {
			continue
		}
		day.Windows = append(day.Windows, a.scoreWindow(w, weather, aligner))
	}
	return day, nil
}

func (a *Assembler) scoreWindow(w Window, weather WeatherSeries, aligner *Aligner) Window {
	summary := AggregateWeather(w.Start, w.End, weather)
	res := a.scorer.Score(scoring.Input{
		AvgWindMph:     summary.AvgWindMph,
		AvgWindGustMph: summary.AvgWindGustMph,
		AvgTempF:       summary.AvgTempF,
		Forecasts:      summary.Forecasts,
		PrecipProbs:    summary.PrecipProbs,
		SunsetBonus:    aligner.SunsetBonusEligible(w),
	})

	w.AvgWindMph = summary.AvgWindMph
	w.AvgWindGustMph = summary.AvgWindGustMph
	w.Conditions = res.Conditions
	w.Score = res.Score
	return w
}

// weatherPoints returns one entry per local hour of the day. Hours without a
// forecast carry only their timestamp.
func weatherPoints(dayStart time.Time, weather WeatherSeries) []HourlyWeather {
	points := make([]HourlyWeather, 0, 24)
	for h := 0; h < 24; h++ {
		hour := time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day(), h, 0, 0, 0, dayStart.Location())
		rec, ok := weather.Lookup(hour)
		if !ok {
			rec = HourlyWeather{}
		}
		rec.Hour = hour
		points = append(points, rec)
	}
	return points
}
