package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"paddlecast/internal/forecast"
)

// ErrNoWeather is returned when every ranked provider failed or was empty.
var ErrNoWeather = errors.New("no weather provider returned data")

// WeatherResult is the winning provider's hourly series.
type WeatherResult struct {
	Provider     string
	GustsTracked bool
	Records      []forecast.HourlyWeather
	// Attempts lists providers that failed or came back empty before the
	// winner, in order.
	Attempts []string
}

// RankedWeather polls providers in order and keeps the first non-empty
// result.
type RankedWeather struct {
	providers []WeatherSource
	logger    zerolog.Logger
}

// NewRankedWeather returns a ranked provider list. Order is priority.
func NewRankedWeather(logger zerolog.Logger, providers ...WeatherSource) *RankedWeather {
	return &RankedWeather{providers: providers, logger: logger.With().Str("component", "weather_ranker").Logger()}
}

// Fetch returns the first non-empty provider result. When all providers
// fail, the returned error joins ErrNoWeather with each provider's error.
func (r *RankedWeather) Fetch(ctx context.Context) (WeatherResult, error) {
	var res WeatherResult
	errs := []error{ErrNoWeather}
	for _, p := range r.providers {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		records, err := p.FetchHourly(ctx)
		switch {
		case err != nil:
			r.logger.Warn().Err(err).Str("provider", p.Name()).Msg("weather provider failed")
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		case len(records) == 0:
			r.logger.Warn().Str("provider", p.Name()).Msg("weather provider returned no data")
			errs = append(errs, fmt.Errorf("%s: empty result", p.Name()))
		default:
			res.Provider = p.Name()
			res.GustsTracked = p.GustsTracked()
			res.Records = records
			return res, nil
		}
		res.Attempts = append(res.Attempts, p.Name())
	}
	return res, errors.Join(errs...)
}

// AstronomyChain merges sources in order: each later source only fills
// fields the earlier ones left unset.
type AstronomyChain struct {
	sources []AstronomySource
	logger  zerolog.Logger
}

// NewAstronomyChain returns a chain with sources in priority order.
func NewAstronomyChain(logger zerolog.Logger, sources ...AstronomySource) *AstronomyChain {
	return &AstronomyChain{sources: sources, logger: logger.With().Str("component", "astronomy_chain").Logger()}
}

// FetchDay returns the merged astronomy for day. Source names every source
// that contributed, joined with "+". Source failures are logged, never
// returned; an exhausted chain yields empty astronomy.
func (c *AstronomyChain) FetchDay(ctx context.Context, day time.Time) forecast.Astronomy {
	var merged forecast.Astronomy
	var used []string
	for _, src := range c.sources {
		if complete(merged) || ctx.Err() != nil {
			break
		}
		astro, err := src.FetchDay(ctx, day)
		if err != nil {
			c.logger.Warn().Err(err).Str("source", src.Name()).Str("date", forecast.DayKey(day)).Msg("astronomy source failed")
			continue
		}
		if fill(&merged, astro) {
			used = append(used, src.Name())
		}
	}
	merged.Source = strings.Join(used, "+")
	return merged
}

// FetchRange fetches days consecutive local days from start, keyed by
// forecast.DayKey.
func (c *AstronomyChain) FetchRange(ctx context.Context, start time.Time, days int, loc *time.Location) map[string]forecast.Astronomy {
	out := make(map[string]forecast.Astronomy, days)
	day := forecast.StartOfDay(start, loc)
	for i := 0; i < days; i++ {
		d := day.AddDate(0, 0, i)
		out[forecast.DayKey(d)] = c.FetchDay(ctx, d)
	}
	return out
}

// complete ignores moonrise and moonset: only the first source publishes
// them and some days have neither.
func complete(a forecast.Astronomy) bool {
	return a.Sunrise != nil && a.Sunset != nil && a.MoonPhase != nil
}

// fill copies unset fields from src into dst and reports whether any were
// copied. Sunrise and sunset travel together so a day never mixes sources
// for its daylight interval.
func fill(dst *forecast.Astronomy, src forecast.Astronomy) bool {
	changed := false
	if dst.Sunrise == nil && dst.Sunset == nil && src.Sunrise != nil && src.Sunset != nil {
		dst.Sunrise, dst.Sunset = src.Sunrise, src.Sunset
		changed = true
	}
	if dst.Moonrise == nil && src.Moonrise != nil {
		dst.Moonrise = src.Moonrise
		changed = true
	}
	if dst.Moonset == nil && src.Moonset != nil {
		dst.Moonset = src.Moonset
		changed = true
	}
	if dst.MoonPhase == nil && src.MoonPhase != nil {
		dst.MoonPhase = src.MoonPhase
		changed = true
	}
	return changed
}
