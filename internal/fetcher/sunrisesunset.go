package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"paddlecast/internal/forecast"
)

const sunriseSunsetSource = "sunrise-sunset"

// SunriseSunset fetches sun events from sunrise-sunset.org. It has no moon
// data.
type SunriseSunset struct {
	lat, lon float64
	client   *Client
	loc      *time.Location
	logger   zerolog.Logger
	baseURL  string
}

// NewSunriseSunset constructs a sunrise-sunset.org astronomy source.
func NewSunriseSunset(baseURL string, lat, lon float64, client *Client, loc *time.Location, logger zerolog.Logger) *SunriseSunset {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.sunrise-sunset.org/json"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SunriseSunset{
		lat:     lat,
		lon:     lon,
		client:  client,
		loc:     loc,
		logger:  logger.With().Str("component", "sunrise_sunset_fetcher").Logger(),
		baseURL: baseURL,
	}
}

// Name implements AstronomySource.
func (s *SunriseSunset) Name() string { return sunriseSunsetSource }

type sunriseSunsetResponse struct {
	Status  string `json:"status"`
	Results struct {
		Sunrise string `json:"sunrise"`
		Sunset  string `json:"sunset"`
	} `json:"results"`
}

// FetchDay implements AstronomySource.
func (s *SunriseSunset) FetchDay(ctx context.Context, day time.Time) (forecast.Astronomy, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(s.lat, 'f', -1, 64))
	query.Set("lng", strconv.FormatFloat(s.lon, 'f', -1, 64))
	query.Set("date", day.In(s.loc).Format("2006-01-02"))
	query.Set("formatted", "0")

	astro := forecast.Astronomy{Source: sunriseSunsetSource}
	var payload sunriseSunsetResponse
	if err := s.client.GetJSON(ctx, s.baseURL, query, &payload); err != nil {
		return astro, err
	}
	if payload.Status != "OK" {
		return astro, &forecast.DataShapeError{Source: sunriseSunsetSource, Field: "status", Err: fmt.Errorf("status %q", payload.Status)}
	}

	for _, f := range []struct {
		name string
		raw  string
		dst  **time.Time
	}{
		{"sunrise", payload.Results.Sunrise, &astro.Sunrise},
		{"sunset", payload.Results.Sunset, &astro.Sunset},
	} {
		t, err := ParseFlexibleTime(f.raw)
		if err != nil {
			return astro, &forecast.DataShapeError{Source: sunriseSunsetSource, Field: "results." + f.name, Err: err}
		}
		t = t.In(s.loc)
		*f.dst = &t
	}
	s.logger.Debug().Str("date", query.Get("date")).Msg("sun times fetched")
	return astro, nil
}

var _ AstronomySource = (*SunriseSunset)(nil)
