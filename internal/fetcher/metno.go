package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"paddlecast/internal/forecast"
)

const metNorwaySource = "met-norway"

// MetNorwayOptions parameterise the MET Norway sunrise 3.0 fetcher.
type MetNorwayOptions struct {
	BaseURL string
	Lat     float64
	Lon     float64
}

// MetNorway fetches sun and moon events. The service requires an
// identifying User-Agent, which the shared Client always sends.
type MetNorway struct {
	opts    MetNorwayOptions
	client  *Client
	loc     *time.Location
	logger  zerolog.Logger
	baseURL string
}

// NewMetNorway constructs a MET Norway astronomy source.
func NewMetNorway(opts MetNorwayOptions, client *Client, loc *time.Location, logger zerolog.Logger) *MetNorway {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.met.no/weatherapi/sunrise/3.0"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &MetNorway{
		opts:    opts,
		client:  client,
		loc:     loc,
		logger:  logger.With().Str("component", "metno_fetcher").Logger(),
		baseURL: baseURL,
	}
}

// Name implements AstronomySource.
func (m *MetNorway) Name() string { return metNorwaySource }

type metEvent struct {
	Time string `json:"time"`
}

type metSun struct {
	Properties struct {
		Sunrise *metEvent `json:"sunrise"`
		Sunset  *metEvent `json:"sunset"`
	} `json:"properties"`
}

type metMoon struct {
	Properties struct {
		Moonrise  *metEvent `json:"moonrise"`
		Moonset   *metEvent `json:"moonset"`
		Moonphase *float64  `json:"moonphase"`
	} `json:"properties"`
}

// FetchDay implements AstronomySource. A failed sun request fails the call;
// a failed moon request only leaves the moon fields unset.
func (m *MetNorway) FetchDay(ctx context.Context, day time.Time) (forecast.Astronomy, error) {
	local := day.In(m.loc)
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(m.opts.Lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(m.opts.Lon, 'f', -1, 64))
	query.Set("date", local.Format("2006-01-02"))
	query.Set("offset", local.Format("-07:00"))

	astro := forecast.Astronomy{Source: metNorwaySource}

	var sun metSun
	if err := m.client.GetJSON(ctx, m.baseURL+"/sun", query, &sun); err != nil {
		return astro, err
	}
	var err error
	if astro.Sunrise, err = m.eventTime("sunrise", sun.Properties.Sunrise); err != nil {
		return astro, err
	}
	if astro.Sunset, err = m.eventTime("sunset", sun.Properties.Sunset); err != nil {
		return astro, err
	}

	var moon metMoon
	if err := m.client.GetJSON(ctx, m.baseURL+"/moon", query, &moon); err != nil {
		m.logger.Warn().Err(err).Str("date", query.Get("date")).Msg("moon request failed")
		return astro, nil
	}
	if t, err := m.eventTime("moonrise", moon.Properties.Moonrise); err == nil {
		astro.Moonrise = t
	}
	if t, err := m.eventTime("moonset", moon.Properties.Moonset); err == nil {
		astro.Moonset = t
	}
	if deg := moon.Properties.Moonphase; deg != nil {
		phase := math.Mod(math.Mod(*deg, 360)+360, 360) / 360
		astro.MoonPhase = &phase
	}
	return astro, nil
}

func (m *MetNorway) eventTime(field string, ev *metEvent) (*time.Time, error) {
	if ev == nil || strings.TrimSpace(ev.Time) == "" {
		return nil, nil
	}
	t, err := ParseFlexibleTime(ev.Time)
	if err != nil {
		return nil, &forecast.DataShapeError{Source: metNorwaySource, Field: field, Err: err}
	}
	t = t.In(m.loc)
	return &t, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
}

// ParseFlexibleTime accepts RFC 3339 timestamps with or without seconds.
func ParseFlexibleTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

var _ AstronomySource = (*MetNorway)(nil)
