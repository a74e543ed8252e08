package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"paddlecast/internal/forecast"
)

const (
	noaaSource     = "noaa"
	noaaTimeLayout = "2006-01-02 15:04"
	noaaDateLayout = "20060102 15:04"
)

// NOAAOptions parameterise the CO-OPS tide predictions fetcher.
type NOAAOptions struct {
	BaseURL     string
	StationID   string
	IntervalMin int
	Application string
}

// NOAA fetches tide predictions from the CO-OPS datagetter API. Timestamps
// are requested in local standard/daylight time and parsed in loc.
type NOAA struct {
	opts    NOAAOptions
	client  *Client
	loc     *time.Location
	logger  zerolog.Logger
	baseURL string
}

// NewNOAA constructs a tide fetcher for the configured station.
func NewNOAA(opts NOAAOptions, client *Client, loc *time.Location, logger zerolog.Logger) *NOAA {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.tidesandcurrents.noaa.gov/api/prod/datagetter"
	}
	if opts.IntervalMin <= 0 {
		opts.IntervalMin = 15
	}
	if loc == nil {
		loc = time.UTC
	}
	return &NOAA{
		opts:    opts,
		client:  client,
		loc:     loc,
		logger:  logger.With().Str("component", "tide_fetcher").Logger(),
		baseURL: baseURL,
	}
}

type noaaResponse struct {
	Predictions []struct {
		T string `json:"t"`
		V string `json:"v"`
	} `json:"predictions"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// FetchTides returns predictions between from and to, inclusive.
func (n *NOAA) FetchTides(ctx context.Context, from, to time.Time) ([]forecast.TidePoint, error) {
	if n.opts.StationID == "" {
		return nil, &forecast.ConfigError{Field: "location.tide_station_id", Reason: "required"}
	}
	from, to = from.In(n.loc), to.In(n.loc)

	query := url.Values{}
	query.Set("product", "predictions")
	query.Set("station", n.opts.StationID)
	query.Set("begin_date", from.Format(noaaDateLayout))
	query.Set("end_date", to.Format(noaaDateLayout))
	query.Set("datum", "MLLW")
	query.Set("time_zone", "lst_ldt")
	query.Set("units", "english")
	query.Set("interval", strconv.Itoa(n.opts.IntervalMin))
	query.Set("format", "json")
	if n.opts.Application != "" {
		query.Set("application", n.opts.Application)
	}

	var payload noaaResponse
	if err := n.client.GetJSON(ctx, n.baseURL, query, &payload); err != nil {
		return nil, err
	}
	if payload.Error != nil {
		msg := strings.TrimSpace(payload.Error.Message)
		if msg == "" {
			msg = "unspecified error"
		}
		return nil, &forecast.DataFetchError{Source: noaaSource, URL: n.baseURL, Err: errors.New(msg)}
	}
	if len(payload.Predictions) == 0 {
		return nil, n.shapeErr("predictions", from, to, errors.New("no predictions returned"))
	}

	points := make([]forecast.TidePoint, 0, len(payload.Predictions))
	for _, p := range payload.Predictions {
		ts, err := time.ParseInLocation(noaaTimeLayout, strings.TrimSpace(p.T), n.loc)
		if err != nil {
			return nil, n.shapeErr("t", from, to, fmt.Errorf("parse %q: %w", p.T, err))
		}
		height, err := strconv.ParseFloat(strings.TrimSpace(p.V), 64)
		if err != nil {
			return nil, n.shapeErr("v", from, to, fmt.Errorf("parse %q at %s: %w", p.V, p.T, err))
		}
		points = append(points, forecast.TidePoint{Time: ts, HeightFt: height})
	}

	n.logger.Debug().Str("station", n.opts.StationID).Int("points", len(points)).Msg("tide predictions fetched")
	return points, nil
}

func (n *NOAA) shapeErr(field string, from, to time.Time, err error) error {
	return &forecast.DataShapeError{Source: noaaSource, Field: field, StationID: n.opts.StationID, From: from, To: to, Err: err}
}

var _ TideSource = (*NOAA)(nil)
