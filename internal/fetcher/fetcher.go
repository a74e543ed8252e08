package fetcher

import (
	"context"
	"time"

	"paddlecast/internal/forecast"
)

// TideSource retrieves tide height predictions for [from, to].
type TideSource interface {
	FetchTides(ctx context.Context, from, to time.Time) ([]forecast.TidePoint, error)
}

// WeatherSource retrieves the hourly forecast for the configured location.
type WeatherSource interface {
	Name() string
	// GustsTracked reports whether the provider publishes gusts at all.
	GustsTracked() bool
	FetchHourly(ctx context.Context) ([]forecast.HourlyWeather, error)
}

// AstronomySource retrieves sun and moon events for one local day.
type AstronomySource interface {
	Name() string
	FetchDay(ctx context.Context, day time.Time) (forecast.Astronomy, error)
}
