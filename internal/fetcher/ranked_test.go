package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"paddlecast/internal/forecast"
)

type stubWeather struct {
	name    string
	records []forecast.HourlyWeather
	err     error
	calls   int
}

func (s *stubWeather) Name() string       { return s.name }
func (s *stubWeather) GustsTracked() bool { return s.name == "nws" }
func (s *stubWeather) FetchHourly(context.Context) ([]forecast.HourlyWeather, error) {
	s.calls++
	return s.records, s.err
}

type stubSky struct {
	name  string
	astro forecast.Astronomy
	err   error
	calls int
}

func (s *stubSky) Name() string { return s.name }
func (s *stubSky) FetchDay(context.Context, time.Time) (forecast.Astronomy, error) {
	s.calls++
	return s.astro, s.err
}

func oneHour() []forecast.HourlyWeather {
	return []forecast.HourlyWeather{{Hour: time.Date(2025, 8, 7, 8, 0, 0, 0, time.UTC), WindMph: 3}}
}

func TestRankedWeatherFallsBack(t *testing.T) {
	primary := &stubWeather{name: "nws", err: &forecast.DataFetchError{Source: "nws", StatusCode: 503}}
	fallback := &stubWeather{name: "open-meteo", records: oneHour()}
	unused := &stubWeather{name: "spare", records: oneHour()}

	res, err := NewRankedWeather(noopLogger(), primary, fallback, unused).Fetch(context.Background())
	if err != nil {
		t.Fatalf("fallback should succeed: %v", err)
	}
	if res.Provider != "open-meteo" || len(res.Records) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Attempts) != 1 || res.Attempts[0] != "nws" {
		t.Fatalf("attempts = %v", res.Attempts)
	}
	if unused.calls != 0 {
		t.Fatal("providers after the winner must not be polled")
	}
}

func TestRankedWeatherSkipsEmpty(t *testing.T) {
	empty := &stubWeather{name: "nws"}
	fallback := &stubWeather{name: "open-meteo", records: oneHour()}

	res, err := NewRankedWeather(noopLogger(), empty, fallback).Fetch(context.Background())
	if err != nil || res.Provider != "open-meteo" {
		t.Fatalf("empty primary should fall through: %+v %v", res, err)
	}
}

func TestRankedWeatherAllFail(t *testing.T) {
	fetchErr := &forecast.DataFetchError{Source: "nws", StatusCode: 500}
	_, err := NewRankedWeather(noopLogger(),
		&stubWeather{name: "nws", err: fetchErr},
		&stubWeather{name: "open-meteo"},
	).Fetch(context.Background())

	if !errors.Is(err, ErrNoWeather) {
		t.Fatalf("expected ErrNoWeather, got %v", err)
	}
	var target *forecast.DataFetchError
	if !errors.As(err, &target) || target.StatusCode != 500 {
		t.Fatalf("provider error should stay classifiable: %v", err)
	}
}

func TestAstronomyChainMergesSources(t *testing.T) {
	rise := time.Date(2025, 8, 7, 6, 21, 0, 0, time.UTC)
	set := time.Date(2025, 8, 7, 20, 1, 0, 0, time.UTC)
	phase := 0.25

	met := &stubSky{name: "met-norway", err: errors.New("timeout")}
	sun := &stubSky{name: "sunrise-sunset", astro: forecast.Astronomy{Sunrise: &rise, Sunset: &set}}
	local := &stubSky{name: "local", astro: forecast.Astronomy{Sunrise: &set, Sunset: &set, MoonPhase: &phase}}

	astro := NewAstronomyChain(noopLogger(), met, sun, local).FetchDay(context.Background(), rise)
	if astro.Sunrise == nil || !astro.Sunrise.Equal(rise) {
		t.Fatalf("sun times should come from the first source that has them: %v", astro.Sunrise)
	}
	if astro.MoonPhase == nil || *astro.MoonPhase != 0.25 {
		t.Fatalf("moon phase should be filled from local: %v", astro.MoonPhase)
	}
	if astro.Source != "sunrise-sunset+local" {
		t.Fatalf("source = %q", astro.Source)
	}
}

func TestAstronomyChainStopsWhenComplete(t *testing.T) {
	rise := time.Date(2025, 8, 7, 6, 21, 0, 0, time.UTC)
	phase := 0.5
	met := &stubSky{name: "met-norway", astro: forecast.Astronomy{Sunrise: &rise, Sunset: &rise, MoonPhase: &phase}}
	local := &stubSky{name: "local"}

	chain := NewAstronomyChain(noopLogger(), met, local)
	days := chain.FetchRange(context.Background(), rise, 3, time.UTC)
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}
	if _, ok := days["2025-08-09"]; !ok {
		t.Fatalf("missing third day: %v", days)
	}
	if local.calls != 0 {
		t.Fatal("complete astronomy must not consult later sources")
	}
}

func TestAstronomyChainExhausted(t *testing.T) {
	astro := NewAstronomyChain(noopLogger(), &stubSky{name: "met-norway", err: errors.New("down")}).
		FetchDay(context.Background(), time.Now())
	if astro.Sunrise != nil || astro.Source != "" {
		t.Fatalf("expected empty astronomy, got %+v", astro)
	}
}
