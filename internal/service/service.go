package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"paddlecast/internal/alerting"
	"paddlecast/internal/artifact"
	"paddlecast/internal/fetcher"
	"paddlecast/internal/forecast"
	"paddlecast/internal/metrics"
	"paddlecast/internal/scoring"
	"paddlecast/internal/storage"
)

// WeatherFetcher yields the winning provider's hourly series.
type WeatherFetcher interface {
	Fetch(ctx context.Context) (fetcher.WeatherResult, error)
}

// AstronomyFetcher yields merged astronomy keyed by forecast.DayKey.
type AstronomyFetcher interface {
	FetchRange(ctx context.Context, start time.Time, days int, loc *time.Location) map[string]forecast.Astronomy
}

// Options are the run-level settings of the pipeline.
type Options struct {
	Location  string
	Zone      *time.Location
	DaysAhead int
	Run       forecast.RunConfig
	Table     scoring.Table
	LockKey   int64

	// RunRetention prunes run history older than now-RunRetention.
	RunRetention time.Duration

	AlertsEnabled bool
	AlertMinScore float64
	AlertMax      int

	MetricsPath string
	Now         func() time.Time
}

// Dependencies are the collaborators of the pipeline. Only Tides, Weather,
// Astronomy and Writer are required.
type Dependencies struct {
	Tides     fetcher.TideSource
	Weather   WeatherFetcher
	Astronomy AstronomyFetcher
	Writer    *artifact.Writer
	Artifacts storage.ArtifactStore
	Runs      storage.RunStore
	Locker    storage.AdvisoryLocker
	Notifiers []alerting.Notifier
	Metrics   *metrics.Recorder
}

// Result describes one completed or skipped build.
type Result struct {
	RunID       string
	Skipped     bool
	Provider    string
	Days        []forecast.Day
	Document    artifact.Document
	Payload     []byte
	WindowCount int
	BestScore   *float64
}

// Service orchestrates fetching, assembly, publication and notification.
type Service struct {
	opts      Options
	deps      Dependencies
	ingestor  *forecast.Ingestor
	assembler *forecast.Assembler
	logger    zerolog.Logger

	lastDigest string
}

// New validates the options and wires the forecast engine.
func New(opts Options, deps Dependencies, logger zerolog.Logger) (*Service, error) {
	if deps.Tides == nil || deps.Weather == nil || deps.Astronomy == nil {
		return nil, errors.New("service requires tide, weather and astronomy sources")
	}
	if opts.Zone == nil {
		opts.Zone = time.UTC
	}
	if opts.DaysAhead <= 0 {
		return nil, &forecast.ConfigError{Field: "thresholds.days_ahead", Reason: "must be at least 1"}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	scorer, err := scoring.NewScorer(opts.Table)
	if err != nil {
		return nil, &forecast.ConfigError{Field: "scoring", Reason: err.Error()}
	}
	assembler, err := forecast.NewAssembler(opts.Run, scorer, opts.Zone)
	if err != nil {
		return nil, err
	}

	return &Service{
		opts:      opts,
		deps:      deps,
		ingestor:  forecast.NewIngestor(opts.Zone),
		assembler: assembler,
		logger:    logger.With().Str("component", "service").Logger(),
	}, nil
}

// Tick adapts RunOnce to the scheduler.
func (s *Service) Tick(ctx context.Context, slot time.Time) error {
	_, err := s.RunOnce(ctx)
	return err
}

// RunOnce performs one full build: fetch, assemble, publish, mirror,
// notify. On any fetch or assembly failure nothing is written and the
// previously published artifact stays in place.
func (s *Service) RunOnce(ctx context.Context) (Result, error) {
	if s.deps.Writer == nil {
		return Result{}, errors.New("service has no artifact writer")
	}
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return Result{}, err
	}
	if !proceed {
		s.logger.Info().Msg("skip build because advisory lock held elsewhere")
		return Result{Skipped: true}, nil
	}
	if unlock != nil {
		defer unlock()
	}

	started := s.opts.Now()
	runID := uuid.NewString()
	logger := s.logger.With().Str("run_id", runID).Logger()

	res, err := s.build(ctx, runID, started, logger)
	if err != nil {
		elapsed := s.opts.Now().Sub(started)
		logger.Error().Err(err).Dur("elapsed", elapsed).Msg("build aborted; previous artifact kept")
		s.recordFailure(ctx, runID, started, err, logger)
		if s.deps.Metrics != nil {
			s.deps.Metrics.Failed(elapsed)
			s.flushMetrics(logger)
		}
		return Result{RunID: runID}, err
	}

	payload, err := s.deps.Writer.Write(res.Document)
	if err != nil {
		s.recordFailure(ctx, runID, started, err, logger)
		if s.deps.Metrics != nil {
			s.deps.Metrics.Failed(s.opts.Now().Sub(started))
			s.flushMetrics(logger)
		}
		return Result{RunID: runID}, fmt.Errorf("publish artifact: %w", err)
	}
	res.Payload = payload

	finished := s.opts.Now()
	logger.Info().
		Str("provider", res.Provider).
		Int("days", len(res.Days)).
		Int("windows", res.WindowCount).
		Str("path", s.deps.Writer.Path()).
		Dur("elapsed", finished.Sub(started)).
		Msg("artifact published")

	s.mirror(ctx, res, logger)
	s.recordRun(ctx, storage.RunRecord{
		RunID:         runID,
		Location:      s.opts.Location,
		StartedAt:     started,
		FinishedAt:    finished,
		Status:        storage.RunStatusPublished,
		WeatherSource: &res.Provider,
		WindowCount:   res.WindowCount,
	}, logger)

	if s.deps.Metrics != nil {
		best := 0.0
		if res.BestScore != nil {
			best = *res.BestScore
		}
		s.deps.Metrics.Published(finished, finished.Sub(started), len(res.Days), res.WindowCount, best, res.Provider)
	}

	s.notify(ctx, res, started, logger)
	s.flushMetrics(logger)
	return res, nil
}

// Build fetches and assembles without publishing anything.
func (s *Service) Build(ctx context.Context) (Result, error) {
	runID := uuid.NewString()
	return s.build(ctx, runID, s.opts.Now(), s.logger.With().Str("run_id", runID).Logger())
}

func (s *Service) build(ctx context.Context, runID string, now time.Time, logger zerolog.Logger) (Result, error) {
	start := forecast.StartOfDay(now, s.opts.Zone)
	// Through the following midnight so the last day sees its next sample.
	end := start.AddDate(0, 0, s.opts.DaysAhead)

	rawTides, err := s.deps.Tides.FetchTides(ctx, start, end)
	if err != nil {
		s.sourceError("tides")
		return Result{}, fmt.Errorf("fetch tides: %w", err)
	}
	tides, err := s.ingestor.Tides(rawTides)
	if err != nil {
		return Result{}, fmt.Errorf("ingest tides: %w", err)
	}

	wx, err := s.deps.Weather.Fetch(ctx)
	for _, failed := range wx.Attempts {
		s.sourceError(failed)
	}
	if err != nil {
		return Result{}, fmt.Errorf("fetch weather: %w", err)
	}
	series := s.ingestor.Weather(wx.Provider, wx.GustsTracked, wx.Records)

	astro := s.deps.Astronomy.FetchRange(ctx, start, s.opts.DaysAhead, s.opts.Zone)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	logger.Debug().
		Int("tide_points", len(tides)).
		Int("weather_hours", series.Len()).
		Str("provider", wx.Provider).
		Strs("fallbacks", wx.Attempts).
		Msg("inputs ingested")

	days, err := s.assembler.Assemble(start, s.opts.DaysAhead, forecast.Inputs{
		Tides:     tides,
		Weather:   series,
		Astronomy: astro,
	})
	if err != nil {
		return Result{}, err
	}

	doc := artifact.Build(artifact.Meta{
		GeneratedAt:    now,
		Location:       s.opts.Location,
		Config:         s.opts.Run,
		WeatherSource:  wx.Provider,
		ShortForecasts: forecast.ShortForecasts(series),
	}, days)

	res := Result{RunID: runID, Provider: wx.Provider, Days: days, Document: doc}
	for _, d := range days {
		for _, w := range d.Windows {
			res.WindowCount++
			if res.BestScore == nil || w.Score > *res.BestScore {
				score := w.Score
				res.BestScore = &score
			}
		}
	}
	return res, nil
}

func (s *Service) mirror(ctx context.Context, res Result, logger zerolog.Logger) {
	if s.deps.Artifacts == nil {
		return
	}
	rec := storage.PublishedArtifact{
		Location:      s.opts.Location,
		RunID:         res.RunID,
		GeneratedAt:   s.opts.Now().UTC(),
		WeatherSource: res.Provider,
		DayCount:      len(res.Days),
		WindowCount:   res.WindowCount,
		Payload:       res.Payload,
	}
	if t, err := time.Parse(time.RFC3339, res.Document.GeneratedAt); err == nil {
		rec.GeneratedAt = t
	}
	if res.BestScore != nil {
		best := decimal.NewFromFloat(*res.BestScore)
		rec.BestScore = &best
	}
	if err := s.deps.Artifacts.UpsertArtifact(ctx, rec); err != nil {
		logger.Error().Err(err).Msg("failed to mirror artifact")
	}
}

func (s *Service) recordFailure(ctx context.Context, runID string, started time.Time, cause error, logger zerolog.Logger) {
	msg := cause.Error()
	s.recordRun(ctx, storage.RunRecord{
		RunID:      runID,
		Location:   s.opts.Location,
		StartedAt:  started,
		FinishedAt: s.opts.Now(),
		Status:     storage.RunStatusFailed,
		Error:      &msg,
	}, logger)
}

func (s *Service) recordRun(ctx context.Context, run storage.RunRecord, logger zerolog.Logger) {
	if s.deps.Runs == nil {
		return
	}
	// A cancelled build still gets its audit row.
	ctx = context.WithoutCancel(ctx)
	if err := s.deps.Runs.RecordRun(ctx, run); err != nil {
		logger.Error().Err(err).Str("status", run.Status).Msg("failed to record run")
	}
	if s.opts.RunRetention <= 0 {
		return
	}
	cutoff := run.StartedAt.Add(-s.opts.RunRetention)
	if err := s.deps.Runs.DeleteRunsBefore(ctx, cutoff); err != nil {
		logger.Warn().Err(err).Time("cutoff", cutoff).Msg("failed to prune run history")
	}
}

func (s *Service) notify(ctx context.Context, res Result, now time.Time, logger zerolog.Logger) {
	if !s.opts.AlertsEnabled || len(s.deps.Notifiers) == 0 {
		return
	}
	digest := alerting.Digest{
		Location:    s.opts.Location,
		GeneratedAt: now,
		MinScore:    s.opts.AlertMinScore,
		Windows:     alerting.SelectWindows(res.Days, now, s.opts.AlertMinScore, s.opts.AlertMax),
	}
	if digest.Empty() {
		logger.Debug().Float64("min_score", s.opts.AlertMinScore).Msg("no windows worth a digest")
		return
	}
	fp := digest.Fingerprint()
	if fp == s.lastDigest {
		logger.Debug().Msg("digest unchanged since last send")
		return
	}

	delivered := false
	for _, n := range s.deps.Notifiers {
		err := n.Notify(ctx, digest)
		if s.deps.Metrics != nil {
			s.deps.Metrics.Notification(n.Name(), err)
		}
		if err != nil {
			logger.Error().Err(err).Str("channel", n.Name()).Msg("failed to dispatch digest")
			continue
		}
		delivered = true
	}
	if delivered {
		s.lastDigest = fp
	}
}

func (s *Service) sourceError(source string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.SourceError(source)
	}
}

func (s *Service) flushMetrics(logger zerolog.Logger) {
	if s.deps.Metrics == nil {
		return
	}
	if err := s.deps.Metrics.WriteTextfile(s.opts.MetricsPath); err != nil {
		logger.Warn().Err(err).Str("path", s.opts.MetricsPath).Msg("failed to write metrics textfile")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.opts.LockKey == 0 || s.deps.Locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.deps.Locker.TryAdvisoryLock(ctx, s.opts.LockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
