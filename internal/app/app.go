package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"paddlecast/internal/alerting"
	"paddlecast/internal/artifact"
	"paddlecast/internal/config"
	"paddlecast/internal/fetcher"
	"paddlecast/internal/metrics"
	"paddlecast/internal/scheduler"
	"paddlecast/internal/service"
	"paddlecast/internal/storage"
	"paddlecast/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) clientOptions() fetcher.ClientOptions {
	src := a.Config.Sources
	ua := src.UserAgent
	if ua == "" {
		ua = version.UserAgent(a.Config.App.Name, src.Contact)
	}
	return fetcher.ClientOptions{
		Timeout:          src.Timeout,
		UserAgent:        ua,
		MaxRetries:       src.MaxRetries,
		MinWait:          src.RetryMinWait,
		MaxWait:          src.RetryMaxWait,
		BreakerThreshold: src.BreakerThreshold,
		BreakerCooldown:  src.BreakerCooldown,
	}
}

// newSources wires every upstream in configured priority order. Each source
// gets its own client so one failing upstream cannot trip another's breaker.
func (a *App) newSources(zone *time.Location) (fetcher.TideSource, *fetcher.RankedWeather, *fetcher.AstronomyChain, error) {
	cfg := a.Config
	opts := a.clientOptions()
	loc := cfg.Location

	tides := fetcher.NewNOAA(fetcher.NOAAOptions{
		BaseURL:     cfg.Sources.NOAABaseURL,
		StationID:   loc.TideStationID,
		IntervalMin: cfg.Sources.TideIntervalMin,
		Application: cfg.App.Name,
	}, fetcher.NewClient("noaa", opts, a.Logger), zone, a.Logger)

	var weather []fetcher.WeatherSource
	for _, name := range cfg.Sources.WeatherProviders {
		switch name {
		case "nws":
			weather = append(weather, fetcher.NewNWS(fetcher.NWSOptions{
				BaseURL: cfg.Sources.NWSBaseURL,
				Lat:     loc.Lat,
				Lon:     loc.Lon,
			}, fetcher.NewClient("nws", opts, a.Logger), a.Logger))
		case "open-meteo":
			weather = append(weather, fetcher.NewOpenMeteo(fetcher.OpenMeteoOptions{
				BaseURL: cfg.Sources.OpenMeteoBaseURL,
				Lat:     loc.Lat,
				Lon:     loc.Lon,
				Days:    cfg.Thresholds.DaysAhead + 1,
			}, fetcher.NewClient("open-meteo", opts, a.Logger), a.Logger))
		default:
			return nil, nil, nil, fmt.Errorf("unknown weather provider %q", name)
		}
	}

	var sky []fetcher.AstronomySource
	for _, name := range cfg.Sources.AstronomyProviders {
		switch name {
		case "met-norway":
			sky = append(sky, fetcher.NewMetNorway(fetcher.MetNorwayOptions{
				BaseURL: cfg.Sources.MetNorwayBaseURL,
				Lat:     loc.Lat,
				Lon:     loc.Lon,
			}, fetcher.NewClient("met-norway", opts, a.Logger), zone, a.Logger))
		case "sunrise-sunset":
			sky = append(sky, fetcher.NewSunriseSunset(cfg.Sources.SunriseSunsetURL, loc.Lat, loc.Lon,
				fetcher.NewClient("sunrise-sunset", opts, a.Logger), zone, a.Logger))
		case "local":
			sky = append(sky, fetcher.NewLocalSky(loc.Lat, loc.Lon, zone))
		default:
			return nil, nil, nil, fmt.Errorf("unknown astronomy provider %q", name)
		}
	}

	return tides, fetcher.NewRankedWeather(a.Logger, weather...), fetcher.NewAstronomyChain(a.Logger, sky...), nil
}

func (a *App) newNotifiers() []alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	var out []alerting.Notifier
	if tg := a.Config.Alerting.Telegram; tg.Enabled {
		out = append(out, alerting.NewTelegramNotifier(tg.BotToken, tg.ChatID, tg.APIBase, tg.Timeout, a.Logger))
	}
	return out
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if !a.Config.Database.Enabled() {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, store.Close, nil
}

// newService wires the pipeline. The returned cleanup closes the store.
func (a *App) newService(ctx context.Context) (*service.Service, func(), error) {
	zone, err := a.Config.Location.Zone()
	if err != nil {
		return nil, nil, err
	}
	table, err := a.Config.ScoringTable()
	if err != nil {
		return nil, nil, err
	}
	tides, weather, sky, err := a.newSources(zone)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {}
	if closeStore != nil {
		cleanup = closeStore
	}

	deps := service.Dependencies{
		Tides:     tides,
		Weather:   weather,
		Astronomy: sky,
		Writer:    artifact.NewWriter(a.Config.Output.Path, a.Config.Output.Pretty, a.Config.Output.Gzip),
		Notifiers: a.newNotifiers(),
		Metrics:   metrics.NewRecorder(a.Config.Metrics.Namespace),
	}
	if store != nil {
		deps.Artifacts = store
		deps.Runs = store
		deps.Locker = store
	} else {
		a.Logger.Debug().Msg("database.dsn not configured; mirror disabled")
	}

	svc, err := service.New(service.Options{
		Location:      a.Config.Location.Name,
		Zone:          zone,
		DaysAhead:     a.Config.Thresholds.DaysAhead,
		Run:           a.Config.RunConfig(),
		Table:         table,
		LockKey:       a.Config.Database.AdvisoryLockKey,
		RunRetention:  a.Config.Database.RunRetention,
		AlertsEnabled: a.Config.Alerting.Enabled,
		AlertMinScore: a.Config.Alerting.MinScore,
		AlertMax:      a.Config.Alerting.MaxWindows,
		MetricsPath:   a.Config.Metrics.TextfilePath,
	}, deps, a.Logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

// RunOptions configure a one-shot build.
type RunOptions struct {
	// DryRun prints the document to Out instead of publishing it.
	DryRun bool
}

// Run performs a single build and exits, the cron-driven deployment mode.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, cleanup, err := a.newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if opts.DryRun {
		res, err := svc.Build(ctx)
		if err != nil {
			return err
		}
		data, err := artifact.Marshal(res.Document, true)
		if err != nil {
			return err
		}
		_, err = a.Out.Write(data)
		return err
	}

	res, err := svc.RunOnce(ctx)
	if err != nil {
		return err
	}
	if res.Skipped {
		a.Logger.Warn().Msg("another writer holds the lock; nothing published")
	}
	return nil
}

// Serve runs builds on the configured schedule until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, cleanup, err := a.newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sched, err := scheduler.New(scheduler.Options{
		Interval:      a.Config.Scheduler.Interval,
		AlignToBucket: a.Config.Scheduler.AlignToBucket,
		StartupDelay:  a.Config.Scheduler.StartupDelay,
		RunOnStart:    true,
		TickTimeout:   a.Config.Scheduler.RunTimeout,
	}, a.Logger)
	if err != nil {
		return err
	}

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("starting forecast loop")
	err = sched.Run(ctx, svc.Tick)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("forecast loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("forecast loop stopped")
	return nil
}
