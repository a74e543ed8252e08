package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"paddlecast/internal/forecast"
	"paddlecast/internal/logging"
	"paddlecast/internal/scoring"
)

// EnvPrefix prefixes every environment override, e.g.
// PADDLECAST_THRESHOLDS_MIN_TIDE_FT.
const EnvPrefix = "PADDLECAST"

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Location   LocationConfig   `mapstructure:"location"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Output     OutputConfig     `mapstructure:"output"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment"`
}

// LocationConfig identifies the forecast site.
type LocationConfig struct {
	Name          string  `mapstructure:"name" validate:"required"`
	Lat           float64 `mapstructure:"lat" validate:"gte=-90,lte=90"`
	Lon           float64 `mapstructure:"lon" validate:"gte=-180,lte=180"`
	Timezone      string  `mapstructure:"timezone" validate:"required"`
	TideStationID string  `mapstructure:"tide_station_id" validate:"required,numeric"`
}

// ThresholdsConfig feeds forecast.RunConfig.
type ThresholdsConfig struct {
	MinTideFt         float64 `mapstructure:"min_tide_ft" validate:"gt=0"`
	MinDurationMin    int     `mapstructure:"min_duration_min" validate:"gt=0"`
	WindowBlockMin    int     `mapstructure:"window_block_min" validate:"gt=0"`
	DaylightBufferMin int     `mapstructure:"daylight_buffer_min" validate:"gte=0"`
	DaylightOnly      bool    `mapstructure:"daylight_only"`
	DaysAhead         int     `mapstructure:"days_ahead" validate:"gte=1,lte=14"`
}

// BandConfig is one ascending scoring band. Below == 0 means open-ended.
type BandConfig struct {
	Below  float64 `mapstructure:"below" validate:"gte=0"`
	Points float64 `mapstructure:"points"`
}

// PenaltyConfig is one gust threshold.
type PenaltyConfig struct {
	Above  float64 `mapstructure:"above" validate:"gt=0"`
	Points float64 `mapstructure:"points"`
}

// ScoringConfig holds the tier table of the scoring cascade.
type ScoringConfig struct {
	Base          float64         `mapstructure:"base"`
	MaxWindMph    float64         `mapstructure:"max_wind_mph" validate:"gt=0"`
	MaxGustMph    float64         `mapstructure:"max_gust_mph" validate:"gt=0"`
	FogContains   []string        `mapstructure:"fog_contains"`
	FogExact      []string        `mapstructure:"fog_exact"`
	WindBands     []BandConfig    `mapstructure:"wind_bands" validate:"dive"`
	GustPenalties []PenaltyConfig `mapstructure:"gust_penalties" validate:"dive"`
	PrecipPenalty float64         `mapstructure:"precip_penalty"`
	TempBands     []BandConfig    `mapstructure:"temp_bands" validate:"dive"`
	SunsetBonus   float64         `mapstructure:"sunset_bonus"`
	MinScore      float64         `mapstructure:"min_score"`
	MaxScore      float64         `mapstructure:"max_score"`
	Step          float64         `mapstructure:"step" validate:"gt=0"`
}

// SourcesConfig covers every upstream.
type SourcesConfig struct {
	UserAgent          string        `mapstructure:"user_agent"`
	Contact            string        `mapstructure:"contact"`
	Timeout            time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries         int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryMinWait       time.Duration `mapstructure:"retry_min_wait"`
	RetryMaxWait       time.Duration `mapstructure:"retry_max_wait"`
	BreakerThreshold   uint32        `mapstructure:"breaker_threshold"`
	BreakerCooldown    time.Duration `mapstructure:"breaker_cooldown"`
	WeatherProviders   []string      `mapstructure:"weather_providers" validate:"min=1,dive,oneof=nws open-meteo"`
	AstronomyProviders []string      `mapstructure:"astronomy_providers" validate:"dive,oneof=met-norway sunrise-sunset local"`
	TideIntervalMin    int           `mapstructure:"tide_interval_min" validate:"oneof=1 5 6 10 15 30 60"`
	NOAABaseURL        string        `mapstructure:"noaa_base_url" validate:"omitempty,url"`
	NWSBaseURL         string        `mapstructure:"nws_base_url" validate:"omitempty,url"`
	OpenMeteoBaseURL   string        `mapstructure:"open_meteo_base_url" validate:"omitempty,url"`
	MetNorwayBaseURL   string        `mapstructure:"met_norway_base_url" validate:"omitempty,url"`
	SunriseSunsetURL   string        `mapstructure:"sunrise_sunset_base_url" validate:"omitempty,url"`
}

// OutputConfig controls the published artifact.
type OutputConfig struct {
	Path   string `mapstructure:"path" validate:"required"`
	Gzip   bool   `mapstructure:"gzip"`
	Pretty bool   `mapstructure:"pretty"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. An empty DSN
// disables the mirror.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	// RunRetention bounds forecast_runs history; zero keeps everything.
	RunRetention    time.Duration `mapstructure:"run_retention" validate:"gte=0"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.DSN) != ""
}

// SchedulerConfig governs the serve loop cadence.
type SchedulerConfig struct {
	Interval      time.Duration `mapstructure:"interval" validate:"gt=0"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay" validate:"gte=0"`
	RunTimeout    time.Duration `mapstructure:"run_timeout" validate:"gt=0"`
}

// AlertingConfig defines the window digest.
type AlertingConfig struct {
	Enabled    bool           `mapstructure:"enabled"`
	MinScore   float64        `mapstructure:"min_score" validate:"gte=0,lte=5"`
	MaxWindows int            `mapstructure:"max_windows" validate:"gte=1"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram bot target.
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base" validate:"omitempty,url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"`
	Namespace    string `mapstructure:"namespace"`
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v, path != ""); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv exports variables from a dotenv file without overriding the
// real environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func readConfig(v *viper.Viper, explicit bool) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && !explicit {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "paddlecast")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.time_format", "")
	v.SetDefault("logging.caller", false)

	v.SetDefault("location.name", "Morro Bay Estuary")
	v.SetDefault("location.lat", 35.365)
	v.SetDefault("location.lon", -120.851)
	v.SetDefault("location.timezone", "America/Los_Angeles")
	v.SetDefault("location.tide_station_id", "9412110")

	v.SetDefault("thresholds.min_tide_ft", 2.5)
	v.SetDefault("thresholds.min_duration_min", 60)
	v.SetDefault("thresholds.window_block_min", 120)
	v.SetDefault("thresholds.daylight_buffer_min", 30)
	v.SetDefault("thresholds.daylight_only", true)
	v.SetDefault("thresholds.days_ahead", 7)

	table := scoring.DefaultTable()
	v.SetDefault("scoring.base", table.Base.InexactFloat64())
	v.SetDefault("scoring.max_wind_mph", table.MaxWindMph)
	v.SetDefault("scoring.max_gust_mph", table.MaxGustMph)
	v.SetDefault("scoring.fog_contains", table.FogContains)
	v.SetDefault("scoring.fog_exact", table.FogExact)
	v.SetDefault("scoring.wind_bands", bandDefaults(table.WindBands))
	v.SetDefault("scoring.gust_penalties", penaltyDefaults(table.GustPenalties))
	v.SetDefault("scoring.precip_penalty", table.PrecipPenalty.InexactFloat64())
	v.SetDefault("scoring.temp_bands", bandDefaults(table.TempBands))
	v.SetDefault("scoring.sunset_bonus", table.SunsetBonus.InexactFloat64())
	v.SetDefault("scoring.min_score", table.MinScore.InexactFloat64())
	v.SetDefault("scoring.max_score", table.MaxScore.InexactFloat64())
	v.SetDefault("scoring.step", table.Step.InexactFloat64())

	v.SetDefault("sources.user_agent", "")
	v.SetDefault("sources.contact", "github.com/kylenessen/PaddleCast")
	v.SetDefault("sources.timeout", "30s")
	v.SetDefault("sources.max_retries", 2)
	v.SetDefault("sources.retry_min_wait", "500ms")
	v.SetDefault("sources.retry_max_wait", "10s")
	v.SetDefault("sources.breaker_threshold", 5)
	v.SetDefault("sources.breaker_cooldown", "30s")
	v.SetDefault("sources.weather_providers", []string{"nws", "open-meteo"})
	v.SetDefault("sources.astronomy_providers", []string{"met-norway", "sunrise-sunset", "local"})
	v.SetDefault("sources.tide_interval_min", 15)
	v.SetDefault("sources.noaa_base_url", "https://api.tidesandcurrents.noaa.gov/api/prod/datagetter")
	v.SetDefault("sources.nws_base_url", "https://api.weather.gov")
	v.SetDefault("sources.open_meteo_base_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("sources.met_norway_base_url", "https://api.met.no/weatherapi/sunrise/3.0")
	v.SetDefault("sources.sunrise_sunset_base_url", "https://api.sunrise-sunset.org/json")

	v.SetDefault("output.path", "data/data.json")
	v.SetDefault("output.gzip", false)
	v.SetDefault("output.pretty", true)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.advisory_lock_key", int64(0x70616464))
	v.SetDefault("database.run_retention", "720h")

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.run_timeout", "5m")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.min_score", 4.0)
	v.SetDefault("alerting.max_windows", 5)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", "")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")

	v.SetDefault("metrics.textfile_path", "")
	v.SetDefault("metrics.namespace", "paddlecast")
}

func bandDefaults(bands []scoring.Band) []map[string]any {
	out := make([]map[string]any, 0, len(bands))
	for _, b := range bands {
		out = append(out, map[string]any{"below": b.Below, "points": b.Points.InexactFloat64()})
	}
	return out
}

func penaltyDefaults(ths []scoring.Threshold) []map[string]any {
	out := make([]map[string]any, 0, len(ths))
	for _, th := range ths {
		out = append(out, map[string]any{"above": th.Above, "points": th.Points.InexactFloat64()})
	}
	return out
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

var validate = newValidator()

// newValidator reports field paths using mapstructure keys so errors name
// the setting an operator would edit.
func newValidator() *validator.Validate {
	vd := validator.New(validator.WithRequiredStructEnabled())
	vd.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return vd
}

// Validate checks struct tags first and then cross-field rules. Every
// failure is a *forecast.ConfigError.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := fe.Namespace()
			if i := strings.IndexByte(field, '.'); i >= 0 {
				field = field[i+1:]
			}
			return &forecast.ConfigError{Field: field, Reason: fmt.Sprintf("failed %q check (value %v)", fe.Tag(), fe.Value())}
		}
		return &forecast.ConfigError{Field: "config", Reason: err.Error()}
	}

	if _, err := c.Location.Zone(); err != nil {
		return &forecast.ConfigError{Field: "location.timezone", Reason: err.Error()}
	}
	if err := c.RunConfig().Validate(); err != nil {
		return err
	}
	if _, err := c.ScoringTable(); err != nil {
		return &forecast.ConfigError{Field: "scoring", Reason: err.Error()}
	}
	if c.Scoring.MaxScore <= c.Scoring.MinScore {
		return &forecast.ConfigError{Field: "scoring.max_score", Reason: "must exceed scoring.min_score"}
	}
	if c.Alerting.Enabled && c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return &forecast.ConfigError{Field: "alerting.telegram.bot_token", Reason: "required when telegram is enabled"}
		}
		if c.Alerting.Telegram.ChatID == "" {
			return &forecast.ConfigError{Field: "alerting.telegram.chat_id", Reason: "required when telegram is enabled"}
		}
	}
	return nil
}

// Zone loads the configured IANA time zone.
func (l LocationConfig) Zone() (*time.Location, error) {
	return time.LoadLocation(l.Timezone)
}

// RunConfig projects the thresholds onto the forecast engine's settings.
func (c *Config) RunConfig() forecast.RunConfig {
	return forecast.RunConfig{
		MinTideFt:         c.Thresholds.MinTideFt,
		MinDurationMin:    c.Thresholds.MinDurationMin,
		WindowBlockMin:    c.Thresholds.WindowBlockMin,
		DaylightBufferMin: c.Thresholds.DaylightBufferMin,
		DaylightOnly:      c.Thresholds.DaylightOnly,
	}
}

// ScoringTable converts the scoring section into a validated table.
func (c *Config) ScoringTable() (scoring.Table, error) {
	s := c.Scoring
	table := scoring.Table{
		Base:          decimal.NewFromFloat(s.Base),
		MaxWindMph:    s.MaxWindMph,
		MaxGustMph:    s.MaxGustMph,
		FogContains:   s.FogContains,
		FogExact:      s.FogExact,
		PrecipPenalty: decimal.NewFromFloat(s.PrecipPenalty),
		SunsetBonus:   decimal.NewFromFloat(s.SunsetBonus),
		MinScore:      decimal.NewFromFloat(s.MinScore),
		MaxScore:      decimal.NewFromFloat(s.MaxScore),
		Step:          decimal.NewFromFloat(s.Step),
	}
	for _, b := range s.WindBands {
		table.WindBands = append(table.WindBands, scoring.Band{Below: b.Below, Points: decimal.NewFromFloat(b.Points)})
	}
	for _, b := range s.TempBands {
		table.TempBands = append(table.TempBands, scoring.Band{Below: b.Below, Points: decimal.NewFromFloat(b.Points)})
	}
	for _, p := range s.GustPenalties {
		table.GustPenalties = append(table.GustPenalties, scoring.Threshold{Above: p.Above, Points: decimal.NewFromFloat(p.Points)})
	}
	if err := table.Validate(); err != nil {
		return scoring.Table{}, err
	}
	return table, nil
}
