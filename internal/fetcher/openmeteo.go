package fetcher

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"paddlecast/internal/forecast"
)

const openMeteoSource = "open-meteo"

// OpenMeteoOptions parameterise the Open-Meteo fallback fetcher.
type OpenMeteoOptions struct {
	BaseURL string
	Lat     float64
	Lon     float64
	Days    int
}

// OpenMeteo fetches the hourly forecast from Open-Meteo in imperial units.
type OpenMeteo struct {
	opts    OpenMeteoOptions
	client  *Client
	logger  zerolog.Logger
	baseURL string
}

// NewOpenMeteo constructs an Open-Meteo weather source.
func NewOpenMeteo(opts OpenMeteoOptions, client *Client, logger zerolog.Logger) *OpenMeteo {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.open-meteo.com/v1/forecast"
	}
	if opts.Days <= 0 {
		opts.Days = 7
	}
	return &OpenMeteo{
		opts:    opts,
		client:  client,
		logger:  logger.With().Str("component", "openmeteo_fetcher").Logger(),
		baseURL: baseURL,
	}
}

// Name implements WeatherSource.
func (o *OpenMeteo) Name() string { return openMeteoSource }

// GustsTracked implements WeatherSource.
func (o *OpenMeteo) GustsTracked() bool { return true }

type openMeteoResponse struct {
	Hourly struct {
		Time          []int64    `json:"time"`
		Temperature   []*float64 `json:"temperature_2m"`
		PrecipProb    []*float64 `json:"precipitation_probability"`
		WeatherCode   []*int     `json:"weather_code"`
		WindSpeed     []*float64 `json:"wind_speed_10m"`
		WindGusts     []*float64 `json:"wind_gusts_10m"`
		WindDirection []*float64 `json:"wind_direction_10m"`
	} `json:"hourly"`
}

// FetchHourly implements WeatherSource.
func (o *OpenMeteo) FetchHourly(ctx context.Context) ([]forecast.HourlyWeather, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(o.opts.Lat, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(o.opts.Lon, 'f', -1, 64))
	query.Set("hourly", "temperature_2m,precipitation_probability,weather_code,wind_speed_10m,wind_gusts_10m,wind_direction_10m")
	query.Set("wind_speed_unit", "mph")
	query.Set("temperature_unit", "fahrenheit")
	query.Set("timeformat", "unixtime")
	query.Set("timezone", "UTC")
	query.Set("forecast_days", strconv.Itoa(o.opts.Days))

	var payload openMeteoResponse
	if err := o.client.GetJSON(ctx, o.baseURL, query, &payload); err != nil {
		return nil, err
	}

	h := payload.Hourly
	out := make([]forecast.HourlyWeather, 0, len(h.Time))
	for i, ts := range h.Time {
		rec := forecast.HourlyWeather{Hour: time.Unix(ts, 0).UTC()}
		if v := valueAt(h.WindSpeed, i); v != nil {
			rec.WindMph = *v
		}
		rec.WindGustMph = valueAt(h.WindGusts, i)
		rec.TemperatureF = valueAt(h.Temperature, i)
		if v := valueAt(h.PrecipProb, i); v != nil {
			rec.PrecipProbability = *v
		}
		if v := valueAt(h.WindDirection, i); v != nil {
			rec.WindDirection = Compass(*v)
		}
		if i < len(h.WeatherCode) && h.WeatherCode[i] != nil {
			rec.ShortForecast = WeatherCodeText(*h.WeatherCode[i])
		}
		out = append(out, rec)
	}

	o.logger.Debug().Int("hours", len(out)).Msg("hourly forecast fetched")
	return out, nil
}

func valueAt(values []*float64, i int) *float64 {
	if i >= len(values) || values[i] == nil {
		return nil
	}
	v := *values[i]
	return &v
}

var weatherCodes = map[int]string{
	0:  "Clear",
	1:  "Mostly Clear",
	2:  "Partly Cloudy",
	3:  "Cloudy",
	45: "Fog",
	48: "Fog",
	51: "Light Drizzle",
	53: "Drizzle",
	55: "Heavy Drizzle",
	56: "Freezing Drizzle",
	57: "Freezing Drizzle",
	61: "Light Rain",
	63: "Rain",
	65: "Heavy Rain",
	66: "Freezing Rain",
	67: "Freezing Rain",
	71: "Light Snow",
	73: "Snow",
	75: "Heavy Snow",
	77: "Snow Grains",
	80: "Rain Showers",
	81: "Rain Showers",
	82: "Heavy Rain Showers",
	85: "Snow Showers",
	86: "Snow Showers",
	95: "Thunderstorms",
	96: "Thunderstorms With Hail",
	99: "Thunderstorms With Hail",
}

// WeatherCodeText maps a WMO weather interpretation code to a short
// forecast phrase in the style NWS uses.
func WeatherCodeText(code int) string {
	if text, ok := weatherCodes[code]; ok {
		return text
	}
	return fmt.Sprintf("Code %d", code)
}

var compassPoints = []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}

// Compass converts a bearing in degrees to a 16-point compass direction.
func Compass(deg float64) string {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	idx := int(math.Round(deg/22.5)) % len(compassPoints)
	return compassPoints[idx]
}

var _ WeatherSource = (*OpenMeteo)(nil)
