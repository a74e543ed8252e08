package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"paddlecast/internal/forecast"
)

const nwsSource = "nws"

// NWSOptions parameterise the National Weather Service fetcher.
type NWSOptions struct {
	BaseURL string
	Lat     float64
	Lon     float64
}

// NWS fetches the hourly gridpoint forecast. The gridpoint URL is resolved
// once from the points endpoint and reused.
type NWS struct {
	opts    NWSOptions
	client  *Client
	logger  zerolog.Logger
	baseURL string

	hourlyURL string
	hourlyMux sync.Mutex
}

// NewNWS constructs an NWS weather source.
func NewNWS(opts NWSOptions, client *Client, logger zerolog.Logger) *NWS {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.weather.gov"
	}
	return &NWS{
		opts:    opts,
		client:  client,
		logger:  logger.With().Str("component", "nws_fetcher").Logger(),
		baseURL: baseURL,
	}
}

// Name implements WeatherSource.
func (n *NWS) Name() string { return nwsSource }

// GustsTracked implements WeatherSource.
func (n *NWS) GustsTracked() bool { return true }

type nwsPoints struct {
	Properties struct {
		GridID         string `json:"gridId"`
		GridX          int    `json:"gridX"`
		GridY          int    `json:"gridY"`
		ForecastHourly string `json:"forecastHourly"`
	} `json:"properties"`
}

type nwsHourly struct {
	Properties struct {
		Periods []nwsPeriod `json:"periods"`
	} `json:"properties"`
}

type nwsPeriod struct {
	StartTime                  string   `json:"startTime"`
	Temperature                *float64 `json:"temperature"`
	TemperatureUnit            string   `json:"temperatureUnit"`
	WindSpeed                  string   `json:"windSpeed"`
	WindGust                   *string  `json:"windGust"`
	WindDirection              string   `json:"windDirection"`
	Icon                       string   `json:"icon"`
	ShortForecast              string   `json:"shortForecast"`
	ProbabilityOfPrecipitation struct {
		Value *float64 `json:"value"`
	} `json:"probabilityOfPrecipitation"`
}

// FetchHourly implements WeatherSource.
func (n *NWS) FetchHourly(ctx context.Context) ([]forecast.HourlyWeather, error) {
	hourlyURL, err := n.resolveHourly(ctx)
	if err != nil {
		return nil, err
	}

	var payload nwsHourly
	if err := n.client.GetJSON(ctx, hourlyURL, nil, &payload); err != nil {
		return nil, err
	}

	out := make([]forecast.HourlyWeather, 0, len(payload.Properties.Periods))
	for _, p := range payload.Properties.Periods {
		start, err := time.Parse(time.RFC3339, strings.TrimSpace(p.StartTime))
		if err != nil {
			return nil, &forecast.DataShapeError{Source: nwsSource, Field: "startTime", Err: fmt.Errorf("parse %q: %w", p.StartTime, err)}
		}
		rec := forecast.HourlyWeather{
			Hour:          start,
			WindDirection: p.WindDirection,
			Icon:          p.Icon,
			ShortForecast: p.ShortForecast,
		}
		if mph, ok := ParseWindSpeed(p.WindSpeed); ok {
			rec.WindMph = mph
		}
		if p.WindGust != nil {
			if mph, ok := ParseWindSpeed(*p.WindGust); ok {
				rec.WindGustMph = &mph
			}
		}
		if p.Temperature != nil {
			temp := *p.Temperature
			if strings.EqualFold(p.TemperatureUnit, "C") {
				temp = temp*9/5 + 32
			}
			rec.TemperatureF = &temp
		}
		if v := p.ProbabilityOfPrecipitation.Value; v != nil {
			rec.PrecipProbability = *v
		}
		out = append(out, rec)
	}

	n.logger.Debug().Int("periods", len(out)).Msg("hourly forecast fetched")
	return out, nil
}

func (n *NWS) resolveHourly(ctx context.Context) (string, error) {
	n.hourlyMux.Lock()
	defer n.hourlyMux.Unlock()

	if n.hourlyURL != "" {
		return n.hourlyURL, nil
	}

	endpoint := fmt.Sprintf("%s/points/%s,%s", n.baseURL, formatCoord(n.opts.Lat), formatCoord(n.opts.Lon))
	var points nwsPoints
	if err := n.client.GetJSON(ctx, endpoint, nil, &points); err != nil {
		return "", err
	}

	props := points.Properties
	switch {
	case props.ForecastHourly != "" && strings.HasPrefix(props.ForecastHourly, n.baseURL):
		n.hourlyURL = props.ForecastHourly
	case props.GridID != "":
		n.hourlyURL = fmt.Sprintf("%s/gridpoints/%s/%d,%d/forecast/hourly", n.baseURL, props.GridID, props.GridX, props.GridY)
	default:
		return "", &forecast.DataShapeError{Source: nwsSource, Field: "properties.gridId", Err: errors.New("points response has no grid")}
	}

	n.logger.Info().Str("hourly_url", n.hourlyURL).Msg("resolved gridpoint")
	return n.hourlyURL, nil
}

// ParseWindSpeed reads NWS wind text such as "5 mph" or "10 to 15 mph" and
// returns the mean of the numbers it contains.
func ParseWindSpeed(text string) (float64, bool) {
	fields := strings.Fields(strings.NewReplacer("-", " ", "mph", " ").Replace(strings.ToLower(text)))
	var sum float64
	var count int
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// formatCoord trims coordinates to four decimals; the points endpoint
// redirects on anything longer.
func formatCoord(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}

var _ WeatherSource = (*NWS)(nil)
