package forecast

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultTemperatureF stands in when no overlapping hour reports a
// temperature.
const DefaultTemperatureF = 65.0

// WeatherSummary aggregates the hour buckets overlapping a window.
type WeatherSummary struct {
	AvgWindMph     float64
	AvgWindGustMph *float64
	AvgTempF       float64
	Forecasts      []string
	PrecipProbs    []float64
	Hours          int
}

// AggregateWeather summarises every hour bucket from the hour containing
// start through the hour containing end, inclusive. Missing buckets are
// skipped rather than zero filled.
func AggregateWeather(start, end time.Time, series WeatherSeries) WeatherSummary {
	var (
		winds     []float64
		gusts     []float64
		temps     []float64
		forecasts []string
		pops      []float64
	)

	last := HourKey(end)
	for hour := HourKey(start); !hour.After(last); hour = hour.Add(time.Hour) {
		rec, ok := series.Hours[hour]
		if !ok {
			continue
		}
		winds = append(winds, rec.WindMph)
		switch {
		case !series.GustsTracked:
			gusts = append(gusts, 0)
		case rec.WindGustMph != nil:
			gusts = append(gusts, *rec.WindGustMph)
		}
		if rec.TemperatureF != nil {
			temps = append(temps, *rec.TemperatureF)
		}
		forecasts = append(forecasts, rec.ShortForecast)
		pops = append(pops, rec.PrecipProbability)
	}

	summary := WeatherSummary{
		AvgTempF:    DefaultTemperatureF,
		Forecasts:   forecasts,
		PrecipProbs: pops,
		Hours:       len(winds),
	}
	if len(winds) > 0 {
		summary.AvgWindMph = stat.Mean(winds, nil)
	}
	if len(gusts) > 0 {
		g := stat.Mean(gusts, nil)
		summary.AvgWindGustMph = &g
	}
	if len(temps) > 0 {
		summary.AvgTempF = stat.Mean(temps, nil)
	}
	return summary
}
