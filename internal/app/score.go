package app

import (
	"fmt"
	"io"
	"strings"

	"paddlecast/internal/scoring"
)

// ScoreOptions describe an ad-hoc window for the score command.
type ScoreOptions struct {
	WindMph     float64
	GustMph     *float64
	TempF       float64
	Forecasts   []string
	PrecipProbs []float64
	Sunset      bool
}

// Score evaluates the configured cascade for opts and prints each rule that
// fired.
func (a *App) Score(opts ScoreOptions) error {
	table, err := a.Config.ScoringTable()
	if err != nil {
		return err
	}
	scorer, err := scoring.NewScorer(table)
	if err != nil {
		return err
	}

	res := scorer.Score(scoring.Input{
		AvgWindMph:     opts.WindMph,
		AvgWindGustMph: opts.GustMph,
		AvgTempF:       opts.TempF,
		Forecasts:      opts.Forecasts,
		PrecipProbs:    opts.PrecipProbs,
		SunsetBonus:    opts.Sunset,
	})
	return renderScore(a.Out, res)
}

func renderScore(out io.Writer, res scoring.Result) error {
	rules := "none"
	if len(res.Applied) > 0 {
		rules = strings.Join(res.Applied, ", ")
	}
	_, err := fmt.Fprintf(out, "score: %.1f\nraw: %s\nconditions: %s\nrules: %s\n", res.Score, res.Raw.String(), res.Conditions, rules)
	if err != nil {
		return err
	}
	if res.GatedBy != "" {
		_, err = fmt.Fprintf(out, "gated by: %s\n", res.GatedBy)
	}
	return err
}
