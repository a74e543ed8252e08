package scoring

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Input carries the aggregated signals of one window.
type Input struct {
	AvgWindMph     float64
	AvgWindGustMph *float64
	AvgTempF       float64
	Forecasts      []string
	PrecipProbs    []float64
	SunsetBonus    bool
}

// Result is the finalised score of one window.
type Result struct {
	Score      float64
	Raw        decimal.Decimal
	Conditions string
	GatedBy    string
	Applied    []string
}

// Scorer evaluates the rule cascade. It holds no mutable state and is safe
// to reuse across windows.
type Scorer struct {
	table Table
	rules []Rule
}

// NewScorer validates table and expands it into rules.
func NewScorer(table Table) (*Scorer, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("scoring table: %w", err)
	}
	return &Scorer{table: table, rules: Rules(table)}, nil
}

// Table returns the table the scorer was built from.
func (s *Scorer) Table() Table {
	return s.table
}

// Score runs the cascade for in.
func (s *Scorer) Score(in Input) Result {
	res := Result{Conditions: Summarize(in.Forecasts, in.AvgWindMph)}

	total := s.table.Base
	for _, rule := range s.rules {
		if !rule.When(in) {
			continue
		}
		res.Applied = append(res.Applied, rule.Name)
		if rule.Gate {
			res.GatedBy = rule.Name
			res.Raw = decimal.Zero
			res.Score = 0
			return res
		}
		total = total.Add(rule.Delta)
	}

	res.Raw = total
	res.Score = s.finalize(total).InexactFloat64()
	return res
}

// finalize clamps to [MinScore, MaxScore] and then rounds to the nearest
// Step, with ties rounded up.
func (s *Scorer) finalize(v decimal.Decimal) decimal.Decimal {
	if v.LessThan(s.table.MinScore) {
		v = s.table.MinScore
	}
	if v.GreaterThan(s.table.MaxScore) {
		v = s.table.MaxScore
	}
	return v.Div(s.table.Step).Round(0).Mul(s.table.Step)
}
