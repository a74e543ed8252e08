// Package scoring maps aggregated window weather to a half-star score.
package scoring

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Band awards Points when the measured value is below Below. Bands are
// evaluated in ascending order of Below; a band with Below == 0 is
// open-ended and catches anything the earlier bands did not.
type Band struct {
	Below  float64
	Points decimal.Decimal
}

// Threshold awards Points when the measured value exceeds Above.
type Threshold struct {
	Above  float64
	Points decimal.Decimal
}

// Table holds every tunable constant of the cascade.
type Table struct {
	Base          decimal.Decimal
	MaxWindMph    float64
	MaxGustMph    float64
	FogContains   []string
	FogExact      []string
	WindBands     []Band
	GustPenalties []Threshold
	PrecipPenalty decimal.Decimal
	TempBands     []Band
	SunsetBonus   decimal.Decimal
	MinScore      decimal.Decimal
	MaxScore      decimal.Decimal
	Step          decimal.Decimal
}

// DefaultTable returns the production tiers.
func DefaultTable() Table {
	return Table{
		Base:        decimal.RequireFromString("3.0"),
		MaxWindMph:  10,
		MaxGustMph:  11,
		FogContains: []string{"dense fog", "widespread fog"},
		FogExact:    []string{"fog"},
		WindBands: []Band{
			{Below: 2.2, Points: decimal.RequireFromString("2.0")},
			{Below: 3.4, Points: decimal.RequireFromString("1.2")},
			{Below: 5.6, Points: decimal.RequireFromString("0.8")},
			{Below: 0, Points: decimal.RequireFromString("0.3")},
		},
		GustPenalties: []Threshold{
			{Above: 6.7, Points: decimal.RequireFromString("-0.5")},
			{Above: 4.5, Points: decimal.RequireFromString("-0.3")},
		},
		PrecipPenalty: decimal.RequireFromString("-1.0"),
		TempBands: []Band{
			{Below: 45, Points: decimal.RequireFromString("-1.5")},
			{Below: 50, Points: decimal.RequireFromString("-1.0")},
			{Below: 55, Points: decimal.RequireFromString("-0.5")},
		},
		SunsetBonus: decimal.RequireFromString("0.5"),
		MinScore:    decimal.Zero,
		MaxScore:    decimal.NewFromInt(5),
		Step:        decimal.RequireFromString("0.5"),
	}
}

// Validate checks band ordering and score bounds.
func (t Table) Validate() error {
	if err := checkBands("wind", t.WindBands); err != nil {
		return err
	}
	if err := checkBands("temperature", t.TempBands); err != nil {
		return err
	}
	for i := 1; i < len(t.GustPenalties); i++ {
		if t.GustPenalties[i].Above >= t.GustPenalties[i-1].Above {
			return fmt.Errorf("gust penalties must be ordered by descending threshold")
		}
	}
	if t.MaxWindMph <= 0 || t.MaxGustMph <= 0 {
		return fmt.Errorf("wind and gust gates must be positive")
	}
	if !t.Step.IsPositive() {
		return fmt.Errorf("score step must be positive")
	}
	if t.MaxScore.LessThanOrEqual(t.MinScore) {
		return fmt.Errorf("max score must exceed min score")
	}
	return nil
}

func checkBands(name string, bands []Band) error {
	for i := 1; i < len(bands); i++ {
		prev := bands[i-1].Below
		cur := bands[i].Below
		if prev == 0 {
			return fmt.Errorf("%s band %d follows an open-ended band", name, i)
		}
		if cur != 0 && cur <= prev {
			return fmt.Errorf("%s bands must be ordered by ascending bound", name)
		}
	}
	return nil
}

// Rule is one step of the cascade. A matching gate rule zeroes the score and
// stops evaluation; any other matching rule adds Delta.
type Rule struct {
	Name  string
	Gate  bool
	Delta decimal.Decimal
	When  func(Input) bool
}

// Rules expands a table into the ordered cascade: gates, wind bands, gust
// penalties, precipitation, temperature bands, sunset bonus.
func Rules(t Table) []Rule {
	rules := []Rule{
		{
			Name: "wind_gate",
			Gate: true,
			When: func(in Input) bool { return in.AvgWindMph > t.MaxWindMph },
		},
		{
			Name: "fog_gate",
			Gate: true,
			When: func(in Input) bool { return hasFog(in.Forecasts, t.FogContains, t.FogExact) },
		},
		{
			Name: "gust_gate",
			Gate: true,
			When: func(in Input) bool { return in.AvgWindGustMph != nil && *in.AvgWindGustMph > t.MaxGustMph },
		},
	}

	rules = append(rules, bandRules("wind", t.WindBands, func(in Input) float64 { return in.AvgWindMph })...)

	for i, th := range t.GustPenalties {
		above := th.Above
		ceiling := 0.0
		if i > 0 {
			ceiling = t.GustPenalties[i-1].Above
		}
		first := i == 0
		rules = append(rules, Rule{
			Name:  fmt.Sprintf("gust_over_%g", above),
			Delta: th.Points,
			When: func(in Input) bool {
				if in.AvgWindGustMph == nil {
					return false
				}
				g := *in.AvgWindGustMph
				return g > above && (first || g <= ceiling)
			},
		})
	}

	rules = append(rules, Rule{
		Name:  "precipitation",
		Delta: t.PrecipPenalty,
		When: func(in Input) bool {
			for _, p := range in.PrecipProbs {
				if p > 0 {
					return true
				}
			}
			return false
		},
	})

	rules = append(rules, bandRules("temp", t.TempBands, func(in Input) float64 { return in.AvgTempF })...)

	rules = append(rules, Rule{
		Name:  "sunset_bonus",
		Delta: t.SunsetBonus,
		When:  func(in Input) bool { return in.SunsetBonus },
	})
	return rules
}

func bandRules(prefix string, bands []Band, measure func(Input) float64) []Rule {
	rules := make([]Rule, 0, len(bands))
	for i, b := range bands {
		below := b.Below
		floor := 0.0
		hasFloor := i > 0
		if hasFloor {
			floor = bands[i-1].Below
		}
		name := fmt.Sprintf("%s_below_%g", prefix, below)
		if below == 0 {
			name = fmt.Sprintf("%s_from_%g", prefix, floor)
		}
		rules = append(rules, Rule{
			Name:  name,
			Delta: b.Points,
			When: func(in Input) bool {
				v := measure(in)
				if hasFloor && v < floor {
					return false
				}
				return below == 0 || v < below
			},
		})
	}
	return rules
}

func hasFog(forecasts []string, contains, exact []string) bool {
	for _, f := range forecasts {
		text := strings.ToLower(strings.TrimSpace(f))
		if text == "" {
			continue
		}
		for _, e := range exact {
			if text == strings.ToLower(e) {
				return true
			}
		}
		for _, c := range contains {
			if strings.Contains(text, strings.ToLower(c)) {
				return true
			}
		}
	}
	return false
}
