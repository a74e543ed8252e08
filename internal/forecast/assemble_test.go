package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paddlecast/internal/scoring"
)

func newTestAssembler(t *testing.T, cfg RunConfig) *Assembler {
	t.Helper()
	scorer, err := scoring.NewScorer(scoring.DefaultTable())
	require.NoError(t, err)
	asm, err := NewAssembler(cfg, scorer, pacific)
	require.NoError(t, err)
	return asm
}

// twoRunDay is low except for a pre-dawn run 03:00-04:30 and an evening run
// 17:00-20:00.
func twoRunDay() []TidePoint {
	heights := flat(96, 1.0)
	for i := 12; i <= 18; i++ {
		heights[i] = 4.0
	}
	for i := 68; i <= 80; i++ {
		heights[i] = 3.6
	}
	return series(at(0, 0), heights...)
}

func calmWeather() []HourlyWeather {
	out := make([]HourlyWeather, 0, 24)
	for h := 0; h < 24; h++ {
		out = append(out, hour(h, 1.5, nil, ptr(70), "Sunny", 0))
	}
	return out
}

func TestAssembleScoresDaylightWindows(t *testing.T) {
	asm := newTestAssembler(t, testConfig())
	in := NewIngestor(pacific)

	days, err := asm.Assemble(at(12, 0), 2, Inputs{
		Tides:     twoRunDay(),
		Weather:   in.Weather("nws", true, calmWeather()),
		Astronomy: map[string]Astronomy{"2025-08-07": sampleAstronomy()},
	})
	require.NoError(t, err)
	require.Len(t, days, 2)

	day := days[0]
	assert.Equal(t, "2025-08-07", DayKey(day.Date))
	assert.Len(t, day.TidePoints, 96)
	assert.Len(t, day.WeatherPoints, 24)

	// The pre-dawn run is outside daylight; the evening run splits 17-19, 19-20.
	require.Len(t, day.Windows, 2)
	first, second := day.Windows[0], day.Windows[1]
	assert.True(t, first.Start.Equal(at(17, 0)))
	assert.True(t, first.End.Equal(at(19, 0)))
	assert.True(t, second.End.Equal(at(20, 0)))

	// Both touch the 45 minute pre-sunset band and score the maximum.
	assert.Equal(t, 5.0, first.Score)
	assert.Equal(t, 5.0, second.Score)
	assert.Equal(t, "Sunny, light winds (2 mph)", first.Conditions)

	assert.Empty(t, days[1].Windows)
	assert.Empty(t, days[1].TidePoints)
}

func TestAssembleKeepsNightWindowsWhenDaylightFilterOff(t *testing.T) {
	cfg := testConfig()
	cfg.DaylightOnly = false
	asm := newTestAssembler(t, cfg)

	days, err := asm.Assemble(at(0, 0), 1, Inputs{
		Tides:     twoRunDay(),
		Astronomy: map[string]Astronomy{"2025-08-07": sampleAstronomy()},
	})
	require.NoError(t, err)
	require.Len(t, days[0].Windows, 3)
	assert.True(t, days[0].Windows[0].Start.Equal(at(3, 0)))
	// No weather at all: default temperature, zero wind, no penalties.
	assert.Equal(t, 5.0, days[0].Windows[0].Score)
}

func TestAssembleUsesNextDayBufferPoint(t *testing.T) {
	cfg := testConfig()
	cfg.DaylightOnly = false
	asm := newTestAssembler(t, cfg)

	heights := flat(96, 1.0)
	for i := 88; i < 96; i++ { // 22:00-23:45
		heights[i] = 4.0
	}
	tides := append(series(at(0, 0), heights...), TidePoint{Time: at(0, 0).AddDate(0, 0, 1), HeightFt: 4.0})

	days, err := asm.Assemble(at(0, 0), 1, Inputs{Tides: tides})
	require.NoError(t, err)
	require.Len(t, days[0].Windows, 1)
	assert.Equal(t, 2*time.Hour, days[0].Windows[0].Duration())
}

func TestAssembleIsDeterministic(t *testing.T) {
	asm := newTestAssembler(t, testConfig())
	in := NewIngestor(pacific)
	inputs := Inputs{
		Tides:     twoRunDay(),
		Weather:   in.Weather("nws", true, calmWeather()),
		Astronomy: map[string]Astronomy{"2025-08-07": sampleAstronomy()},
	}

	a, err := asm.Assemble(at(0, 0), 1, inputs)
	require.NoError(t, err)
	b, err := asm.Assemble(at(0, 0), 1, inputs)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAssemblePropagatesDataError(t *testing.T) {
	asm := newTestAssembler(t, testConfig())
	tides := series(at(8, 0), 4, 4, 4)
	tides[2].Time = tides[1].Time

	_, err := asm.Assemble(at(0, 0), 1, Inputs{Tides: tides})
	require.Error(t, err)
	var dataErr *DataError
	assert.ErrorAs(t, err, &dataErr)
}
