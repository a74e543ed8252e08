package forecast

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pacific = mustLoad("America/Los_Angeles")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("PST", -8*3600)
	}
	return loc
}

func at(hh, mm int) time.Time {
	return time.Date(2025, 8, 7, hh, mm, 0, 0, pacific)
}

// series builds 15 minute samples starting at start.
func series(start time.Time, heights ...float64) []TidePoint {
	out := make([]TidePoint, len(heights))
	for i, h := range heights {
		out[i] = TidePoint{Time: start.Add(time.Duration(i) * 15 * time.Minute), HeightFt: h}
	}
	return out
}

func testConfig() RunConfig {
	return RunConfig{MinTideFt: 3, MinDurationMin: 60, WindowBlockMin: 120, DaylightBufferMin: 30, DaylightOnly: true}
}

// flat returns n samples at height h.
func flat(n int, h float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = h
	}
	return out
}

func TestSegmentChunksRunIntoBlocks(t *testing.T) {
	// 07:00-07:45 low, 08:00-11:00 high (13 samples), 11:15-12:00 low.
	heights := append(flat(4, 2.0), flat(13, 3.5)...)
	heights = append(heights, flat(4, 2.0)...)
	points := series(at(7, 0), heights...)

	windows, err := NewSegmenter(testConfig()).Segment(points)
	require.NoError(t, err)
	require.Len(t, windows, 2)

	assert.True(t, windows[0].Start.Equal(at(8, 0)))
	assert.True(t, windows[0].End.Equal(at(10, 0)))
	assert.True(t, windows[1].Start.Equal(at(10, 0)))
	assert.True(t, windows[1].End.Equal(at(11, 0)))
	assert.InDelta(t, 3.5, windows[0].AvgTideFt, 1e-9)
}

func TestSegmentDropsShortRemainder(t *testing.T) {
	// 08:00-10:45 is 165 minutes: one block plus a 45 minute remainder.
	points := series(at(8, 0), flat(12, 4.0)...)

	windows, err := NewSegmenter(testConfig()).Segment(points)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, 120*time.Minute, windows[0].Duration())
}

func TestSegmentDiscardsShortRun(t *testing.T) {
	heights := append(flat(2, 1.0), flat(4, 3.2)...) // 45 minute run
	heights = append(heights, flat(2, 1.0)...)

	windows, err := NewSegmenter(testConfig()).Segment(series(at(9, 0), heights...))
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestSegmentEmptyAndBelowThreshold(t *testing.T) {
	seg := NewSegmenter(testConfig())

	windows, err := seg.Segment(nil)
	require.NoError(t, err)
	assert.Empty(t, windows)

	windows, err = seg.Segment(series(at(0, 0), flat(96, 1.5)...))
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestSegmentRejectsDisorderedTimestamps(t *testing.T) {
	seg := NewSegmenter(testConfig())

	dup := series(at(8, 0), 3, 3, 3)
	dup[2].Time = dup[1].Time
	_, err := seg.Segment(dup)
	var dataErr *DataError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, 2, dataErr.Index)

	backwards := series(at(8, 0), 3, 3, 3)
	backwards[1], backwards[2] = backwards[2], backwards[1]
	_, err = seg.Segment(backwards)
	require.True(t, errors.As(err, &dataErr))
}

func TestSegmentRunReachingInputEnd(t *testing.T) {
	points := series(at(22, 0), flat(9, 5.0)...) // 22:00-24:00

	windows, err := NewSegmenter(testConfig()).Segment(points)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.True(t, windows[0].End.Equal(at(22, 0).Add(2*time.Hour)))
}

func TestSegmentInvariantsOnSemidiurnalTide(t *testing.T) {
	cfg := RunConfig{MinTideFt: 2.5, MinDurationMin: 60, WindowBlockMin: 90}
	heights := make([]float64, 96)
	for i := range heights {
		hours := float64(i) / 4
		heights[i] = 3 + 2.5*math.Sin(2*math.Pi*hours/12.42)
	}
	points := series(at(0, 0), heights...)

	windows, err := NewSegmenter(cfg).Segment(points)
	require.NoError(t, err)
	require.NotEmpty(t, windows)

	for i, w := range windows {
		assert.True(t, w.Start.Before(w.End))
		assert.GreaterOrEqual(t, w.Duration(), cfg.MinDuration())
		assert.LessOrEqual(t, w.Duration(), cfg.WindowBlock())
		assert.GreaterOrEqual(t, w.AvgTideFt, cfg.MinTideFt)
		if i > 0 {
			assert.False(t, w.Start.Before(windows[i-1].End), "windows overlap")
		}
	}
}

func TestRunConfigValidate(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.MinDurationMin = -5
	var cfgErr *ConfigError
	require.True(t, errors.As(bad.Validate(), &cfgErr))
	assert.Equal(t, "thresholds.min_duration_min", cfgErr.Field)

	bad = cfg
	bad.WindowBlockMin = 30
	require.True(t, errors.As(bad.Validate(), &cfgErr))

	bad = cfg
	bad.MinTideFt = 0
	require.Error(t, bad.Validate())
}
