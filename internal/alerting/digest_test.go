package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"paddlecast/internal/forecast"
)

func TestSelectWindows(t *testing.T) {
	base := time.Date(2025, 8, 7, 0, 0, 0, 0, time.UTC)
	win := func(day, hour int, score float64) forecast.Window {
		start := base.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
		return forecast.Window{Start: start, End: start.Add(2 * time.Hour), Score: score}
	}
	days := []forecast.Day{
		{Windows: []forecast.Window{win(0, 6, 5), win(0, 14, 4)}},
		{Windows: []forecast.Window{win(1, 8, 3.5), win(1, 16, 4.5)}},
		{Windows: []forecast.Window{win(2, 9, 4)}},
	}
	now := base.Add(10 * time.Hour)

	got := SelectWindows(days, now, 4, 0)
	assert.Equal(t, []forecast.Window{win(1, 16, 4.5), win(0, 14, 4), win(2, 9, 4)}, got)

	limited := SelectWindows(days, now, 4, 2)
	assert.Len(t, limited, 2)

	assert.Empty(t, SelectWindows(days, now, 5.5, 3))
}

func TestDigestFingerprint(t *testing.T) {
	d := sampleDigest()
	same := sampleDigest()
	assert.Equal(t, d.Fingerprint(), same.Fingerprint())

	same.Windows[0].Score = 4
	assert.NotEqual(t, d.Fingerprint(), same.Fingerprint())
	assert.True(t, Digest{}.Empty())
}
