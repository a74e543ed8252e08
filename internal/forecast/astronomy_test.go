package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func tp(t time.Time) *time.Time { return &t }

func sampleAstronomy() Astronomy {
	return Astronomy{
		Sunrise:  tp(at(6, 30)),
		Sunset:   tp(at(19, 45)),
		Moonrise: tp(at(14, 0)),
		Moonset:  tp(at(2, 0)),
	}
}

func TestAlignerDaylightBuffer(t *testing.T) {
	a := NewAligner(sampleAstronomy(), testConfig())

	day, ok := a.Daylight()
	assert.True(t, ok)
	assert.True(t, day.Start.Equal(at(6, 0)))
	assert.True(t, day.End.Equal(at(20, 15)))

	assert.True(t, a.OverlapsDaylight(Window{Start: at(5, 0), End: at(6, 15)}))
	assert.False(t, a.OverlapsDaylight(Window{Start: at(4, 0), End: at(6, 0)}))
	assert.False(t, a.OverlapsDaylight(Window{Start: at(20, 15), End: at(22, 0)}))
}

func TestAlignerUnknownSunKeepsWindows(t *testing.T) {
	a := NewAligner(Astronomy{}, testConfig())
	_, ok := a.Daylight()
	assert.False(t, ok)
	assert.True(t, a.OverlapsDaylight(Window{Start: at(1, 0), End: at(2, 0)}))
	assert.False(t, a.SunsetBonusEligible(Window{Start: at(18, 0), End: at(20, 0)}))
}

func TestAlignerSunsetBonus(t *testing.T) {
	a := NewAligner(sampleAstronomy(), testConfig())

	cases := []struct {
		name string
		w    Window
		want bool
	}{
		{"ends at lead edge", Window{Start: at(17, 0), End: at(19, 0)}, true},
		{"ends before lead", Window{Start: at(17, 0), End: at(18, 45)}, false},
		{"spans sunset", Window{Start: at(19, 30), End: at(20, 30)}, true},
		{"starts at sunset", Window{Start: at(19, 45), End: at(21, 0)}, true},
		{"after sunset", Window{Start: at(20, 0), End: at(21, 0)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, a.SunsetBonusEligible(tc.w))
		})
	}
}

func TestAlignerMoonlight(t *testing.T) {
	a := NewAligner(sampleAstronomy(), testConfig())
	_, ok := a.Moonlight()
	assert.False(t, ok, "moonset before moonrise has no same-day interval")

	astro := sampleAstronomy()
	astro.Moonset = tp(at(23, 0))
	moon, ok := NewAligner(astro, testConfig()).Moonlight()
	assert.True(t, ok)
	assert.True(t, moon.Start.Equal(at(14, 0)))
}
