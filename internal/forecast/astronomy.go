package forecast

import (
	"time"
)

// SunsetBonusLead is how long before sunset a window starts earning the
// sunset bonus.
const SunsetBonusLead = 45 * time.Minute

// Interval is a closed time range.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Aligner answers daylight and sunset questions for one day.
type Aligner struct {
	astro  Astronomy
	buffer time.Duration
}

// NewAligner builds an Aligner for a day's astronomy with the configured
// daylight buffer.
func NewAligner(astro Astronomy, cfg RunConfig) *Aligner {
	return &Aligner{astro: astro, buffer: cfg.DaylightBuffer()}
}

// Daylight returns [sunrise - buffer, sunset + buffer].
func (a *Aligner) Daylight() (Interval, bool) {
	if a.astro.Sunrise == nil || a.astro.Sunset == nil {
		return Interval{}, false
	}
	return Interval{
		Start: a.astro.Sunrise.Add(-a.buffer),
		End:   a.astro.Sunset.Add(a.buffer),
	}, true
}

// Moonlight returns [moonrise, moonset] when the moon rises and then sets on
// the same day.
func (a *Aligner) Moonlight() (Interval, bool) {
	if a.astro.Moonrise == nil || a.astro.Moonset == nil {
		return Interval{}, false
	}
	if !a.astro.Moonrise.Before(*a.astro.Moonset) {
		return Interval{}, false
	}
	return Interval{Start: *a.astro.Moonrise, End: *a.astro.Moonset}, true
}

// OverlapsDaylight reports whether w shares any time with the buffered
// daylight interval. Unknown sun times never exclude a window.
func (a *Aligner) OverlapsDaylight(w Window) bool {
	day, ok := a.Daylight()
	if !ok {
		return true
	}
	return w.Start.Before(day.End) && w.End.After(day.Start)
}

// SunsetBonusEligible reports whether w touches [sunset-45m, sunset].
func (a *Aligner) SunsetBonusEligible(w Window) bool {
	if a.astro.Sunset == nil {
		return false
	}
	sunset := *a.astro.Sunset
	lead := sunset.Add(-SunsetBonusLead)
	return !w.End.Before(lead) && !w.Start.After(sunset)
}
