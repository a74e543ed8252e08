package fetcher

import (
	"context"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"

	"paddlecast/internal/forecast"
)

const (
	localSkySource = "local"
	j2000          = 2451545.0
	// Apparent sunrise: refraction plus the solar semi-diameter.
	sunriseAltitude = -0.833
	obliquity       = 23.4397
)

// LocalSky computes sun events and the moon phase without a network call.
// Moonrise and moonset are left unset.
type LocalSky struct {
	lat float64
	lon float64
	loc *time.Location
}

// NewLocalSky returns an offline astronomy source for lat, lon (east
// positive).
func NewLocalSky(lat, lon float64, loc *time.Location) *LocalSky {
	if loc == nil {
		loc = time.UTC
	}
	return &LocalSky{lat: lat, lon: lon, loc: loc}
}

// Name implements AstronomySource.
func (l *LocalSky) Name() string { return localSkySource }

// FetchDay implements AstronomySource. It never fails; at polar latitudes
// on days without a sunrise the sun fields stay nil.
func (l *LocalSky) FetchDay(_ context.Context, day time.Time) (forecast.Astronomy, error) {
	noon := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, l.loc)
	astro := forecast.Astronomy{Source: localSkySource}

	if rise, set, ok := SunEvents(noon, l.lat, l.lon); ok {
		rise, set = rise.In(l.loc), set.In(l.loc)
		astro.Sunrise, astro.Sunset = &rise, &set
	}
	phase := MoonPhase(noon)
	astro.MoonPhase = &phase
	return astro, nil
}

// SunEvents solves the sunrise equation for the solar day containing t.
// ok is false when the sun does not cross the horizon that day.
func SunEvents(t time.Time, lat, lon float64) (rise, set time.Time, ok bool) {
	jd := julian.TimeToJD(t.UTC())
	n := math.Round(jd - j2000 + 0.0008)
	meanNoon := n - lon/360

	m := normalizeDeg(357.5291 + 0.98560028*meanNoon)
	mr := rad(m)
	center := 1.9148*math.Sin(mr) + 0.02*math.Sin(2*mr) + 0.0003*math.Sin(3*mr)
	lambda := normalizeDeg(m + center + 180 + 102.9372)
	transit := j2000 + meanNoon + 0.0053*math.Sin(mr) - 0.0069*math.Sin(2*rad(lambda))

	sinDecl := math.Sin(rad(lambda)) * math.Sin(rad(obliquity))
	cosDecl := math.Cos(math.Asin(sinDecl))
	cosHour := (math.Sin(rad(sunriseAltitude)) - math.Sin(rad(lat))*sinDecl) / (math.Cos(rad(lat)) * cosDecl)
	if cosHour < -1 || cosHour > 1 {
		return time.Time{}, time.Time{}, false
	}
	half := deg(math.Acos(cosHour)) / 360

	return julianToTime(transit - half), julianToTime(transit + half), true
}

// MoonPhase returns the lunar phase fraction at t: 0 new, 0.5 full,
// computed from the Sun-Moon ecliptic elongation.
func MoonPhase(t time.Time) float64 {
	T := (julian.TimeToJD(t.UTC()) - j2000) / 36525

	sunMean := 280.46646 + 36000.76983*T
	sunAnomaly := rad(normalizeDeg(357.52911 + 35999.05029*T))
	sunLon := sunMean + 1.914602*math.Sin(sunAnomaly) + 0.019993*math.Sin(2*sunAnomaly)

	moonMean := 218.3164477 + 481267.88123421*T
	elong := rad(normalizeDeg(297.8501921 + 445267.1114034*T))
	moonAnomaly := rad(normalizeDeg(134.9633964 + 477198.8675055*T))
	moonLon := moonMean +
		6.289*math.Sin(moonAnomaly) +
		1.274*math.Sin(2*elong-moonAnomaly) +
		0.658*math.Sin(2*elong) +
		0.214*math.Sin(2*moonAnomaly) -
		0.186*math.Sin(sunAnomaly)

	return normalizeDeg(moonLon-sunLon) / 360
}

func julianToTime(jd float64) time.Time {
	return julian.JDToTime(jd).Truncate(time.Second)
}

func normalizeDeg(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }

var _ AstronomySource = (*LocalSky)(nil)
