package astrometry

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// MJDOffset is the difference between a Julian Date and a Modified Julian Date
const MJDOffset = 2400000.5

// dateObsLayouts are the timestamp forms accepted for DATE-OBS.  Alpaca
// cameras report FITS style UTC without a zone.
var dateObsLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseDateObs parses a DATE-OBS value.  Values without a zone are UTC.
func ParseDateObs(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateObsLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("astrometry: unparseable DATE-OBS %q", s)
}

// FormatDateObs formats t the way DATE-OBS is written
func FormatDateObs(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000")
}

// JulianDate returns the Julian Date of t.  Whole seconds go through
// satellite.JDay, the sub-second part is added afterwards.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	return jd + float64(t.Nanosecond())/(86400*1e9)
}

// ModifiedJulianDate returns the MJD of t
func ModifiedJulianDate(t time.Time) float64 {
	return JulianDate(t) - MJDOffset
}

// LocalSiderealTime returns the local mean sidereal time in hours at the
// given east longitude in degrees.
func LocalSiderealTime(t time.Time, longitude float64) float64 {
	gmst := satellite.ThetaG_JD(JulianDate(t)) // radians
	lst := gmst + longitude*math.Pi/180
	lst = math.Mod(lst, 2*math.Pi)
	if lst < 0 {
		lst += 2 * math.Pi
	}
	return lst * 12 / math.Pi
}
