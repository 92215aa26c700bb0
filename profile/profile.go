/*Package profile holds the mutable description of the observing rig: the
optics and sensor, the current pointing, and the site.

Pointing and site values are range checked on the way in.  Out of range values
are dropped and the previous value kept; TrySet reports what happened, and a
Session in strict mode turns a rejection into ErrValidationRejected.
*/
package profile

import (
	"errors"
	"sync"
)

// ErrValidationRejected is returned in strict mode when a value is out of range
var ErrValidationRejected = errors.New("profile: value out of range, previous value kept")

// ErrUnknownPreset is returned when applying a camera or lens that is not known
var ErrUnknownPreset = errors.New("profile: unknown preset")

// Instrument is the optical and sensor configuration of the rig.
type Instrument struct {
	// FocalLength is the focal length in mm
	FocalLength float64 `json:"focalLength" yaml:"FocalLength" koanf:"FocalLength"`

	// Aperture is the aperture diameter in mm
	Aperture float64 `json:"aperture" yaml:"Aperture" koanf:"Aperture"`

	// PixelSizeX and PixelSizeY are the pixel pitch in microns
	PixelSizeX float64 `json:"pixelSizeX" yaml:"PixelSizeX" koanf:"PixelSizeX"`
	PixelSizeY float64 `json:"pixelSizeY" yaml:"PixelSizeY" koanf:"PixelSizeY"`

	// Binning is the square binning factor
	Binning int `json:"binning" yaml:"Binning" koanf:"Binning"`

	// Width and Height are the sensor size in pixels
	Width  int `json:"width" yaml:"Width" koanf:"Width"`
	Height int `json:"height" yaml:"Height" koanf:"Height"`

	Instrument string `json:"instrument" yaml:"Instrument" koanf:"Instrument"`
	Telescope  string `json:"telescope" yaml:"Telescope" koanf:"Telescope"`
	Observer   string `json:"observer" yaml:"Observer" koanf:"Observer"`
	Object     string `json:"object" yaml:"Object" koanf:"Object"`
	Filter     string `json:"filter" yaml:"Filter" koanf:"Filter"`

	// Software is written to SWCREATE
	Software string `json:"software" yaml:"Software" koanf:"Software"`

	// Dataset is the directory frames are written to
	Dataset string `json:"dataset" yaml:"Dataset" koanf:"Dataset"`

	// Archives is the directory scanned for archived sectors
	Archives string `json:"archives" yaml:"Archives" koanf:"Archives"`
}

// Pointing is where the telescope is aimed.  RA is held in hours.
type Pointing struct {
	RA  float64 `json:"ra" yaml:"RA" koanf:"RA"`
	Dec float64 `json:"dec" yaml:"Dec" koanf:"Dec"`
}

// RADegrees is the right ascension in degrees
func (p Pointing) RADegrees() float64 {
	return p.RA * 15
}

// Site is the location of the observatory.
type Site struct {
	Latitude  float64 `json:"latitude" yaml:"Latitude" koanf:"Latitude"`
	Longitude float64 `json:"longitude" yaml:"Longitude" koanf:"Longitude"`
	Elevation float64 `json:"elevation" yaml:"Elevation" koanf:"Elevation"`
}

// Profile is the full rig description
type Profile struct {
	Instrument Instrument `json:"instrument" yaml:"Instrument" koanf:"Instrument"`
	Pointing   Pointing   `json:"pointing" yaml:"Pointing" koanf:"Pointing"`
	Site       Site       `json:"site" yaml:"Site" koanf:"Site"`
}

// Default returns the profile the rig starts with
func Default() Profile {
	return Profile{
		Instrument: Instrument{
			FocalLength: 85,
			Aperture:    60,
			PixelSizeX:  5.4,
			PixelSizeY:  5.4,
			Binning:     1,
			Width:       3326,
			Height:      2504,
			Instrument:  "Atik 383L+",
			Telescope:   "CIBOULETTE-A",
			Observer:    "CAM1",
			Object:      "INIT",
			Filter:      "L",
			Software:    "astrolab",
			Dataset:     "dataset",
			Archives:    "dataset/archives",
		},
		Pointing: Pointing{RA: 0, Dec: 90},
		Site:     Site{Latitude: 49.5961, Longitude: 359.65, Elevation: 100},
	}
}

// PointingUpdate carries optional new pointing values; nil fields are left alone
type PointingUpdate struct {
	RA  *float64 `json:"ra,omitempty"`
	Dec *float64 `json:"dec,omitempty"`
}

// SiteUpdate carries optional new site values; nil fields are left alone
type SiteUpdate struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Elevation *float64 `json:"elevation,omitempty"`
}

// Result records which fields of an update were rejected
type Result struct {
	// Rejected lists the names of out of range fields
	Rejected []string `json:"rejected,omitempty"`
}

// OK is true when nothing was rejected
func (r Result) OK() bool {
	return len(r.Rejected) == 0
}

func (r *Result) reject(field string) {
	r.Rejected = append(r.Rejected, field)
}

// ValidRA is true for a right ascension in [0, 24) hours
func ValidRA(ra float64) bool { return ra >= 0 && ra < 24 }

// ValidDec is true for a declination in [-90, 90] degrees
func ValidDec(dec float64) bool { return dec >= -90 && dec <= 90 }

// ValidLatitude is true for a latitude in [-90, 90] degrees
func ValidLatitude(lat float64) bool { return lat >= -90 && lat <= 90 }

// ValidLongitude is true for a longitude in [0, 360] degrees
func ValidLongitude(long float64) bool { return long >= 0 && long <= 360 }

// ValidElevation is true for an elevation in [0, 8000] m
func ValidElevation(elev float64) bool { return elev >= 0 && elev <= 8000 }

// TrySet applies the in-range fields of u and reports the rejected ones.
func (p *Pointing) TrySet(u PointingUpdate) Result {
	res := Result{}
	if u.RA != nil {
		if ValidRA(*u.RA) {
			p.RA = *u.RA
		} else {
			res.reject("RA")
		}
	}
	if u.Dec != nil {
		if ValidDec(*u.Dec) {
			p.Dec = *u.Dec
		} else {
			res.reject("DEC")
		}
	}
	return res
}

// TrySet applies the in-range fields of u and reports the rejected ones.
func (s *Site) TrySet(u SiteUpdate) Result {
	res := Result{}
	if u.Latitude != nil {
		if ValidLatitude(*u.Latitude) {
			s.Latitude = *u.Latitude
		} else {
			res.reject("LAT")
		}
	}
	if u.Longitude != nil {
		if ValidLongitude(*u.Longitude) {
			s.Longitude = *u.Longitude
		} else {
			res.reject("LONG")
		}
	}
	if u.Elevation != nil {
		if ValidElevation(*u.Elevation) {
			s.Elevation = *u.Elevation
		} else {
			res.reject("ELEV")
		}
	}
	return res
}

// Session is the profile held for the lifetime of the process.  It is safe
// for concurrent use.
type Session struct {
	mu sync.RWMutex
	p  Profile

	// Strict makes rejected setter values an error instead of a silent no-op
	Strict bool
}

// NewSession returns a session holding p
func NewSession(p Profile) *Session {
	return &Session{p: p}
}

// Snapshot returns a copy of the current profile
func (s *Session) Snapshot() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p
}

// Update calls fcn with the profile under the write lock
func (s *Session) Update(fcn func(p *Profile)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fcn(&s.p)
}

// SetPointing applies u.  Out of range values are dropped; in strict mode
// an error is also returned.  In-range fields of u are applied either way.
func (s *Session) SetPointing(u PointingUpdate) (Result, error) {
	s.mu.Lock()
	res := s.p.Pointing.TrySet(u)
	s.mu.Unlock()
	return res, s.check(res)
}

// SetSite applies u under the same rules as SetPointing
func (s *Session) SetSite(u SiteUpdate) (Result, error) {
	s.mu.Lock()
	res := s.p.Site.TrySet(u)
	s.mu.Unlock()
	return res, s.check(res)
}

// SetObject sets the name of the observed object
func (s *Session) SetObject(name string) {
	s.Update(func(p *Profile) { p.Instrument.Object = name })
}

// SetFilter sets the name of the filter in use
func (s *Session) SetFilter(name string) {
	s.Update(func(p *Profile) { p.Instrument.Filter = name })
}

func (s *Session) check(res Result) error {
	if s.Strict && !res.OK() {
		return ErrValidationRejected
	}
	return nil
}

// Table returns a flat listing of the profile, keyed the way the values are
// reported to users.
func (s *Session) Table() map[string]interface{} {
	p := s.Snapshot()
	i := p.Instrument
	return map[string]interface{}{
		"FOCAL":     i.FocalLength,
		"DIAM":      i.Aperture,
		"SITE_LAT":  p.Site.Latitude,
		"SITE_LONG": p.Site.Longitude,
		"SITE_ELEV": p.Site.Elevation,
		"INSTRUME":  i.Instrument,
		"NAXIS1":    i.Width,
		"NAXIS2":    i.Height,
		"BINXY":     i.Binning,
		"PIXELXY":   i.PixelSizeX,
		"FILTER":    i.Filter,
		"NAME":      i.Telescope,
		"OBSERVER":  i.Observer,
		"DATASET":   i.Dataset,
		"ARCHIVES":  i.Archives,
		"RA":        p.Pointing.RA,
		"DEC":       p.Pointing.Dec,
		"OBJECT":    i.Object,
	}
}
