package imgrec

import (
	"fmt"
	"strings"

	"github.com/astrogo/fitsio"
)

// Metadata is what is known about a frame when it is first written
type Metadata struct {
	// PixelSize is in microns, Binning is the same on both axes
	PixelSize float64
	Binning   int

	// ExpTime is the exposure time in seconds
	ExpTime float64

	Object, Observer, Telescope, Instrument string

	// Temperature is the sensor temperature in Celcius
	Temperature float64

	Filter string

	// SiteLat and SiteLong are in degrees, SiteElev in meters
	SiteLat, SiteLong, SiteElev float64

	Software string

	// FocalLength and Aperture are in mm
	FocalLength, Aperture float64

	// SensorX and SensorY are the camera size in pixels
	SensorX, SensorY int

	// DateObs is the exposure start as reported by the camera
	DateObs string

	FrameID int

	// RA and Dec are the pointing in degrees
	RA, Dec float64
}

// Cards returns the first phase header for m, in order
func (m Metadata) Cards() []fitsio.Card {
	return []fitsio.Card{
		{Name: "PIXSIZE1", Value: m.PixelSize, Comment: "[um] Pixel Size X, binned"},
		{Name: "PIXSIZE2", Value: m.PixelSize, Comment: "[um] Pixel Size Y, binned"},
		{Name: "XBINNING", Value: m.Binning, Comment: "Binning factor X"},
		{Name: "YBINNING", Value: m.Binning, Comment: "Binning factor Y"},
		{Name: "EXPTIME", Value: m.ExpTime, Comment: "[s] Total Exposure Time"},
		{Name: "OBJECT", Value: m.Object, Comment: "Observed object name"},
		{Name: "OBSERVER", Value: m.Observer, Comment: "Observer name"},
		{Name: "TELESCOP", Value: m.Telescope, Comment: "Telescope name"},
		{Name: "INSTRUME", Value: m.Instrument, Comment: "Instrument used for acquisition"},
		{Name: "ROWORDER", Value: "TOP-DOWN", Comment: "Order of the rows in image array"},
		{Name: "CCD-TEMP", Value: m.Temperature, Comment: "CCD temperature (Celsius)"},
		{Name: "FRAME", Value: "Light", Comment: "Frame Type"},
		{Name: "IMAGETYP", Value: "Light", Comment: "Image Type"},
		{Name: "FILTER", Value: m.Filter, Comment: "Filter info"},
		{Name: "SITELAT", Value: m.SiteLat, Comment: "Observatory latitude"},
		{Name: "SITELONG", Value: m.SiteLong, Comment: "Observatory longitude"},
		{Name: "SWCREATE", Value: m.Software, Comment: "Software that created the file"},
		{Name: "FOCALLEN", Value: m.FocalLength, Comment: "[mm] Telescope focal length"},
		{Name: "FRAMEX", Value: 0, Comment: "Frame start x"},
		{Name: "FRAMEY", Value: 0, Comment: "Frame start y"},
		// height and width are the camera X and Y sizes, archives depend on it
		{Name: "FRAMEHGT", Value: m.SensorX, Comment: "Frame height"},
		{Name: "FRAMEWDH", Value: m.SensorY, Comment: "Frame width"},
		{Name: "DATE-OBS", Value: m.DateObs, Comment: "UTC start date of observation"},
		{Name: "RADESYSA", Value: "ICRS", Comment: "Equatorial coordinate system"},
		{Name: "FRAMEID", Value: m.FrameID, Comment: "Frame ID"},
		{Name: "EQUINOX", Value: 2000.0, Comment: "Equinox date"},
		{Name: "DATATYPE", Value: "Intensity", Comment: "Type of data"},
		{Name: "MJD-OBS", Value: 0.0, Comment: "MJD of start of observation"},
		{Name: "JD-OBS", Value: 0.0, Comment: "JD of start of observation"},
		{Name: "APTDIA", Value: m.Aperture, Comment: "[mm] Aperture diameter"},
		{Name: "SITEELEV", Value: m.SiteElev, Comment: "[m] Observatory elevation"},
		{Name: "RA", Value: m.RA, Comment: "[deg] Pointing right ascension"},
		{Name: "DEC", Value: m.Dec, Comment: "[deg] Pointing declination"},
		{Name: "AUGMENTD", Value: false, Comment: "Time and WCS fields present"},
	}
}

// structural cards are owned by the image HDU and never copied between files
func structural(name string) bool {
	switch name {
	case "SIMPLE", "BITPIX", "EXTEND", "END", "XTENSION", "PCOUNT", "GCOUNT":
		return true
	}
	return strings.HasPrefix(name, "NAXIS")
}

// Header is the non-structural part of a FITS header, in order
type Header struct {
	cards []fitsio.Card
	idx   map[string]int
}

// NewHeader returns a Header holding cards, dropping structural ones
func NewHeader(cards []fitsio.Card) *Header {
	h := &Header{idx: make(map[string]int)}
	for _, c := range cards {
		h.Set(c)
	}
	return h
}

// Cards returns the cards in order
func (h *Header) Cards() []fitsio.Card {
	out := make([]fitsio.Card, len(h.cards))
	copy(out, h.cards)
	return out
}

// Set replaces the card of the same name in place, or appends it.  An empty
// comment keeps the existing one.
func (h *Header) Set(c fitsio.Card) {
	if structural(c.Name) {
		return
	}
	if i, ok := h.idx[c.Name]; ok {
		if c.Comment == "" {
			c.Comment = h.cards[i].Comment
		}
		h.cards[i] = c
		return
	}
	h.idx[c.Name] = len(h.cards)
	h.cards = append(h.cards, c)
}

// Get returns the named card
func (h *Header) Get(name string) (fitsio.Card, bool) {
	i, ok := h.idx[name]
	if !ok {
		return fitsio.Card{}, false
	}
	return h.cards[i], true
}

// Float returns a numeric card as a float64
func (h *Header) Float(name string) (float64, error) {
	c, ok := h.Get(name)
	if !ok {
		return 0, fmt.Errorf("card %s missing", name)
	}
	switch v := c.Value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	}
	return 0, fmt.Errorf("card %s is %T, not a number", name, c.Value)
}

// Int returns a numeric card as an int, truncating floats
func (h *Header) Int(name string) (int, error) {
	c, ok := h.Get(name)
	if !ok {
		return 0, fmt.Errorf("card %s missing", name)
	}
	switch v := c.Value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	}
	f, err := h.Float(name)
	return int(f), err
}

// String returns a string card, trimmed of the padding FITS adds
func (h *Header) String(name string) (string, error) {
	c, ok := h.Get(name)
	if !ok {
		return "", fmt.Errorf("card %s missing", name)
	}
	s, ok := c.Value.(string)
	if !ok {
		return "", fmt.Errorf("card %s is %T, not a string", name, c.Value)
	}
	return strings.TrimSpace(s), nil
}

// Bool returns a logical card
func (h *Header) Bool(name string) (bool, error) {
	c, ok := h.Get(name)
	if !ok {
		return false, fmt.Errorf("card %s missing", name)
	}
	b, ok := c.Value.(bool)
	if !ok {
		return false, fmt.Errorf("card %s is %T, not a logical", name, c.Value)
	}
	return b, nil
}
