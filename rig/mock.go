package rig

import (
	"errors"
	"sync"
	"time"

	"github.com/ciboulette/astrolab/astrometry"
)

// ErrNotExposed is returned by the mock camera when read before an exposure
var ErrNotExposed = errors.New("no exposure has been started")

// MockCamera is an in-memory camera.  The image is a ramp, pixel (x, y)
// holds x + y*Width so orientation can be checked downstream.
type MockCamera struct {
	sync.Mutex

	Width, Height int
	Binning       int
	PixelSize     float64

	// ReadyAfter is how many ImageReady polls return false before true.
	// Negative never becomes ready.
	ReadyAfter int

	// Temperature, if not nil, makes the camera report a sensor temperature
	Temperature *float64

	// Fail maps a method name to the error it returns
	Fail map[string]error

	// Now supplies the exposure start time; nil uses time.Now
	Now func() time.Time

	// DateObs, if not empty, is reported as the start time verbatim
	DateObs string

	started time.Time
	exposed bool
	polls   int
	exptime time.Duration
	light   bool
}

// NewMockCamera returns a small ready-after-two-polls camera
func NewMockCamera(width, height int) *MockCamera {
	return &MockCamera{Width: width, Height: height, Binning: 1, PixelSize: 5.4, ReadyAfter: 2}
}

func (c *MockCamera) fail(op string) error {
	if c.Fail == nil {
		return nil
	}
	return c.Fail[op]
}

// StartExposure begins an exposure
func (c *MockCamera) StartExposure(d time.Duration, light bool) error {
	c.Lock()
	defer c.Unlock()
	if err := c.fail("StartExposure"); err != nil {
		return err
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	c.started = now()
	c.exposed = true
	c.polls = 0
	c.exptime = d
	c.light = light
	return nil
}

// LastRequest returns the duration and light flag of the last StartExposure
func (c *MockCamera) LastRequest() (time.Duration, bool) {
	c.Lock()
	defer c.Unlock()
	return c.exptime, c.light
}

// ImageReady is true after ReadyAfter calls
func (c *MockCamera) ImageReady() (bool, error) {
	c.Lock()
	defer c.Unlock()
	if err := c.fail("ImageReady"); err != nil {
		return false, err
	}
	if !c.exposed {
		return false, ErrNotExposed
	}
	if c.ReadyAfter < 0 {
		return false, nil
	}
	ready := c.polls >= c.ReadyAfter
	c.polls++
	return ready, nil
}

// Polls is how many times ImageReady was called since the last StartExposure
func (c *MockCamera) Polls() int {
	c.Lock()
	defer c.Unlock()
	return c.polls
}

// LastExposureStartTime returns the start of the last exposure
func (c *MockCamera) LastExposureStartTime() (string, error) {
	c.Lock()
	defer c.Unlock()
	if err := c.fail("LastExposureStartTime"); err != nil {
		return "", err
	}
	if !c.exposed {
		return "", ErrNotExposed
	}
	if c.DateObs != "" {
		return c.DateObs, nil
	}
	return astrometry.FormatDateObs(c.started), nil
}

// BinX returns the binning
func (c *MockCamera) BinX() (int, error) {
	return c.Binning, c.fail("BinX")
}

// PixelSizeX returns the pixel size
func (c *MockCamera) PixelSizeX() (float64, error) {
	return c.PixelSize, c.fail("PixelSizeX")
}

// CameraXSize returns the width
func (c *MockCamera) CameraXSize() (int, error) {
	return c.Width, c.fail("CameraXSize")
}

// CameraYSize returns the height
func (c *MockCamera) CameraYSize() (int, error) {
	return c.Height, c.fail("CameraYSize")
}

// ImageArray returns the ramp image
func (c *MockCamera) ImageArray() ([][]int32, error) {
	c.Lock()
	defer c.Unlock()
	if err := c.fail("ImageArray"); err != nil {
		return nil, err
	}
	if !c.exposed {
		return nil, ErrNotExposed
	}
	out := make([][]int32, c.Width)
	for x := range out {
		col := make([]int32, c.Height)
		for y := range col {
			col[y] = int32(x + y*c.Width)
		}
		out[x] = col
	}
	return out, nil
}

// CCDTemperature reports Temperature, or 0 when it is nil
func (c *MockCamera) CCDTemperature() (float64, error) {
	if err := c.fail("CCDTemperature"); err != nil {
		return 0, err
	}
	if c.Temperature == nil {
		return 0, nil
	}
	return *c.Temperature, nil
}

// MockMount is an in-memory mount which slews instantly
type MockMount struct {
	sync.Mutex

	RA, Dec             float64
	Latitude, Longitude float64

	// Fail maps a method name to the error it returns
	Fail map[string]error
}

func (m *MockMount) fail(op string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail[op]
}

// RightAscension returns RA in hours
func (m *MockMount) RightAscension() (float64, error) {
	m.Lock()
	defer m.Unlock()
	return m.RA, m.fail("RightAscension")
}

// Declination returns Dec in degrees
func (m *MockMount) Declination() (float64, error) {
	m.Lock()
	defer m.Unlock()
	return m.Dec, m.fail("Declination")
}

// SiteLatitude returns the latitude
func (m *MockMount) SiteLatitude() (float64, error) {
	return m.Latitude, m.fail("SiteLatitude")
}

// SiteLongitude returns the longitude
func (m *MockMount) SiteLongitude() (float64, error) {
	return m.Longitude, m.fail("SiteLongitude")
}

// SlewToCoordinates moves the mount
func (m *MockMount) SlewToCoordinates(ra, dec float64) error {
	m.Lock()
	defer m.Unlock()
	if err := m.fail("SlewToCoordinates"); err != nil {
		return err
	}
	m.RA, m.Dec = ra, dec
	return nil
}

// MockFilterWheel is an in-memory filter wheel
type MockFilterWheel struct {
	sync.Mutex

	Filters []string
	Slot    int

	// Fail maps a method name to the error it returns
	Fail map[string]error
}

func (f *MockFilterWheel) fail(op string) error {
	if f.Fail == nil {
		return nil
	}
	return f.Fail[op]
}

// Names returns the filter names
func (f *MockFilterWheel) Names() ([]string, error) {
	f.Lock()
	defer f.Unlock()
	out := make([]string, len(f.Filters))
	copy(out, f.Filters)
	return out, f.fail("Names")
}

// Position returns the current slot
func (f *MockFilterWheel) Position() (int, error) {
	f.Lock()
	defer f.Unlock()
	return f.Slot, f.fail("Position")
}

// SetPosition moves the wheel
func (f *MockFilterWheel) SetPosition(idx int) error {
	f.Lock()
	defer f.Unlock()
	if err := f.fail("SetPosition"); err != nil {
		return err
	}
	f.Slot = idx
	return nil
}

// NewMock returns a rig of mock devices: a width x height camera ready
// after two polls, a mount at RA 5h Dec 30, and an LRGB wheel on L.
func NewMock(width, height int) (*Rig, *MockCamera, *MockMount, *MockFilterWheel) {
	c := NewMockCamera(width, height)
	m := &MockMount{RA: 5, Dec: 30, Latitude: 49.5961, Longitude: 359.65}
	f := &MockFilterWheel{Filters: []string{"L", "R", "G", "B"}}
	return &Rig{Camera: c, Mount: m, FilterWheel: f}, c, m, f
}
