/*Package rig reads back the state of a camera, mount and filter wheel and
normalizes it into plain values.

The Rig holds the three capabilities.  Every device call made through it is
checked; a failed call or a value that makes no physical sense is returned as
a *DeviceError, which matches ErrDeviceCommunication under errors.Is.  There
is no retry or timeout logic here, callers own that.
*/
package rig

import (
	"errors"
	"fmt"

	"github.com/ciboulette/astrolab/astrometry"
	"github.com/ciboulette/astrolab/camera"
	"github.com/ciboulette/astrolab/filterwheel"
	"github.com/ciboulette/astrolab/mount"
	"github.com/ciboulette/astrolab/profile"
	"github.com/ciboulette/astrolab/util"
)

// ErrDeviceCommunication is matched by every error produced by a device call
var ErrDeviceCommunication = errors.New("device communication error")

// errMalformed marks a call that succeeded but returned nonsense
var errMalformed = errors.New("malformed value")

// DeviceError records which device call failed
type DeviceError struct {
	// Device is "camera", "mount" or "filterwheel"
	Device string

	// Op is the capability that was called, e.g. ImageReady
	Op string

	// Err is the underlying error
	Err error
}

// Error satisfies the error interface
func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Device, e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Is makes every DeviceError match ErrDeviceCommunication
func (e *DeviceError) Is(target error) bool {
	return target == ErrDeviceCommunication
}

// Wrap wraps err as a DeviceError, passing nil through
func Wrap(device, op string, err error) error {
	if err == nil {
		return nil
	}
	return &DeviceError{Device: device, Op: op, Err: err}
}

func malformed(device, op string, format string, args ...interface{}) error {
	return &DeviceError{Device: device, Op: op, Err: fmt.Errorf("%w: "+format, append([]interface{}{errMalformed}, args...)...)}
}

// Rig bundles the devices of one telescope
type Rig struct {
	Camera      camera.Camera
	Mount       mount.Mount
	FilterWheel filterwheel.FilterWheel

	// Thermometer supplies CCD-TEMP.  If nil, the camera is used when it
	// implements camera.Thermometer, otherwise 0 is reported.
	Thermometer camera.Thermometer
}

// CameraState is the readback of the camera after an exposure
type CameraState struct {
	// DateObs is the exposure start as reported by the camera
	DateObs string

	Binning   int
	PixelSize float64

	// Width and Height are the sensor size in pixels
	Width, Height int

	// Pixels is the image, indexed [x][y]
	Pixels [][]int32

	// Temperature is the sensor temperature in Celcius
	Temperature float64

	// TemperatureErr is the error of a failed temperature read, in which
	// case Temperature is 0.  The rest of the readback is still valid.
	TemperatureErr error
}

// MountState is the readback of the mount
type MountState struct {
	Pointing  profile.Pointing
	Latitude  float64
	Longitude float64
}

// Readback is everything pulled from the rig for one frame
type Readback struct {
	Camera CameraState
	Mount  MountState
	Filter string
}

// StartExposure starts a light or dark exposure
func (r *Rig) StartExposure(exptime float64, light bool) error {
	if exptime <= 0 {
		return malformed("camera", "StartExposure", "exposure time %v s must be > 0", exptime)
	}
	d := util.SecsToDuration(exptime)
	return Wrap("camera", "StartExposure", r.Camera.StartExposure(d, light))
}

// ImageReady polls the camera once
func (r *Rig) ImageReady() (bool, error) {
	ok, err := r.Camera.ImageReady()
	return ok, Wrap("camera", "ImageReady", err)
}

// ReadCamera reads the geometry, timestamp and pixels of the last exposure
func (r *Rig) ReadCamera() (CameraState, error) {
	var (
		s   CameraState
		err error
	)
	c := r.Camera
	if s.DateObs, err = c.LastExposureStartTime(); err != nil {
		return s, Wrap("camera", "LastExposureStartTime", err)
	}
	if _, err = astrometry.ParseDateObs(s.DateObs); err != nil {
		return s, malformed("camera", "LastExposureStartTime", "%v", err)
	}
	if s.Binning, err = c.BinX(); err != nil {
		return s, Wrap("camera", "BinX", err)
	}
	if s.Binning < 1 {
		return s, malformed("camera", "BinX", "binning %d", s.Binning)
	}
	if s.PixelSize, err = c.PixelSizeX(); err != nil {
		return s, Wrap("camera", "PixelSizeX", err)
	}
	if s.PixelSize <= 0 {
		return s, malformed("camera", "PixelSizeX", "pixel size %v", s.PixelSize)
	}
	if s.Width, err = c.CameraXSize(); err != nil {
		return s, Wrap("camera", "CameraXSize", err)
	}
	if s.Height, err = c.CameraYSize(); err != nil {
		return s, Wrap("camera", "CameraYSize", err)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return s, malformed("camera", "CameraXSize", "sensor size %dx%d", s.Width, s.Height)
	}
	if s.Pixels, err = c.ImageArray(); err != nil {
		return s, Wrap("camera", "ImageArray", err)
	}
	if err = checkShape(s.Pixels, s.Width, s.Height); err != nil {
		return s, &DeviceError{Device: "camera", Op: "ImageArray", Err: err}
	}
	if s.Temperature, err = r.Temperature(); err != nil {
		s.Temperature, s.TemperatureErr = 0, err
	}
	return s, nil
}

// Temperature reads the sensor temperature from the configured source
func (r *Rig) Temperature() (float64, error) {
	t, err := r.thermometer().CCDTemperature()
	return t, Wrap("camera", "CCDTemperature", err)
}

// checkShape verifies the image is a non-ragged [x][y] array no larger than
// the sensor.  Binned or subframed readouts are smaller.
func checkShape(px [][]int32, w, h int) error {
	if len(px) == 0 || len(px[0]) == 0 {
		return fmt.Errorf("%w: empty image", errMalformed)
	}
	nx, ny := len(px), len(px[0])
	for i := range px {
		if len(px[i]) != ny {
			return fmt.Errorf("%w: ragged image, column %d has %d rows, expected %d", errMalformed, i, len(px[i]), ny)
		}
	}
	if nx > w || ny > h {
		return fmt.Errorf("%w: image %dx%d larger than sensor %dx%d", errMalformed, nx, ny, w, h)
	}
	return nil
}

func (r *Rig) thermometer() camera.Thermometer {
	if r.Thermometer != nil {
		return r.Thermometer
	}
	if t, ok := r.Camera.(camera.Thermometer); ok {
		return t
	}
	return camera.FixedTemperature(0)
}

// ReadMount reads the pointing and site of the mount
func (r *Rig) ReadMount() (MountState, error) {
	var (
		s   MountState
		err error
	)
	m := r.Mount
	if s.Pointing.RA, err = m.RightAscension(); err != nil {
		return s, Wrap("mount", "RightAscension", err)
	}
	if !profile.ValidRA(s.Pointing.RA) {
		return s, malformed("mount", "RightAscension", "RA %v h", s.Pointing.RA)
	}
	if s.Pointing.Dec, err = m.Declination(); err != nil {
		return s, Wrap("mount", "Declination", err)
	}
	if !profile.ValidDec(s.Pointing.Dec) {
		return s, malformed("mount", "Declination", "Dec %v deg", s.Pointing.Dec)
	}
	if s.Latitude, err = m.SiteLatitude(); err != nil {
		return s, Wrap("mount", "SiteLatitude", err)
	}
	if s.Longitude, err = m.SiteLongitude(); err != nil {
		return s, Wrap("mount", "SiteLongitude", err)
	}
	return s, nil
}

// ReadFilter looks up the name of the filter in the beam
func (r *Rig) ReadFilter() (string, error) {
	names, err := r.FilterWheel.Names()
	if err != nil {
		return "", Wrap("filterwheel", "Names", err)
	}
	pos, err := r.FilterWheel.Position()
	if err != nil {
		return "", Wrap("filterwheel", "Position", err)
	}
	if pos < 0 || pos >= len(names) {
		return "", malformed("filterwheel", "Position", "slot %d not in %v", pos, names)
	}
	return names[pos], nil
}

// Collect reads back the camera, mount and filter wheel, in that order
func (r *Rig) Collect() (Readback, error) {
	var (
		rb  Readback
		err error
	)
	if rb.Camera, err = r.ReadCamera(); err != nil {
		return rb, err
	}
	if rb.Mount, err = r.ReadMount(); err != nil {
		return rb, err
	}
	rb.Filter, err = r.ReadFilter()
	return rb, err
}

// SelectFilter moves the named filter into the beam, if the wheel can move
func (r *Rig) SelectFilter(name string) (int, error) {
	p, ok := r.FilterWheel.(filterwheel.Positioner)
	if !ok {
		return -1, &DeviceError{Device: "filterwheel", Op: "SetPosition", Err: errors.New("filter wheel cannot be moved")}
	}
	idx, err := filterwheel.Select(p, name)
	var unknown filterwheel.ErrUnknownFilter
	if errors.As(err, &unknown) {
		return idx, err
	}
	return idx, Wrap("filterwheel", "SetPosition", err)
}

// Slew commands the mount to a pointing, if it can move
func (r *Rig) Slew(p profile.Pointing) error {
	s, ok := r.Mount.(mount.Slewer)
	if !ok {
		return &DeviceError{Device: "mount", Op: "SlewToCoordinates", Err: errors.New("mount cannot slew")}
	}
	return Wrap("mount", "SlewToCoordinates", s.SlewToCoordinates(p.RA, p.Dec))
}
