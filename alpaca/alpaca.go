/*Package alpaca implements the camera, mount and filter wheel interfaces for
devices served over the ASCOM Alpaca REST protocol.

Each device embeds a *comm.RemoteDevice; the methods here only name the
Alpaca endpoints and convert units.
*/
package alpaca

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ciboulette/astrolab/camera"
	"github.com/ciboulette/astrolab/comm"
	"github.com/ciboulette/astrolab/rig"
	"github.com/ciboulette/astrolab/util"
)

// Config describes where the devices of a rig live
type Config struct {
	// Addr is the base URL of the Alpaca server
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Camera, Telescope and FilterWheel are device numbers on the server
	Camera      int `yaml:"Camera" koanf:"Camera"`
	Telescope   int `yaml:"Telescope" koanf:"Telescope"`
	FilterWheel int `yaml:"FilterWheel" koanf:"FilterWheel"`

	// RequestsPerSecond throttles each device
	RequestsPerSecond float64 `yaml:"RequestsPerSecond" koanf:"RequestsPerSecond"`

	// TimeoutSec bounds each request
	TimeoutSec float64 `yaml:"TimeoutSec" koanf:"TimeoutSec"`

	// ReadTemperature reads CCD-TEMP from the camera.  Cameras without a
	// cooler often do not implement it; when false 0 is written.
	ReadTemperature bool `yaml:"ReadTemperature" koanf:"ReadTemperature"`
}

// Camera is an Alpaca camera.  It satisfies camera.Camera and
// camera.Thermometer.
type Camera struct {
	*comm.RemoteDevice
}

// NewCamera returns a camera on the given server
func NewCamera(addr string, number int, rps float64, timeout time.Duration) Camera {
	return Camera{comm.NewRemoteDevice(addr, "camera", number, rps, timeout)}
}

// StartExposure begins an exposure.  Durations are sent in seconds.
func (c Camera) StartExposure(d time.Duration, light bool) error {
	return c.Put("startexposure", url.Values{
		"Duration": {comm.FormatFloat(d.Seconds())},
		"Light":    {strconv.FormatBool(light)},
	})
}

// ImageReady is true once the image can be downloaded
func (c Camera) ImageReady() (bool, error) {
	return c.GetBool("imageready")
}

// LastExposureStartTime is the FITS timestamp of the last exposure start
func (c Camera) LastExposureStartTime() (string, error) {
	return c.GetString("lastexposurestarttime")
}

// BinX is the horizontal binning
func (c Camera) BinX() (int, error) {
	return c.GetInt("binx")
}

// PixelSizeX is the pixel width in microns
func (c Camera) PixelSizeX() (float64, error) {
	return c.GetFloat("pixelsizex")
}

// CameraXSize is the sensor width in unbinned pixels
func (c Camera) CameraXSize() (int, error) {
	return c.GetInt("cameraxsize")
}

// CameraYSize is the sensor height in unbinned pixels
func (c Camera) CameraYSize() (int, error) {
	return c.GetInt("cameraysize")
}

// ImageArray downloads the last image as JSON, indexed [x][y]
func (c Camera) ImageArray() ([][]int32, error) {
	var px [][]int32
	err := c.GetValue("imagearray", &px)
	return px, err
}

// CCDTemperature is the sensor temperature in Celcius
func (c Camera) CCDTemperature() (float64, error) {
	return c.GetFloat("ccdtemperature")
}

// Telescope is an Alpaca mount.  It satisfies mount.Mount and mount.Slewer.
type Telescope struct {
	*comm.RemoteDevice
}

// NewTelescope returns a telescope on the given server
func NewTelescope(addr string, number int, rps float64, timeout time.Duration) Telescope {
	return Telescope{comm.NewRemoteDevice(addr, "telescope", number, rps, timeout)}
}

// RightAscension is the current pointing in hours
func (t Telescope) RightAscension() (float64, error) {
	return t.GetFloat("rightascension")
}

// Declination is the current pointing in degrees
func (t Telescope) Declination() (float64, error) {
	return t.GetFloat("declination")
}

// SiteLatitude is the observatory latitude in degrees
func (t Telescope) SiteLatitude() (float64, error) {
	return t.GetFloat("sitelatitude")
}

// SiteLongitude is the observatory longitude in degrees east, in [0, 360).
// Alpaca reports west longitudes as negative.
func (t Telescope) SiteLongitude() (float64, error) {
	long, err := t.GetFloat("sitelongitude")
	if err != nil {
		return long, err
	}
	return EastLongitude(long), nil
}

// EastLongitude maps a longitude in [-180, 180] to [0, 360)
func EastLongitude(long float64) float64 {
	if long < 0 {
		return long + 360
	}
	return long
}

// SlewToCoordinates starts a slew to ra (hours), dec (degrees) and returns
// without waiting for it to finish
func (t Telescope) SlewToCoordinates(ra, dec float64) error {
	return t.Put("slewtocoordinatesasync", url.Values{
		"RightAscension": {comm.FormatFloat(ra)},
		"Declination":    {comm.FormatFloat(dec)},
	})
}

// FilterWheel is an Alpaca filter wheel.  It satisfies
// filterwheel.Positioner.
type FilterWheel struct {
	*comm.RemoteDevice
}

// NewFilterWheel returns a filter wheel on the given server
func NewFilterWheel(addr string, number int, rps float64, timeout time.Duration) FilterWheel {
	return FilterWheel{comm.NewRemoteDevice(addr, "filterwheel", number, rps, timeout)}
}

// Names lists the filters in slot order
func (f FilterWheel) Names() ([]string, error) {
	return f.GetStrings("names")
}

// Position is the slot in the beam, -1 while the wheel is moving
func (f FilterWheel) Position() (int, error) {
	return f.GetInt("position")
}

// SetPosition moves a slot into the beam
func (f FilterWheel) SetPosition(idx int) error {
	return f.Put("position", url.Values{"Position": {strconv.Itoa(idx)}})
}

// NewRig connects the three devices described by c and bundles them.  The
// camera is the rig's thermometer only if c.ReadTemperature is set.
func NewRig(c Config) (*rig.Rig, error) {
	timeout := util.SecsToDuration(c.TimeoutSec)
	cam := NewCamera(c.Addr, c.Camera, c.RequestsPerSecond, timeout)
	tel := NewTelescope(c.Addr, c.Telescope, c.RequestsPerSecond, timeout)
	fw := NewFilterWheel(c.Addr, c.FilterWheel, c.RequestsPerSecond, timeout)
	for _, d := range []*comm.RemoteDevice{cam.RemoteDevice, tel.RemoteDevice, fw.RemoteDevice} {
		if err := d.Open(); err != nil {
			return nil, rig.Wrap(d.DeviceType, "Connect", fmt.Errorf("%s: %w", d.Addr, err))
		}
	}
	var thermo camera.Thermometer = camera.FixedTemperature(0)
	if c.ReadTemperature {
		thermo = cam
	}
	return &rig.Rig{Camera: cam, Mount: tel, FilterWheel: fw, Thermometer: thermo}, nil
}
