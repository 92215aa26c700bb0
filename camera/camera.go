/*Package camera describes the interfaces a camera must satisfy to be driven
by the exposure pipeline.

The Camera type contains the basics needed to take and read back one frame,
while Thermometer is an optional extension for cameras which can report the
temperature of their sensor.

*/
package camera

import "time"

// Camera describes an imaging camera as seen over a device-control protocol.
type Camera interface {
	// StartExposure begins an exposure of the given duration.  light is
	// false for dark frames, in which case the shutter stays closed.
	StartExposure(duration time.Duration, light bool) error

	// ImageReady is true once the exposure has completed and the image can
	// be read out
	ImageReady() (bool, error)

	// LastExposureStartTime is the UTC start of the last exposure, formatted
	// as a FITS timestamp (CCYY-MM-DDThh:mm:ss[.sss])
	LastExposureStartTime() (string, error)

	// BinX is the horizontal binning factor
	BinX() (int, error)

	// PixelSizeX is the width of a physical pixel in microns
	PixelSizeX() (float64, error)

	// CameraXSize is the width of the sensor in unbinned pixels
	CameraXSize() (int, error)

	// CameraYSize is the height of the sensor in unbinned pixels
	CameraYSize() (int, error)

	// ImageArray is the last image, indexed [x][y]
	ImageArray() ([][]int32, error)
}

// Thermometer describes a camera (or other source) which can report the
// current sensor temperature in Celcius.
type Thermometer interface {
	// CCDTemperature gets the current focal plane temperature in Celcius
	CCDTemperature() (float64, error)
}

// FixedTemperature is a Thermometer that always reports the same value.
// The zero value reports 0 C, for rigs with no temperature readback.
type FixedTemperature float64

// CCDTemperature returns the fixed value
func (f FixedTemperature) CCDTemperature() (float64, error) {
	return float64(f), nil
}
