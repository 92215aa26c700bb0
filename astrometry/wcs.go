/*Package astrometry computes the tangent-plane World Coordinate System of a
frame and the time quantities written alongside it.

Everything in this package is pure: no I/O, no state.  The pixel scale is
computed with a legacy truncation (see LegacyPixelScaleDegrees) that is kept on
purpose so that newly written headers agree with the archive.
*/
package astrometry

import (
	"errors"
	"fmt"
)

const (
	// ArcsecPerRadianApprox is the rounded plate-scale constant used by the
	// archive headers, 206 instead of 206.265.
	ArcsecPerRadianApprox = 206

	// ArcsecPerDegree converts arcseconds to degrees
	ArcsecPerDegree = 3600

	// CTypeRA is the projection type of the first axis
	CTypeRA = "RA---TAN"

	// CTypeDec is the projection type of the second axis
	CTypeDec = "DEC--TAN"

	// HoursToDegrees converts right ascension in hours to degrees
	HoursToDegrees = 15
)

var (
	// ErrBadGeometry is returned when the optical or sensor parameters cannot
	// produce a projection
	ErrBadGeometry = errors.New("astrometry: invalid geometry")
)

// WCS holds the parameters of a two axis TAN projection.
type WCS struct {
	// CRPix is the reference pixel, X then Y
	CRPix [2]float64 `json:"crpix"`

	// CDelt is the increment per pixel in degrees; CDelt[0] is negative
	CDelt [2]float64 `json:"cdelt"`

	// CRVal is the sky position of the reference pixel, RA and Dec in degrees
	CRVal [2]float64 `json:"crval"`

	// CType is the projection type of each axis
	CType [2]string `json:"ctype"`
}

// Geometry is the optical and sensor description needed for a projection.
type Geometry struct {
	// Width and Height are the frame size in pixels
	Width, Height int

	// Binning is the (square) binning factor
	Binning int

	// PixelSize is the physical pixel size in microns
	PixelSize float64

	// FocalLength is the focal length in millimeters
	FocalLength float64
}

// Validate checks the preconditions of ComputeWCS
func (g Geometry) Validate() error {
	switch {
	case g.FocalLength <= 0:
		return fmt.Errorf("%w: focal length %v mm must be > 0", ErrBadGeometry, g.FocalLength)
	case g.PixelSize <= 0:
		return fmt.Errorf("%w: pixel size %v um must be > 0", ErrBadGeometry, g.PixelSize)
	case g.Binning < 1:
		return fmt.Errorf("%w: binning %d must be >= 1", ErrBadGeometry, g.Binning)
	case g.Width <= 0 || g.Height <= 0:
		return fmt.Errorf("%w: frame size %dx%d must be positive", ErrBadGeometry, g.Width, g.Height)
	}
	return nil
}

// LegacyPixelScaleDegrees returns the pixel scale in degrees per pixel.
//
// The pixel size and binning are truncated to integers before the product is
// formed, so a 5.4 um pixel is treated as 5 um.  Archived headers were
// written this way; changing it would shift every CDELT in the archive.
func LegacyPixelScaleDegrees(pixelSize float64, binning int, focalLength float64) float64 {
	num := ArcsecPerRadianApprox * int(pixelSize) * binning
	return (float64(num) / focalLength) / ArcsecPerDegree
}

// ReferencePixel returns the reference pixel of a frame, the integer center.
func ReferencePixel(width, height int) [2]float64 {
	return [2]float64{float64(width / 2), float64(height / 2)}
}

// ComputeWCS computes the projection of a frame centered on raHours, decDeg.
func ComputeWCS(raHours, decDeg float64, g Geometry) (WCS, error) {
	return ComputeWCSDegrees(raHours*HoursToDegrees, decDeg, g)
}

// ComputeWCSDegrees is ComputeWCS with the right ascension already in degrees.
func ComputeWCSDegrees(raDeg, decDeg float64, g Geometry) (WCS, error) {
	if err := g.Validate(); err != nil {
		return WCS{}, err
	}
	scale := LegacyPixelScaleDegrees(g.PixelSize, g.Binning, g.FocalLength)
	return WCS{
		CRPix: ReferencePixel(g.Width, g.Height),
		CDelt: [2]float64{-scale, scale},
		CRVal: [2]float64{raDeg, decDeg},
		CType: [2]string{CTypeRA, CTypeDec},
	}, nil
}

// Scale returns the absolute pixel scale of the projection in degrees
func (w WCS) Scale() float64 {
	return w.CDelt[1]
}
