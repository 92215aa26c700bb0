// Package mount describes the interfaces of an equatorial telescope mount
package mount

// Mount describes the readback of a telescope mount
type Mount interface {
	// RightAscension is the current pointing in hours
	RightAscension() (float64, error)

	// Declination is the current pointing in degrees
	Declination() (float64, error)

	// SiteLatitude is the geodetic latitude of the observatory in degrees
	SiteLatitude() (float64, error)

	// SiteLongitude is the longitude of the observatory in degrees
	SiteLongitude() (float64, error)
}

// Slewer is a mount which can be commanded to a new position
type Slewer interface {
	// SlewToCoordinates moves the mount to ra (hours), dec (degrees)
	SlewToCoordinates(ra, dec float64) error
}
