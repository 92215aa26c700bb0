package astrometry

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// DefaultMagnitudeLimit is the faintest magnitude requested for star maps
const DefaultMagnitudeLimit = 12

// Region is a rectangular patch of sky, in degrees, handed to a catalog.
type Region struct {
	// RA and Dec are the center in degrees
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`

	// Width and Height are the extent in degrees
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// MaxMagnitude is the faintest object to return
	MaxMagnitude float64 `json:"maxMagnitude"`
}

// FieldOfView returns the catalog region covered by a frame with the given
// projection and size.
func FieldOfView(w WCS, width, height int) Region {
	return Region{
		RA:           w.CRVal[0],
		Dec:          w.CRVal[1],
		Width:        w.CDelt[1] * float64(width),
		Height:       w.CDelt[1] * float64(height),
		MaxMagnitude: DefaultMagnitudeLimit,
	}
}

// Star is a catalog object with its position in degrees
type Star struct {
	Name      string  `json:"name"`
	RA        float64 `json:"ra"`
	Dec       float64 `json:"dec"`
	Magnitude float64 `json:"magnitude"`
}

// Catalog returns the objects inside a region no fainter than its
// MaxMagnitude.
type Catalog interface {
	Query(ctx context.Context, r Region) ([]Star, error)
}

// StaticCatalog is an in-memory Catalog
type StaticCatalog []Star

// Query satisfies Catalog.  RA distances are scaled by cos(Dec) of the
// region center and wrap at 360.
func (c StaticCatalog) Query(ctx context.Context, r Region) ([]Star, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cosDec := math.Cos(r.Dec * math.Pi / 180)
	out := []Star{}
	for _, s := range c {
		if s.Magnitude > r.MaxMagnitude {
			continue
		}
		dra := math.Abs(math.Mod(s.RA-r.RA+540, 360) - 180)
		if dra*cosDec > r.Width/2 || math.Abs(s.Dec-r.Dec) > r.Height/2 {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// LoadCatalog reads a StaticCatalog from a JSON array of stars
func LoadCatalog(path string) (StaticCatalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c StaticCatalog
	if err = json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}
