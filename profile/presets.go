package profile

import (
	"fmt"
	"sort"
	"strings"
)

// CameraPreset is a known sensor
type CameraPreset struct {
	Name      string
	Width     int
	Height    int
	PixelSize float64
}

// LensPreset is a known objective.  Zooms have MinFocal < MaxFocal.
type LensPreset struct {
	Name     string
	MinFocal float64
	MaxFocal float64
	Aperture float64
}

var (
	// Cameras maps lowercase preset keys to sensors
	Cameras = map[string]CameraPreset{
		"atik383l":  {Name: "Atik 383L+", Width: 3326, Height: 2504, PixelSize: 5.4},
		"atiktitan": {Name: "Atik Titan", Width: 659, Height: 494, PixelSize: 7.4},
		"asi120":    {Name: "ASI 120", Width: 1280, Height: 960, PixelSize: 3.75},
	}

	// Lenses maps lowercase preset keys to objectives
	Lenses = map[string]LensPreset{
		"samyang85":   {Name: "Samyang 85mm F1.4", MinFocal: 85, MaxFocal: 85, Aperture: 60},
		"canon200":    {Name: "Canon 200mm F2.8", MinFocal: 200, MaxFocal: 200, Aperture: 71},
		"sigma120400": {Name: "Sigma 120-400", MinFocal: 120, MaxFocal: 400, Aperture: 71},
	}
)

func cameraKeys() []string {
	out := make([]string, 0, len(Cameras))
	for k := range Cameras {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func lensKeys() []string {
	out := make([]string, 0, len(Lenses))
	for k := range Lenses {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ApplyCamera loads a camera preset into the instrument
func (i *Instrument) ApplyCamera(key string) error {
	c, ok := Cameras[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("%w: camera %q, known: %v", ErrUnknownPreset, key, cameraKeys())
	}
	i.Instrument = c.Name
	i.Width = c.Width
	i.Height = c.Height
	i.PixelSizeX = c.PixelSize
	i.PixelSizeY = c.PixelSize
	return nil
}

// ApplyLens loads a lens preset into the instrument.  focal selects the
// focal length of a zoom; zero picks the short end.  A focal length outside
// the zoom range leaves the instrument unchanged and is not an error.
func (i *Instrument) ApplyLens(key string, focal float64) error {
	l, ok := Lenses[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("%w: lens %q, known: %v", ErrUnknownPreset, key, lensKeys())
	}
	if focal == 0 {
		focal = l.MinFocal
	}
	if focal < l.MinFocal || focal > l.MaxFocal {
		return nil
	}
	i.FocalLength = focal
	i.Aperture = l.Aperture
	return nil
}
