package imgrec

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/astrogo/fitsio"

	"github.com/ciboulette/astrolab/astrometry"
)

// WriteRaw writes f and the header built from m to path, replacing any file
// already there.  The file is marked as not yet augmented.
func WriteRaw(path string, f Frame, m Metadata) (Handle, error) {
	h := Handle{Path: path, FrameID: m.FrameID, Phase: PhaseRaw}
	if len(f.Data) != f.Width*f.Height || len(f.Data) == 0 {
		return h, &PersistenceError{Phase: PhaseRaw, Path: path, Err: fmt.Errorf("frame %dx%d has %d pixels", f.Width, f.Height, len(f.Data))}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return h, &PersistenceError{Phase: PhaseRaw, Path: path, Err: err}
	}
	if err := writeFITS(path, f, m.Cards()); err != nil {
		return h, &PersistenceError{Phase: PhaseRaw, Path: path, Err: err}
	}
	return h, nil
}

// Augment re-opens the file of a raw handle and merges in JD-OBS, MJD-OBS,
// LST and the WCS block.  Every input is read back from the file itself.
func Augment(h Handle) (Artifact, error) {
	fail := func(err error) (Artifact, error) {
		return Artifact{Handle: h}, &PersistenceError{Phase: PhaseAugmented, Path: h.Path, Err: err}
	}
	hdr, f, err := readFITS(h.Path, true)
	if err != nil {
		return fail(err)
	}
	a, err := augment(hdr, f.Width, f.Height)
	if err != nil {
		return fail(err)
	}
	if err = writeFITS(h.Path, f, hdr.Cards()); err != nil {
		return fail(err)
	}
	a.Handle = Handle{Path: h.Path, FrameID: h.FrameID, Phase: PhaseAugmented}
	return a, nil
}

// augment derives the second phase cards and sets them on hdr
func augment(hdr *Header, naxis1, naxis2 int) (Artifact, error) {
	var a Artifact
	dateObs, err := hdr.String("DATE-OBS")
	if err != nil {
		return a, err
	}
	t, err := astrometry.ParseDateObs(dateObs)
	if err != nil {
		return a, err
	}
	var (
		g       = astrometry.Geometry{Width: naxis1, Height: naxis2}
		ra, dec float64
		long    float64
	)
	for _, step := range []struct {
		name string
		dst  *float64
	}{
		{"PIXSIZE1", &g.PixelSize},
		{"FOCALLEN", &g.FocalLength},
		{"RA", &ra},
		{"DEC", &dec},
		{"SITELONG", &long},
	} {
		if *step.dst, err = hdr.Float(step.name); err != nil {
			return a, err
		}
	}
	if g.Binning, err = hdr.Int("XBINNING"); err != nil {
		return a, err
	}
	w, err := astrometry.ComputeWCSDegrees(ra, dec, g)
	if err != nil {
		return a, err
	}
	a.WCS = w
	a.JD = astrometry.JulianDate(t)
	a.MJD = astrometry.ModifiedJulianDate(t)
	a.LST = astrometry.LocalSiderealTime(t, long)

	hdr.Set(fitsio.Card{Name: "JD-OBS", Value: a.JD})
	hdr.Set(fitsio.Card{Name: "MJD-OBS", Value: a.MJD})
	hdr.Set(fitsio.Card{Name: "LST", Value: a.LST, Comment: "[h] Local sidereal time at start"})
	for _, c := range wcsCards(w) {
		hdr.Set(c)
	}
	hdr.Set(fitsio.Card{Name: "AUGMENTD", Value: true})
	return a, nil
}

func wcsCards(w astrometry.WCS) []fitsio.Card {
	return []fitsio.Card{
		{Name: "WCSAXES", Value: 2, Comment: "Number of coordinate axes"},
		{Name: "CRPIX1", Value: w.CRPix[0], Comment: "Pixel coordinate of reference point"},
		{Name: "CRPIX2", Value: w.CRPix[1], Comment: "Pixel coordinate of reference point"},
		{Name: "CDELT1", Value: w.CDelt[0], Comment: "[deg] Coordinate increment at reference point"},
		{Name: "CDELT2", Value: w.CDelt[1], Comment: "[deg] Coordinate increment at reference point"},
		{Name: "CUNIT1", Value: "deg", Comment: "Units of coordinate increment and value"},
		{Name: "CUNIT2", Value: "deg", Comment: "Units of coordinate increment and value"},
		{Name: "CTYPE1", Value: w.CType[0], Comment: "Right ascension, gnomonic projection"},
		{Name: "CTYPE2", Value: w.CType[1], Comment: "Declination, gnomonic projection"},
		{Name: "CRVAL1", Value: w.CRVal[0], Comment: "[deg] Coordinate value at reference point"},
		{Name: "CRVAL2", Value: w.CRVal[1], Comment: "[deg] Coordinate value at reference point"},
		{Name: "LONPOLE", Value: 180.0, Comment: "[deg] Native longitude of celestial pole"},
		{Name: "LATPOLE", Value: w.CRVal[1], Comment: "[deg] Native latitude of celestial pole"},
		{Name: "RADESYS", Value: "ICRS", Comment: "Equatorial coordinate system"},
	}
}

// Inspect reports which phase the file at path reached
func Inspect(path string) (Phase, error) {
	hdr, err := ReadHeader(path)
	if err != nil {
		return PhaseUnknown, err
	}
	done, err := hdr.Bool("AUGMENTD")
	if err != nil {
		return PhaseUnknown, nil
	}
	if done {
		return PhaseAugmented, nil
	}
	return PhaseRaw, nil
}

// ReadHeader reads the non-structural primary header of the file at path
func ReadHeader(path string) (*Header, error) {
	hdr, _, err := readFITS(path, false)
	return hdr, err
}

// ReadFrame reads the header and pixels of the file at path
func ReadFrame(path string) (*Header, Frame, error) {
	return readFITS(path, true)
}

func readFITS(path string, pixels bool) (*Header, Frame, error) {
	var f Frame
	fid, err := os.Open(path)
	if err != nil {
		return nil, f, err
	}
	defer fid.Close()
	fits, err := fitsio.Open(fid)
	if err != nil {
		return nil, f, err
	}
	defer fits.Close()
	img, ok := fits.HDU(0).(fitsio.Image)
	if !ok {
		return nil, f, fmt.Errorf("%s: primary HDU is not an image", path)
	}
	raw := img.Header()
	cards := make([]fitsio.Card, 0, len(raw.Keys()))
	for _, k := range raw.Keys() {
		if c := raw.Get(k); c != nil {
			cards = append(cards, *c)
		}
	}
	hdr := NewHeader(cards)
	if !pixels {
		return hdr, f, nil
	}
	axes := raw.Axes()
	if raw.Bitpix() != 16 || len(axes) != 2 {
		return nil, f, fmt.Errorf("%s: expected a 2D 16 bit image, got BITPIX %d axes %v", path, raw.Bitpix(), axes)
	}
	f.Width, f.Height = axes[0], axes[1]
	f.Data = make([]int16, f.Width*f.Height)
	if err = img.Read(&f.Data); err != nil {
		return nil, f, err
	}
	return hdr, f, nil
}

// writeFITS writes a temporary file next to path and renames it into place
func writeFITS(path string, f Frame, cards []fitsio.Card) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err = tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	err = encodeFITS(tmp, f, cards)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func encodeFITS(w *os.File, f Frame, cards []fitsio.Card) error {
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	im := fitsio.NewImage(16, []int{f.Width, f.Height})
	defer im.Close()
	keep := make([]fitsio.Card, 0, len(cards))
	for _, c := range cards {
		if !structural(c.Name) {
			keep = append(keep, c)
		}
	}
	if err = im.Header().Append(keep...); err != nil {
		return err
	}
	if err = im.Write(f.Data); err != nil {
		return err
	}
	if err = fits.Write(im); err != nil {
		return err
	}
	return fits.Close()
}
