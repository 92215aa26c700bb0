package imgrec

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ciboulette/astrolab/astrometry"
)

func ExamplePath() {
	fmt.Println(filepath.ToSlash(Path("dataset", "CAM1", "INIT", 42)))
	// Output: dataset/CAM1_INIT_42.fits
}

func ExampleRotate90() {
	// a 3 wide, 2 tall readout indexed [x][y]
	px := [][]int32{{0, 1}, {10, 11}, {20, 21}}
	f, _ := Rotate90(px)
	fmt.Println(f.Width, f.Height, f.Data)
	// Output: 3 2 [1 11 21 0 10 20]
}

func TestRotate90WrapsToInt16(t *testing.T) {
	f, err := Rotate90([][]int32{{40000}})
	if err != nil {
		t.Fatal(err)
	}
	if f.Data[0] != -25536 {
		t.Errorf("expected 40000 to wrap to -25536, got %d", f.Data[0])
	}
	if _, err = Rotate90(nil); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}
}

func ramp(nx, ny int) [][]int32 {
	px := make([][]int32, nx)
	for x := range px {
		px[x] = make([]int32, ny)
		for y := range px[x] {
			px[x][y] = int32(x + y*nx)
		}
	}
	return px
}

func testMetadata() Metadata {
	return Metadata{
		PixelSize:   5.4,
		Binning:     1,
		ExpTime:     10,
		Object:      "INIT",
		Observer:    "CAM1",
		Telescope:   "CIBOULETTE-A",
		Instrument:  "Atik 383L+",
		Filter:      "L",
		SiteLat:     49.5961,
		SiteLong:    359.65,
		SiteElev:    100,
		Software:    "astrolab",
		FocalLength: 85,
		Aperture:    60,
		SensorX:     4,
		SensorY:     3,
		DateObs:     "2021-03-14T21:30:15.000",
		FrameID:     42,
		RA:          75,
		Dec:         30,
	}
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestTwoPhase(t *testing.T) {
	path := Path(t.TempDir(), "CAM1", "INIT", 42)
	f, err := Rotate90(ramp(4, 3))
	if err != nil {
		t.Fatal(err)
	}
	h, err := WriteRaw(path, f, testMetadata())
	if err != nil {
		t.Fatal(err)
	}
	if h.Phase != PhaseRaw || h.FrameID != 42 {
		t.Errorf("unexpected handle %+v", h)
	}
	phase, err := Inspect(path)
	if err != nil || phase != PhaseRaw {
		t.Fatalf("expected raw phase after WriteRaw, got %v, %v", phase, err)
	}
	hdr, err := ReadHeader(path)
	if err != nil {
		t.Fatal(err)
	}
	if first := hdr.Cards()[0].Name; first != "PIXSIZE1" {
		t.Errorf("expected PIXSIZE1 to lead the header, got %s", first)
	}
	if _, ok := hdr.Get("CRVAL1"); ok {
		t.Error("expected no WCS before augmentation")
	}

	a, err := Augment(h)
	if err != nil {
		t.Fatal(err)
	}
	if a.Phase != PhaseAugmented {
		t.Errorf("expected augmented artifact, got %v", a.Phase)
	}
	phase, err = Inspect(path)
	if err != nil || phase != PhaseAugmented {
		t.Fatalf("expected augmented phase, got %v, %v", phase, err)
	}

	hdr, got, err := ReadFrame(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Width != 4 || got.Height != 3 {
		t.Fatalf("expected 4x3 image, got %dx%d", got.Width, got.Height)
	}
	for i := range f.Data {
		if got.Data[i] != f.Data[i] {
			t.Fatalf("pixel %d changed across augmentation, %d != %d", i, got.Data[i], f.Data[i])
		}
	}
	if s, _ := hdr.String("FILTER"); s != "L" {
		t.Errorf("expected FILTER L, got %q", s)
	}
	if id, _ := hdr.Int("FRAMEID"); id != 42 {
		t.Errorf("expected FRAMEID 42, got %d", id)
	}
	for name, expected := range map[string]float64{
		"EXPTIME": 10,
		"CRVAL1":  75,
		"CRVAL2":  30,
		"CRPIX1":  2,
		"CRPIX2":  1,
		"LATPOLE": 30,
		"LONPOLE": 180,
	} {
		v, err := hdr.Float(name)
		if err != nil || !approx(v, expected, 1e-9) {
			t.Errorf("%s: expected %v, got %v (%v)", name, expected, v, err)
		}
	}
	jd := astrometry.JulianDate(mustParse(t, "2021-03-14T21:30:15.000"))
	if !approx(a.JD, jd, 1e-9) {
		t.Errorf("expected artifact JD %v, got %v", jd, a.JD)
	}
	if v, _ := hdr.Float("JD-OBS"); !approx(v, jd, 1e-5) {
		t.Errorf("expected JD-OBS %v, got %v", jd, v)
	}
	if v, _ := hdr.Float("MJD-OBS"); !approx(v, jd-astrometry.MJDOffset, 1e-5) {
		t.Errorf("expected MJD-OBS %v, got %v", jd-astrometry.MJDOffset, v)
	}
	if c, _ := hdr.Get("PIXSIZE1"); c.Comment != "[um] Pixel Size X, binned" {
		t.Errorf("expected comment to survive augmentation, got %q", c.Comment)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.fits")
	f, _ := Rotate90(ramp(4, 3))
	h, err := WriteRaw(path, f, testMetadata())
	if err != nil {
		t.Fatal(err)
	}
	a, err := Augment(h)
	if err != nil {
		t.Fatal(err)
	}
	hdr, err := ReadHeader(path)
	if err != nil {
		t.Fatal(err)
	}
	pix, _ := hdr.Float("PIXSIZE1")
	bin, _ := hdr.Int("XBINNING")
	focal, _ := hdr.Float("FOCALLEN")
	ra, _ := hdr.Float("RA")
	dec, _ := hdr.Float("DEC")
	w, err := astrometry.ComputeWCSDegrees(ra, dec, astrometry.Geometry{Width: 4, Height: 3, Binning: bin, PixelSize: pix, FocalLength: focal})
	if err != nil {
		t.Fatal(err)
	}
	if w != a.WCS {
		t.Errorf("expected header inputs to reproduce %+v, got %+v", a.WCS, w)
	}
	cdelt1, _ := hdr.Float("CDELT1")
	cdelt2, _ := hdr.Float("CDELT2")
	if !approx(cdelt1, w.CDelt[0], 1e-12) || !approx(cdelt2, w.CDelt[1], 1e-12) {
		t.Errorf("expected CDELT %v, got %v %v", w.CDelt, cdelt1, cdelt2)
	}
}

func TestOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.fits")
	f, _ := Rotate90(ramp(4, 3))
	m := testMetadata()
	if _, err := WriteRaw(path, f, m); err != nil {
		t.Fatal(err)
	}
	m.Filter = "R"
	if _, err := WriteRaw(path, f, m); err != nil {
		t.Fatal(err)
	}
	hdr, err := ReadHeader(path)
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := hdr.String("FILTER"); s != "R" {
		t.Errorf("expected second write to win, got FILTER %q", s)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*"))
	if len(matches) != 1 {
		t.Errorf("expected only the frame in the directory, got %v", matches)
	}
}

func TestFailedAugmentLeavesRawFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.fits")
	f, _ := Rotate90(ramp(4, 3))
	m := testMetadata()
	m.DateObs = "last tuesday"
	h, err := WriteRaw(path, f, m)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Augment(h)
	var pe *PersistenceError
	if !errors.As(err, &pe) || pe.Phase != PhaseAugmented || !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected augmented phase PersistenceError, got %v", err)
	}
	phase, err := Inspect(path)
	if err != nil || phase != PhaseRaw {
		t.Errorf("expected file to remain raw, got %v, %v", phase, err)
	}
}

func TestWriteRawRejectsBadFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.fits")
	_, err := WriteRaw(path, Frame{Width: 4, Height: 3, Data: make([]int16, 5)}, testMetadata())
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
	if _, err = os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected no file, stat gave %v", err)
	}
}

func TestPreview(t *testing.T) {
	f, _ := Rotate90(ramp(100, 50))
	img := Preview(f, 20)
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Errorf("expected 20x10 preview, got %v", b)
	}
	buf := &bytes.Buffer{}
	if err := WritePNG(buf, f, 0); err != nil {
		t.Fatal(err)
	}
	dec, err := png.Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := dec.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("expected full size preview, got %v", b)
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	if _, _, ok := r.Last(); ok {
		t.Error("expected empty recorder to have no last frame")
	}
	f, _ := Rotate90(ramp(4, 3))
	path := filepath.Join(t.TempDir(), "a", "frame.fits")
	a, err := r.Record(path, f, testMetadata())
	if err != nil {
		t.Fatal(err)
	}
	last, art, ok := r.Last()
	if !ok || art.Path != a.Path || last.Width != 4 {
		t.Errorf("unexpected last frame %v %+v %v", last.Width, art, ok)
	}
}

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := astrometry.ParseDateObs(s)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}
