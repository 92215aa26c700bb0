package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ciboulette/astrolab/imgrec"
)

func ExampleIsSector() {
	for _, s := range []string{"SECTOR12", "SECTO", "M31", "SECTIONR"} {
		fmt.Println(s, IsSector(s))
	}
	// Output:
	// SECTOR12 true
	// SECTO true
	// M31 false
	// SECTIONR false
}

func writeFrame(t *testing.T, dir, object string, id int, augment bool) string {
	t.Helper()
	f, err := imgrec.Rotate90([][]int32{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatal(err)
	}
	m := imgrec.Metadata{
		PixelSize: 5.4, Binning: 1, ExpTime: 1, Object: object, Observer: "CAM1",
		Filter: "L", FocalLength: 85, SensorX: 2, SensorY: 2,
		DateObs: "2021-03-14T21:30:15.000", FrameID: id, RA: 75, Dec: 30,
	}
	path := imgrec.Path(dir, m.Observer, object, id)
	h, err := imgrec.WriteRaw(path, f, m)
	if err != nil {
		t.Fatal(err)
	}
	if augment {
		if _, err = imgrec.Augment(h); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func fixture(t *testing.T) string {
	dir := t.TempDir()
	writeFrame(t, dir, "SECTOR1", 1, true)
	writeFrame(t, dir, "M31", 2, true)
	writeFrame(t, dir, "SECTOR2", 3, false)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("clear skies"), 0666); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.fits"), []byte("not a fits file"), 0666); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestScan(t *testing.T) {
	entries, err := Scan(fixture(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 frames, got %d: %+v", len(entries), entries)
	}
	byObject := map[string]Entry{}
	for _, e := range entries {
		byObject[e.Object] = e
	}
	s1 := byObject["SECTOR1"]
	if s1.FrameID != 1 || s1.DataType != "Intensity" || s1.Phase != "augmented" {
		t.Errorf("unexpected SECTOR1 entry %+v", s1)
	}
	if s1.RA < 74.999999 || s1.RA > 75.000001 || s1.Dec < 29.999999 || s1.Dec > 30.000001 {
		t.Errorf("expected CRVAL (75, 30), got (%v, %v)", s1.RA, s1.Dec)
	}
	if s2 := byObject["SECTOR2"]; s2.Phase != "raw" || s2.RA != 0 {
		t.Errorf("expected raw SECTOR2 without coordinates, got %+v", s2)
	}
	sectors := Sectors(entries)
	if len(sectors) != 2 {
		t.Errorf("expected 2 sector frames, got %+v", sectors)
	}
}

func TestScanMissingDir(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error scanning a missing directory")
	}
}

func TestIndex(t *testing.T) {
	dir := fixture(t)
	idx := NewIndex(filepath.Join(t.TempDir(), "archive.db"))
	defer idx.Close()
	ctx := context.Background()
	n, err := idx.Sync(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 frames synced, got %d", n)
	}
	// re-syncing replaces rather than duplicates
	if _, err = idx.Sync(ctx, dir); err != nil {
		t.Fatal(err)
	}
	entries, err := idx.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 indexed frames, got %d", len(entries))
	}
	scanned, _ := Scan(dir)
	for i := range scanned {
		if entries[i] != scanned[i] {
			t.Errorf("index entry %d %+v differs from scan %+v", i, entries[i], scanned[i])
		}
	}
}
