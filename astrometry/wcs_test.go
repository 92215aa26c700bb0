package astrometry_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/ciboulette/astrolab/astrometry"
)

var atik383 = astrometry.Geometry{
	Width:       3326,
	Height:      2504,
	Binning:     1,
	PixelSize:   5.4,
	FocalLength: 85,
}

func ExampleLegacyPixelScaleDegrees() {
	fmt.Printf("%.7f\n", astrometry.LegacyPixelScaleDegrees(5.4, 1, 85))
	// Output: 0.0033660
}

func ExampleComputeWCS() {
	w, _ := astrometry.ComputeWCS(5, 30, atik383)
	fmt.Println(w.CRPix, w.CRVal, w.CType)
	// Output: [1663 1252] [75 30] [RA---TAN DEC--TAN]
}

func TestLegacyPixelScaleTruncatesPixelSize(t *testing.T) {
	got := astrometry.LegacyPixelScaleDegrees(5.4, 1, 85)
	expected := (206. * 5 * 1 / 85) / 3600
	if got != expected {
		t.Errorf("expected %v got %v", expected, got)
	}
	// 5.4 and 5.99 both truncate to 5
	if other := astrometry.LegacyPixelScaleDegrees(5.99, 1, 85); other != got {
		t.Errorf("expected truncated pixel sizes to agree, %v != %v", other, got)
	}
}

func TestLegacyPixelScaleBinning(t *testing.T) {
	one := astrometry.LegacyPixelScaleDegrees(7.4, 1, 200)
	two := astrometry.LegacyPixelScaleDegrees(7.4, 2, 200)
	if math.Abs(two-2*one) > 1e-15 {
		t.Errorf("expected 2x2 binning to double the scale, %v vs %v", two, one)
	}
}

func TestComputeWCSIsDeterministic(t *testing.T) {
	a, err := astrometry.ComputeWCS(5.5, -12.25, atik383)
	if err != nil {
		t.Fatal(err)
	}
	b, err := astrometry.ComputeWCS(5.5, -12.25, atik383)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("expected identical projections, got %+v and %+v", a, b)
	}
}

func TestComputeWCSSigns(t *testing.T) {
	geoms := []astrometry.Geometry{
		atik383,
		{Width: 659, Height: 494, Binning: 2, PixelSize: 7.4, FocalLength: 200},
		{Width: 1280, Height: 960, Binning: 1, PixelSize: 3.75, FocalLength: 120},
	}
	for _, g := range geoms {
		w, err := astrometry.ComputeWCS(1, 2, g)
		if err != nil {
			t.Fatal(err)
		}
		if !(w.CDelt[0] < 0 && 0 < w.CDelt[1]) {
			t.Errorf("expected cdelt1 < 0 < cdelt2, got %v", w.CDelt)
		}
		if math.Abs(w.CDelt[0]) != math.Abs(w.CDelt[1]) {
			t.Errorf("expected square pixels, got %v", w.CDelt)
		}
	}
}

func TestReferencePixelTruncates(t *testing.T) {
	got := astrometry.ReferencePixel(659, 494)
	expected := [2]float64{329, 247}
	if got != expected {
		t.Errorf("expected %v got %v", expected, got)
	}
}

func TestComputeWCSRejectsBadGeometry(t *testing.T) {
	bad := []astrometry.Geometry{
		{Width: 10, Height: 10, Binning: 1, PixelSize: 5, FocalLength: 0},
		{Width: 10, Height: 10, Binning: 1, PixelSize: 0, FocalLength: 85},
		{Width: 10, Height: 10, Binning: 0, PixelSize: 5, FocalLength: 85},
		{Width: 0, Height: 10, Binning: 1, PixelSize: 5, FocalLength: 85},
	}
	for _, g := range bad {
		_, err := astrometry.ComputeWCS(0, 0, g)
		if !errors.Is(err, astrometry.ErrBadGeometry) {
			t.Errorf("expected ErrBadGeometry for %+v, got %v", g, err)
		}
	}
}

func TestComputeWCSDegreesMatchesHours(t *testing.T) {
	a, _ := astrometry.ComputeWCS(5, 30, atik383)
	b, _ := astrometry.ComputeWCSDegrees(75, 30, atik383)
	if a != b {
		t.Errorf("expected hours and degrees entry points to agree, %+v != %+v", a, b)
	}
}

func TestFieldOfView(t *testing.T) {
	w, _ := astrometry.ComputeWCS(5, 30, atik383)
	r := astrometry.FieldOfView(w, atik383.Width, atik383.Height)
	if r.RA != 75 || r.Dec != 30 {
		t.Errorf("expected region centered on 75,30 got %v,%v", r.RA, r.Dec)
	}
	expected := w.Scale() * 3326
	if r.Width != expected {
		t.Errorf("expected width %v got %v", expected, r.Width)
	}
	if r.MaxMagnitude != astrometry.DefaultMagnitudeLimit {
		t.Errorf("expected magnitude limit %v got %v", astrometry.DefaultMagnitudeLimit, r.MaxMagnitude)
	}
}
