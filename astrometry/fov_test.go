package astrometry_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ciboulette/astrolab/astrometry"
)

var stars = astrometry.StaticCatalog{
	{Name: "inside", RA: 75.5, Dec: 30.5, Magnitude: 5},
	{Name: "faint", RA: 75, Dec: 30, Magnitude: 13},
	{Name: "east", RA: 77, Dec: 30, Magnitude: 2},
	{Name: "south", RA: 75, Dec: 28.9, Magnitude: 2},
	{Name: "wrapped", RA: 0.3, Dec: 0, Magnitude: 4},
}

func names(s []astrometry.Star) []string {
	out := []string{}
	for _, st := range s {
		out = append(out, st.Name)
	}
	return out
}

func TestStaticCatalogQuery(t *testing.T) {
	r := astrometry.Region{RA: 75, Dec: 30, Width: 2, Height: 2, MaxMagnitude: astrometry.DefaultMagnitudeLimit}
	got, err := stars.Query(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	if n := names(got); len(n) != 1 || n[0] != "inside" {
		t.Errorf("expected only the bright star inside the region, got %v", n)
	}

	r = astrometry.Region{RA: 359.5, Dec: 0, Width: 2, Height: 2, MaxMagnitude: astrometry.DefaultMagnitudeLimit}
	got, _ = stars.Query(context.Background(), r)
	if n := names(got); len(n) != 1 || n[0] != "wrapped" {
		t.Errorf("expected the region to wrap at RA 360, got %v", n)
	}
}

func TestStaticCatalogCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := stars.Query(ctx, astrometry.Region{}); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stars.json")
	err := os.WriteFile(path, []byte(`[{"name": "Aldebaran", "ra": 68.98, "dec": 16.51, "magnitude": 0.85}]`), 0644)
	if err != nil {
		t.Fatal(err)
	}
	c, err := astrometry.LoadCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(c) != 1 || c[0].Name != "Aldebaran" || c[0].Magnitude != 0.85 {
		t.Errorf("unexpected catalog %+v", c)
	}
	if err = os.WriteFile(path, []byte(`{`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err = astrometry.LoadCatalog(path); err == nil {
		t.Error("expected an error for a truncated catalog")
	}
}
