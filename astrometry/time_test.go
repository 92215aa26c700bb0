package astrometry

import (
	"math"
	"testing"
	"time"
)

func TestJulianDateJ2000(t *testing.T) {
	j2000 := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	if jd := JulianDate(j2000); jd != 2451545.0 {
		t.Errorf("expected JD 2451545.0 got %v", jd)
	}
	if mjd := ModifiedJulianDate(j2000); mjd != 51544.5 {
		t.Errorf("expected MJD 51544.5 got %v", mjd)
	}
}

func TestJulianDateKeepsSubSecond(t *testing.T) {
	base := time.Date(2021, 3, 14, 21, 30, 15, 0, time.UTC)
	half := base.Add(500 * time.Millisecond)
	diff := JulianDate(half) - JulianDate(base)
	expected := 0.5 / 86400
	if math.Abs(diff-expected) > 1e-9 {
		t.Errorf("expected a half second to add %v days, got %v", expected, diff)
	}
}

func TestParseDateObs(t *testing.T) {
	cases := []struct {
		in       string
		expected time.Time
	}{
		{"2021-03-14T21:30:15.250", time.Date(2021, 3, 14, 21, 30, 15, 250e6, time.UTC)},
		{"2021-03-14T21:30:15", time.Date(2021, 3, 14, 21, 30, 15, 0, time.UTC)},
		{"2021-03-14T22:30:15+01:00", time.Date(2021, 3, 14, 21, 30, 15, 0, time.UTC)},
		{" 2021-03-14 ", time.Date(2021, 3, 14, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := ParseDateObs(c.in)
		if err != nil {
			t.Errorf("parsing %q: %v", c.in, err)
			continue
		}
		if !got.Equal(c.expected) {
			t.Errorf("parsing %q: expected %v got %v", c.in, c.expected, got)
		}
	}
	if _, err := ParseDateObs("yesterday"); err == nil {
		t.Error("expected an error for a non-date")
	}
}

func TestFormatDateObsRoundTrip(t *testing.T) {
	in := time.Date(2021, 3, 14, 21, 30, 15, 250e6, time.UTC)
	out, err := ParseDateObs(FormatDateObs(in))
	if err != nil {
		t.Fatal(err)
	}
	if !out.Equal(in) {
		t.Errorf("expected %v got %v", in, out)
	}
}

func TestLocalSiderealTime(t *testing.T) {
	j2000 := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	gmst := LocalSiderealTime(j2000, 0)
	if math.Abs(gmst-18.697374558) > 1e-5 {
		t.Errorf("expected GMST at J2000 of 18.6974h, got %v", gmst)
	}
	east := LocalSiderealTime(j2000, 15)
	if d := math.Mod(east-gmst+24, 24); math.Abs(d-1) > 1e-9 {
		t.Errorf("expected 15 degrees east to add one hour, got %v", d)
	}
	west := LocalSiderealTime(j2000, 359.65)
	if west < 0 || west >= 24 {
		t.Errorf("expected LST in [0,24), got %v", west)
	}
}
