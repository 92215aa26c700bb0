package util

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func ExampleSecsToDuration() {
	fmt.Println(SecsToDuration(10), SecsToDuration(0.25))
	// Output: 10s 250ms
}

func TestClampHigh(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = 20.
	)
	clamped := Clamp(input, low, high)
	if clamped != high {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampLow(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = -1.
	)
	clamped := Clamp(input, low, high)
	if clamped != low {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestSecsToDuration(t *testing.T) {
	var dur time.Duration = 123456789
	secs := dur.Seconds()
	out := SecsToDuration(secs)
	if out != dur {
		t.Errorf("expected SecsToDuration to round trip, output %v != expected %v", out, dur)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, expected := range cases {
		if got := ParseLevel(in); got != expected {
			t.Errorf("level %q: expected %v got %v", in, expected, got)
		}
	}
}

func TestJSONLoggerFiltersLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newLogger(buf, LogConfig{Level: "warn", Format: "json"})
	l.Info("quiet")
	l.Warn("loud", "frame", 42)
	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("expected info to be filtered at warn level, got %s", out)
	}
	if !strings.Contains(out, `"frame":42`) {
		t.Errorf("expected structured frame attribute, got %s", out)
	}
}
