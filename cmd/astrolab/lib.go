package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ciboulette/astrolab/alpaca"
	"github.com/ciboulette/astrolab/archive"
	"github.com/ciboulette/astrolab/astrometry"
	"github.com/ciboulette/astrolab/exposure"
	"github.com/ciboulette/astrolab/metrics"
	"github.com/ciboulette/astrolab/profile"
	"github.com/ciboulette/astrolab/rig"
	"github.com/ciboulette/astrolab/server/middleware/locker"
	"github.com/ciboulette/astrolab/util"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ExposureConfig holds the settings of the exposure loop
type ExposureConfig struct {
	// PollIntervalSec is the time between readiness polls
	PollIntervalSec float64 `yaml:"PollIntervalSec" koanf:"PollIntervalSec"`

	// TimeoutSec is how long past the end of the exposure to wait for the
	// camera to become ready.  Zero waits forever.
	TimeoutSec float64 `yaml:"TimeoutSec" koanf:"TimeoutSec"`

	// Strict makes out of range pointing and site updates an error
	Strict bool `yaml:"Strict" koanf:"Strict"`
}

// PresetConfig selects camera and lens presets applied over the profile
type PresetConfig struct {
	Camera string `yaml:"Camera" koanf:"Camera"`
	Lens   string `yaml:"Lens" koanf:"Lens"`

	// Focal is the focal length in mm for zoom lenses
	Focal float64 `yaml:"Focal" koanf:"Focal"`
}

// ArchiveConfig holds the location of the archive index
type ArchiveConfig struct {
	// DB is the path to the sqlite index.  Empty disables the index and
	// archive listings scan the archive directory instead.
	DB string `yaml:"DB" koanf:"DB"`
}

// CatalogConfig locates the star catalog served for the field of view
type CatalogConfig struct {
	// Path is a JSON array of stars.  Empty disables GET /fov/stars.
	Path string `yaml:"Path" koanf:"Path"`
}

// Config is a struct that holds the initialization parameters of the
// server.  It is populated by koanf from defaults, astrolab.yml and the
// environment.
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Mock replaces the Alpaca devices with in-memory ones
	Mock bool `yaml:"Mock" koanf:"Mock"`

	Alpaca   alpaca.Config   `yaml:"Alpaca" koanf:"Alpaca"`
	Profile  profile.Profile `yaml:"Profile" koanf:"Profile"`
	Presets  PresetConfig    `yaml:"Presets" koanf:"Presets"`
	Exposure ExposureConfig  `yaml:"Exposure" koanf:"Exposure"`
	Archive  ArchiveConfig   `yaml:"Archive" koanf:"Archive"`
	Catalog  CatalogConfig   `yaml:"Catalog" koanf:"Catalog"`
	Log      util.LogConfig  `yaml:"Log" koanf:"Log"`
}

// DefaultConfig is the configuration before any file or environment is read
func DefaultConfig() Config {
	return Config{
		Addr: ":8000",
		Alpaca: alpaca.Config{
			Addr:              "http://localhost:11111",
			RequestsPerSecond: 20,
			TimeoutSec:        10,
		},
		Profile:  profile.Default(),
		Exposure: ExposureConfig{PollIntervalSec: 1},
		Log:      util.LogConfig{Level: "info", Format: "text", MaxSizeMB: 10, MaxBackups: 3},
	}
}

// App is everything a command needs, built from a Config
type App struct {
	Config   Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	O        *exposure.Orchestrator

	closers []io.Closer
}

// NewApp connects the rig and wires the orchestrator.  Close releases the
// log file and the archive index.
func NewApp(c Config) (*App, error) {
	logger, lc := util.NewLogger(c.Log)
	a := &App{Config: c, Logger: logger, Registry: prometheus.NewRegistry(), closers: []io.Closer{lc}}

	p := c.Profile
	if c.Presets.Camera != "" {
		if err := p.Instrument.ApplyCamera(c.Presets.Camera); err != nil {
			a.Close()
			return nil, err
		}
	}
	if c.Presets.Lens != "" {
		if err := p.Instrument.ApplyLens(c.Presets.Lens, c.Presets.Focal); err != nil {
			a.Close()
			return nil, err
		}
	}
	s := profile.NewSession(p)
	s.Strict = c.Exposure.Strict

	r, err := NewRig(c, p.Instrument)
	if err != nil {
		a.Close()
		return nil, err
	}
	m, err := metrics.NewCollector(a.Registry)
	if err != nil {
		a.Close()
		return nil, err
	}

	o := exposure.NewOrchestrator(r, s)
	o.Metrics = m
	o.Logger = logger
	o.PollInterval = util.SecsToDuration(c.Exposure.PollIntervalSec)
	o.Timeout = util.SecsToDuration(c.Exposure.TimeoutSec)
	if c.Catalog.Path != "" {
		cat, err := astrometry.LoadCatalog(c.Catalog.Path)
		if err != nil {
			a.Close()
			return nil, err
		}
		o.Catalog = cat
	}
	if c.Archive.DB != "" {
		idx := archive.NewIndex(c.Archive.DB)
		o.Index = idx
		a.closers = append(a.closers, idx)
	}
	a.O = o
	return a, nil
}

// NewRig returns the in-memory rig in mock mode, otherwise connects to the
// Alpaca server
func NewRig(c Config, i profile.Instrument) (*rig.Rig, error) {
	if c.Mock {
		r, _, _, _ := rig.NewMock(i.Width, i.Height)
		return r, nil
	}
	r, err := alpaca.NewRig(c.Alpaca)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.Alpaca.Addr, err)
	}
	return r, nil
}

// Close releases the resources held by the app
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BuildMux binds the exposure routes, the lock and /metrics onto a chi router
func BuildMux(a *App) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Logger)

	lock := locker.New()
	root.Use(lock.Check)
	exposure.NewHTTPWrapper(a.O, lock).RT().Bind(root)
	root.Method("GET", "/metrics", promhttp.HandlerFor(a.O.Metrics.Gatherer(), promhttp.HandlerOpts{}))
	return root
}
