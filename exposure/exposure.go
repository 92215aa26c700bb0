/*Package exposure takes one frame from a rig and persists it.

An Orchestrator walks each request through Idle, Exposing, Reading,
Processing and Persisted, or stops in Failed.  The only blocking step is the
readiness poll, which honours the caller's context and an optional Timeout.
A device error aborts the cycle before anything is written to disk.
*/
package exposure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ciboulette/astrolab/archive"
	"github.com/ciboulette/astrolab/astrometry"
	"github.com/ciboulette/astrolab/imgrec"
	"github.com/ciboulette/astrolab/metrics"
	"github.com/ciboulette/astrolab/profile"
	"github.com/ciboulette/astrolab/rig"
	"github.com/ciboulette/astrolab/util"
)

// DefaultPollInterval is how often the camera is asked if the image is ready
const DefaultPollInterval = time.Second

// State is a step of the exposure cycle
type State int

const (
	// Idle is before the first exposure
	Idle State = iota
	Exposing
	Reading
	Processing
	Persisted
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Exposing:
		return "exposing"
	case Reading:
		return "reading"
	case Processing:
		return "processing"
	case Persisted:
		return "persisted"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Request is one exposure to take
type Request struct {
	// ExpTime is the exposure time in seconds
	ExpTime float64 `json:"exptime"`

	// FrameID is assigned by the caller and carried into the file name
	FrameID int `json:"frameid"`
}

// Orchestrator drives a rig through exposures.  Only one exposure runs at a
// time; a concurrent call returns ErrBusy.
type Orchestrator struct {
	Rig      *rig.Rig
	Session  *profile.Session
	Recorder *imgrec.Recorder

	// Index, if not nil, is updated with every persisted frame
	Index *archive.Index

	// Catalog, if not nil, answers star map queries for the field of view
	Catalog astrometry.Catalog

	// Metrics may be nil
	Metrics *metrics.Collector

	// Logger may be nil, in which case slog.Default is used
	Logger *slog.Logger

	// PollInterval is the wait between readiness polls, DefaultPollInterval if zero
	PollInterval time.Duration

	// Timeout bounds the readiness poll, counted from the end of the
	// exposure: the camera has ExpTime + Timeout to become ready.  Zero
	// waits forever.
	Timeout time.Duration

	run sync.Mutex

	mu      sync.Mutex
	state   State
	lastErr error
}

// NewOrchestrator returns an orchestrator with a fresh recorder
func NewOrchestrator(r *rig.Rig, s *profile.Session) *Orchestrator {
	return &Orchestrator{Rig: r, Session: s, Recorder: &imgrec.Recorder{}}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.Metrics.SetState(int(s))
	o.logger().Debug("exposure state", "state", s.String())
}

// State returns the current state and the error that caused the last failure
func (o *Orchestrator) State() (State, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state, o.lastErr
}

func (o *Orchestrator) fail(err error) error {
	o.mu.Lock()
	o.state = Failed
	o.lastErr = err
	o.mu.Unlock()
	o.Metrics.SetState(int(Failed))
	o.Metrics.IncFailure(Kind(err))
	o.logger().Error("exposure failed", "kind", Kind(err), "err", err)
	return err
}

// Expose takes and persists one frame, returning its frame id
func (o *Orchestrator) Expose(ctx context.Context, req Request) (int, error) {
	if !o.run.TryLock() {
		return 0, ErrBusy
	}
	defer o.run.Unlock()
	if req.ExpTime <= 0 {
		return 0, o.fail(fmt.Errorf("%w: exposure time %v s must be > 0", ErrInvalidRequest, req.ExpTime))
	}
	o.mu.Lock()
	o.lastErr = nil
	o.mu.Unlock()

	o.setState(Exposing)
	start := time.Now()
	if err := o.Rig.StartExposure(req.ExpTime, true); err != nil {
		return 0, o.fail(err)
	}
	if err := o.waitReady(ctx, util.SecsToDuration(req.ExpTime)); err != nil {
		return 0, o.fail(err)
	}
	o.Metrics.ObserveReadyWait(time.Since(start))

	o.setState(Reading)
	rb, err := o.Rig.Collect()
	if err != nil {
		return 0, o.fail(err)
	}
	if rb.Camera.TemperatureErr != nil {
		o.logger().Warn("sensor temperature unavailable, writing CCD-TEMP 0", "err", rb.Camera.TemperatureErr)
	}

	o.setState(Processing)
	a, err := o.persist(ctx, req, rb)
	if err != nil {
		return 0, o.fail(err)
	}

	o.setState(Persisted)
	o.Metrics.IncFrames()
	l := o.logger().With("frame", req.FrameID, "path", a.Path)
	if fi, err := os.Stat(a.Path); err == nil {
		l = l.With("size", humanize.Bytes(uint64(fi.Size())))
	}
	l.Info("frame persisted", "filter", rb.Filter, "crval1", a.WCS.CRVal[0], "crval2", a.WCS.CRVal[1])
	return req.FrameID, nil
}

// waitReady polls the camera until the image is ready, the context is done
// or Timeout passes after the exposure should have ended
func (o *Orchestrator) waitReady(ctx context.Context, exptime time.Duration) error {
	interval := o.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var deadline <-chan time.Time
	if o.Timeout > 0 {
		timer := time.NewTimer(exptime + o.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	for {
		ok, err := o.Rig.ImageReady()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return rig.Wrap("camera", "ImageReady", ctx.Err())
		case <-deadline:
			return rig.Wrap("camera", "ImageReady", fmt.Errorf("%w after %v", ErrExposureTimeout, exptime+o.Timeout))
		case <-ticker.C:
		}
	}
}

// persist updates the profile from the readback and writes the frame
func (o *Orchestrator) persist(ctx context.Context, req Request, rb rig.Readback) (imgrec.Artifact, error) {
	frame, err := imgrec.Rotate90(rb.Camera.Pixels)
	if err != nil {
		return imgrec.Artifact{}, rig.Wrap("camera", "ImageArray", err)
	}

	var rejected profile.Result
	o.Session.Update(func(p *profile.Profile) {
		i := &p.Instrument
		i.PixelSizeX = rb.Camera.PixelSize
		i.PixelSizeY = rb.Camera.PixelSize
		i.Binning = rb.Camera.Binning
		i.Width = rb.Camera.Width
		i.Height = rb.Camera.Height
		i.Filter = rb.Filter
		p.Pointing = rb.Mount.Pointing
		lat, long := rb.Mount.Latitude, rb.Mount.Longitude
		rejected = p.Site.TrySet(profile.SiteUpdate{Latitude: &lat, Longitude: &long})
	})
	if !rejected.OK() {
		o.logger().Warn("mount reported an invalid site, keeping the previous one", "rejected", rejected.Rejected)
	}
	p := o.Session.Snapshot()
	inst := p.Instrument

	w, err := astrometry.ComputeWCS(p.Pointing.RA, p.Pointing.Dec, astrometry.Geometry{
		Width:       inst.Width,
		Height:      inst.Height,
		Binning:     inst.Binning,
		PixelSize:   inst.PixelSizeX,
		FocalLength: inst.FocalLength,
	})
	if err != nil {
		return imgrec.Artifact{}, err
	}
	o.logger().Debug("projection", "crpix", w.CRPix, "cdelt", w.CDelt, "crval", w.CRVal)

	m := imgrec.Metadata{
		PixelSize:   rb.Camera.PixelSize,
		Binning:     rb.Camera.Binning,
		ExpTime:     req.ExpTime,
		Object:      inst.Object,
		Observer:    inst.Observer,
		Telescope:   inst.Telescope,
		Instrument:  inst.Instrument,
		Temperature: rb.Camera.Temperature,
		Filter:      rb.Filter,
		SiteLat:     p.Site.Latitude,
		SiteLong:    p.Site.Longitude,
		SiteElev:    p.Site.Elevation,
		Software:    inst.Software,
		FocalLength: inst.FocalLength,
		Aperture:    inst.Aperture,
		SensorX:     rb.Camera.Width,
		SensorY:     rb.Camera.Height,
		DateObs:     rb.Camera.DateObs,
		FrameID:     req.FrameID,
		RA:          w.CRVal[0],
		Dec:         w.CRVal[1],
	}
	path := imgrec.Path(inst.Dataset, inst.Observer, inst.Object, req.FrameID)
	a, err := o.Recorder.Record(path, frame, m)
	if err != nil {
		return a, err
	}
	if o.Index != nil {
		e := archive.Entry{
			Path:     a.Path,
			Object:   inst.Object,
			FrameID:  req.FrameID,
			DataType: "Intensity",
			Filter:   rb.Filter,
			DateObs:  rb.Camera.DateObs,
			RA:       a.WCS.CRVal[0],
			Dec:      a.WCS.CRVal[1],
			Phase:    a.Phase.String(),
		}
		if err := o.Index.Record(ctx, e); err != nil {
			o.logger().Warn("frame not indexed", "path", a.Path, "err", err)
		}
	}
	return a, nil
}
