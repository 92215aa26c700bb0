// Package metrics exposes Prometheus metrics for the exposure pipeline
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the pipeline metrics.  A nil *Collector is valid and
// records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	FramesPersisted  prometheus.Counter
	ExposureFailures *prometheus.CounterVec
	ReadyWait        prometheus.Histogram
	ExposureState    prometheus.Gauge
}

// NewCollector registers the pipeline metrics against reg, or the default
// registerer if reg is nil
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frames := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "astrolab_frames_persisted_total",
		Help: "Frames written through both persistence phases.",
	})
	frames, err := registerCounter(reg, frames, "astrolab_frames_persisted_total")
	if err != nil {
		return nil, err
	}

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astrolab_exposure_failures_total",
		Help: "Exposures which did not produce a frame, by kind of failure.",
	}, []string{"kind"})
	failures, err = registerCounterVec(reg, failures, "astrolab_exposure_failures_total")
	if err != nil {
		return nil, err
	}

	wait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "astrolab_ready_wait_seconds",
		Help:    "Time from exposure start until the camera reported the image ready.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600, 1800},
	})
	wait, err = registerHistogram(reg, wait, "astrolab_ready_wait_seconds")
	if err != nil {
		return nil, err
	}

	state := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "astrolab_exposure_state",
		Help: "Current state of the exposure orchestrator: 0 idle, 1 exposing, 2 reading, 3 processing, 4 persisted, 5 failed.",
	})
	state, err = registerGauge(reg, state, "astrolab_exposure_state")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		FramesPersisted:  frames,
		ExposureFailures: failures,
		ReadyWait:        wait,
		ExposureState:    state,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// IncFrames counts a persisted frame
func (c *Collector) IncFrames() {
	if c == nil || c.FramesPersisted == nil {
		return
	}
	c.FramesPersisted.Inc()
}

// IncFailure counts a failed exposure of the given kind
func (c *Collector) IncFailure(kind string) {
	if c == nil || c.ExposureFailures == nil {
		return
	}
	c.ExposureFailures.WithLabelValues(kind).Inc()
}

// ObserveReadyWait records how long the camera took to become ready
func (c *Collector) ObserveReadyWait(d time.Duration) {
	if c == nil || c.ReadyWait == nil {
		return
	}
	c.ReadyWait.Observe(d.Seconds())
}

// SetState records the orchestrator state
func (c *Collector) SetState(state int) {
	if c == nil || c.ExposureState == nil {
		return
	}
	c.ExposureState.Set(float64(state))
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
