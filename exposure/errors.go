package exposure

import (
	"context"
	"errors"
	"net/http"

	"github.com/ciboulette/astrolab/astrometry"
	"github.com/ciboulette/astrolab/filterwheel"
	"github.com/ciboulette/astrolab/imgrec"
	"github.com/ciboulette/astrolab/profile"
	"github.com/ciboulette/astrolab/rig"
)

var (
	// ErrExposureTimeout is wrapped by the DeviceError returned when the
	// camera does not become ready within Orchestrator.Timeout
	ErrExposureTimeout = errors.New("camera not ready before timeout")

	// ErrInvalidRequest is returned for a request with a non-positive exposure time
	ErrInvalidRequest = errors.New("invalid exposure request")

	// ErrBusy is returned when an exposure is already in progress
	ErrBusy = errors.New("exposure in progress")
)

// Kind classifies an error for metrics and logs
func Kind(err error) string {
	var unknown filterwheel.ErrUnknownFilter
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrExposureTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, rig.ErrDeviceCommunication):
		return "device"
	case errors.Is(err, imgrec.ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, astrometry.ErrBadGeometry),
		errors.Is(err, profile.ErrValidationRejected),
		errors.Is(err, profile.ErrUnknownPreset),
		errors.As(err, &unknown):
		return "validation"
	}
	return "internal"
}

// StatusCode maps an error to the HTTP status reported for it
func StatusCode(err error) int {
	switch Kind(err) {
	case "busy":
		return http.StatusLocked
	case "timeout":
		return http.StatusGatewayTimeout
	case "cancelled":
		return http.StatusServiceUnavailable
	case "device":
		return http.StatusBadGateway
	case "validation":
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
