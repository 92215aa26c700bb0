/*Package imgrec records camera frames to disk as FITS files with astrometric
headers.

A frame is persisted in two phases.  WriteRaw writes the pixel data and the
instrument header, marked AUGMENTD = F.  Augment re-opens that file, derives
the observation time and WCS fields from the header alone, and rewrites it
marked AUGMENTD = T.  A file left in the first phase can be found with Inspect.
*/
package imgrec

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ciboulette/astrolab/astrometry"
)

// ErrPersistence is matched by every error produced while writing a frame
var ErrPersistence = errors.New("frame persistence error")

// Phase is how far through persistence a file is
type Phase int

const (
	// PhaseUnknown is a file without the AUGMENTD marker
	PhaseUnknown Phase = iota

	// PhaseRaw is a file with pixel data and the instrument header
	PhaseRaw

	// PhaseAugmented is a file with time and WCS fields merged in
	PhaseAugmented
)

func (p Phase) String() string {
	switch p {
	case PhaseRaw:
		return "raw"
	case PhaseAugmented:
		return "augmented"
	default:
		return "unknown"
	}
}

// PersistenceError records which phase of a write failed
type PersistenceError struct {
	Phase Phase
	Path  string
	Err   error
}

// Error satisfies the error interface
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s write %s: %v", e.Phase, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is makes every PersistenceError match ErrPersistence
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Handle refers to a frame on disk
type Handle struct {
	Path    string
	FrameID int
	Phase   Phase
}

// Artifact is a fully persisted frame
type Artifact struct {
	Handle

	// WCS is the block merged into the header
	WCS astrometry.WCS

	// JD and MJD are the exposure start
	JD, MJD float64

	// LST is the local sidereal time at exposure start, in hours
	LST float64
}

// Path returns {dataset}/{observer}_{object}_{frameID}.fits
func Path(dataset, observer, object string, frameID int) string {
	return filepath.Join(dataset, fmt.Sprintf("%s_%s_%d.fits", observer, object, frameID))
}

// Recorder writes frames through both phases and remembers the last one.
// It is safe for concurrent use, though frames with the same path must not
// be written concurrently.
type Recorder struct {
	mu   sync.Mutex
	last Frame
	art  Artifact
}

// Record writes f with metadata m to path, then augments it
func (r *Recorder) Record(path string, f Frame, m Metadata) (Artifact, error) {
	h, err := WriteRaw(path, f, m)
	if err != nil {
		return Artifact{}, err
	}
	a, err := Augment(h)
	if err != nil {
		return Artifact{}, err
	}
	r.mu.Lock()
	r.last = f
	r.art = a
	r.mu.Unlock()
	return a, nil
}

// Last returns the last recorded frame and its artifact.  ok is false if
// nothing has been recorded.
func (r *Recorder) Last() (f Frame, a Artifact, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.art, r.art.Path != ""
}
