// Package filterwheel describes filter wheels and selection of a filter by name
package filterwheel

import "fmt"

// FilterWheel describes the readback of a filter wheel
type FilterWheel interface {
	// Names is the list of filter names, in slot order
	Names() ([]string, error)

	// Position is the index of the slot currently in the beam
	Position() (int, error)
}

// Positioner is a filter wheel which can be moved
type Positioner interface {
	FilterWheel

	// SetPosition moves slot idx into the beam
	SetPosition(idx int) error
}

// ErrUnknownFilter is returned by Select when the wheel has no such filter
type ErrUnknownFilter struct {
	// Name is the filter that was asked for
	Name string

	// Names are the filters on the wheel
	Names []string
}

// Error satisfies the error interface
func (e ErrUnknownFilter) Error() string {
	return fmt.Sprintf("filter %q not in wheel %v", e.Name, e.Names)
}

// Index returns the slot holding the named filter, or -1
func Index(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// Select moves the named filter into the beam and returns its slot.
func Select(p Positioner, name string) (int, error) {
	names, err := p.Names()
	if err != nil {
		return -1, err
	}
	idx := Index(names, name)
	if idx < 0 {
		return -1, ErrUnknownFilter{Name: name, Names: names}
	}
	return idx, p.SetPosition(idx)
}
