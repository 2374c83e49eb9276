package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested overlay does not exist.
var ErrNotFound = errors.New("overlay not found")

// ErrSessionActive is returned when a new alignment session is requested
// while another one is still running. Only one session may be active.
var ErrSessionActive = errors.New("an alignment session is already active")

// ErrNoSession is returned when a session operation arrives while the
// aligner is idle.
var ErrNoSession = errors.New("no active alignment session")

// DegenerateGeometryError reports zero-area or collinear corner input.
// Recovered locally: the offending operation is refused and prior state
// kept intact.
type DegenerateGeometryError struct {
	Reason string
}

func (e *DegenerateGeometryError) Error() string {
	return "degenerate geometry: " + e.Reason
}

// InvalidCoordinateError reports a non-finite or out-of-domain coordinate
// reaching the projection without normalization.
type InvalidCoordinateError struct {
	Lat float64
	Lon float64
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("invalid coordinate: lat=%v lon=%v", e.Lat, e.Lon)
}

// InvalidSessionStateError reports a drag event that does not match the
// gesture state, e.g. a move with no preceding start. Callers treat it as
// a no-op and log it; it is never fatal.
type InvalidSessionStateError struct {
	Op string
}

func (e *InvalidSessionStateError) Error() string {
	return "invalid drag session state: " + e.Op
}

// IsDegenerate reports whether err is a DegenerateGeometryError.
func IsDegenerate(err error) bool {
	var de *DegenerateGeometryError
	return errors.As(err, &de)
}
