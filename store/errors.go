package store

import (
	"errors"
	"fmt"
)

// ErrInvalidStation is returned when a readings fetch names no station
var ErrInvalidStation = errors.New("station id is required")

// CoordinateParseError reports a station record whose lat or long could not
// be normalized. It only excludes the record from the map.
type CoordinateParseError struct {
	Label string
	Field string
	Err   error
}

func (e *CoordinateParseError) Error() string {
	return fmt.Sprintf("station %q: invalid %s: %v", e.Label, e.Field, e.Err)
}

func (e *CoordinateParseError) Unwrap() error {
	return e.Err
}
