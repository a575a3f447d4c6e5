package registry

import (
	"errors"
	"fmt"
)

// ErrInvalid is matched by every *Error via errors.Is.
var ErrInvalid = errors.New("invalid probe registry")

// Error identifies the probe definition that made a registry unusable.
type Error struct {
	// Source is the definition file, or "defaults" for the embedded set.
	Source string
	// Index is the zero-based entry position, -1 when the whole source is bad.
	Index int
	// Entry is the probe name when one was given.
	Entry string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("probe registry %s: %v", e.Source, e.Err)
	case e.Entry != "":
		return fmt.Sprintf("probe registry %s: entry %d (%q): %v", e.Source, e.Index, e.Entry, e.Err)
	default:
		return fmt.Sprintf("probe registry %s: entry %d: %v", e.Source, e.Index, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}
