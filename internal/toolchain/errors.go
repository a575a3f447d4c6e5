package toolchain

import (
	"errors"
	"fmt"
)

// ErrUnavailable is matched by every UnavailableError via errors.Is.
var ErrUnavailable = errors.New("toolchain unavailable")

// UnavailableError reports that the compiler could not be located or invoked.
// It is fatal to a probing run: no probe can proceed without a fingerprint.
type UnavailableError struct {
	Compiler string
	// Command is the command line that failed, empty when lookup failed.
	Command string
	Err     error
}

func (e *UnavailableError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("toolchain unavailable: %s: %v", e.Command, e.Err)
	}

	return fmt.Sprintf("toolchain unavailable: %s: %v", e.Compiler, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}
