package probe

import (
	"fmt"
	"time"
)

// Status is the verdict of a probe.
type Status int

const (
	// StatusIndeterminate means the compiler could not be invoked
	// meaningfully or its output could not be classified.
	StatusIndeterminate Status = iota
	StatusSupported
	StatusUnsupported
)

var statusNames = map[Status]string{
	StatusIndeterminate: "indeterminate",
	StatusSupported:     "supported",
	StatusUnsupported:   "unsupported",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("Status(%d)", s)
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	for status, name := range statusNames {
		if name == s {
			return status, nil
		}
	}

	return StatusIndeterminate, fmt.Errorf("unknown status %q", s)
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}

	*s = parsed
	return nil
}

// Reason is a short machine-readable code explaining a Status.
type Reason string

const (
	ReasonCompiled     Reason = "compiled"
	ReasonRejected     Reason = "rejected"
	ReasonMatched      Reason = "matched"
	ReasonUnrecognized Reason = "unrecognized"
	ReasonAccepted     Reason = "accepted"
	ReasonTimedOut     Reason = "timed_out"
	ReasonCrashed      Reason = "crashed"
	ReasonIOError      Reason = "io_error"
	ReasonCanceled     Reason = "canceled"
	ReasonAmbiguous    Reason = "ambiguous"
)

// Evidence is what the verdict was based on.
type Evidence struct {
	ExitCode int
	// Diagnostic is the start of the compiler's diagnostic output.
	Diagnostic string
	Elapsed    time.Duration
}

// Result is the verdict for one probe under one fingerprint.
type Result struct {
	Probe    string
	Status   Status
	Reason   Reason
	Evidence Evidence
	// Cached is set when the result was read from the result cache.
	Cached bool
}

// Supported reports whether the feature may be used. Indeterminate
// results are not supported.
func (r Result) Supported() bool {
	return r.Status == StatusSupported
}
