package cmd

import "fmt"

// Exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	// ExitMissing means a required feature is not supported
	ExitMissing = 2
)

var exitMessages = map[int]string{
	ExitOK:      "Success",
	ExitFailure: "Error",
	ExitMissing: "Required feature missing",
}

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return GetExitMessage(e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// GetExitMessage returns a description of an exit code.
func GetExitMessage(code int) string {
	if msg, ok := exitMessages[code]; ok {
		return msg
	}

	return fmt.Sprintf("Unknown exit code: %d", code)
}
