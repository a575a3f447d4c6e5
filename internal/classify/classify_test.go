package classify

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/featprobe/internal/compiler"
	"github.com/Norgate-AV/featprobe/internal/probe"
	"github.com/Norgate-AV/featprobe/internal/toolchain"
)

func successProbe(t *testing.T) *probe.Probe {
	t.Helper()

	p, err := probe.New(probe.Definition{Name: "i128", Kind: "type", Snippet: "i128"}, toolchain.Rustc)
	require.NoError(t, err)
	return p
}

func diagnosticProbe(t *testing.T) *probe.Probe {
	t.Helper()

	p, err := probe.New(probe.Definition{
		Name:    "never_type_gated",
		Snippet: "fn main() { let _x: ! = panic!(); }",
		Policy:  "diagnostic",
		Expect:  `E0658`,
		Reject:  `E0412|expected type, found`,
	}, toolchain.Rustc)
	require.NoError(t, err)
	return p
}

func TestClassify_SuccessPolicy(t *testing.T) {
	p := successProbe(t)

	tests := []struct {
		name       string
		out        compiler.Outcome
		wantStatus probe.Status
		wantReason probe.Reason
	}{
		{
			name:       "clean compile",
			out:        compiler.Outcome{ExitCode: 0},
			wantStatus: probe.StatusSupported,
			wantReason: probe.ReasonCompiled,
		},
		{
			name:       "compile with warnings",
			out:        compiler.Outcome{ExitCode: 0, Stderr: "warning: unused variable: `x`"},
			wantStatus: probe.StatusSupported,
			wantReason: probe.ReasonCompiled,
		},
		{
			name:       "rejected with diagnostic",
			out:        compiler.Outcome{ExitCode: 1, Stderr: "error[E0412]: cannot find type `i128` in this scope"},
			wantStatus: probe.StatusUnsupported,
			wantReason: probe.ReasonRejected,
		},
		{
			name:       "non-zero exit without diagnostic",
			out:        compiler.Outcome{ExitCode: 1, Stderr: "something unrelated went wrong"},
			wantStatus: probe.StatusIndeterminate,
			wantReason: probe.ReasonAmbiguous,
		},
		{
			name:       "exit zero but error reported",
			out:        compiler.Outcome{ExitCode: 0, Stderr: "error: linking with `cc` failed"},
			wantStatus: probe.StatusIndeterminate,
			wantReason: probe.ReasonAmbiguous,
		},
		{
			name:       "internal compiler error text",
			out:        compiler.Outcome{ExitCode: 1, Stderr: "error: internal compiler error: unexpected panic"},
			wantStatus: probe.StatusIndeterminate,
			wantReason: probe.ReasonCrashed,
		},
		{
			name:       "timeout",
			out:        compiler.Outcome{ExitCode: -1, Fault: compiler.FaultTimeout, Err: errors.New("timed out after 1s")},
			wantStatus: probe.StatusIndeterminate,
			wantReason: probe.ReasonTimedOut,
		},
		{
			name:       "crash",
			out:        compiler.Outcome{ExitCode: -1, Fault: compiler.FaultCrash},
			wantStatus: probe.StatusIndeterminate,
			wantReason: probe.ReasonCrashed,
		},
		{
			name:       "io error",
			out:        compiler.Outcome{ExitCode: -1, Fault: compiler.FaultIO, Err: errors.New("permission denied")},
			wantStatus: probe.StatusIndeterminate,
			wantReason: probe.ReasonIOError,
		},
		{
			name:       "canceled",
			out:        compiler.Outcome{ExitCode: -1, Fault: compiler.FaultCanceled},
			wantStatus: probe.StatusIndeterminate,
			wantReason: probe.ReasonCanceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify(toolchain.Rustc, p, tt.out)

			assert.Equal(t, "i128", res.Probe)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantReason, res.Reason)
			assert.Equal(t, tt.out.ExitCode, res.Evidence.ExitCode)
			if tt.wantStatus == probe.StatusIndeterminate {
				assert.False(t, res.Supported(), "indeterminate must never read as supported")
			}
		})
	}
}

func TestClassify_DiagnosticPolicy(t *testing.T) {
	p := diagnosticProbe(t)

	tests := []struct {
		name       string
		out        compiler.Outcome
		wantStatus probe.Status
		wantReason probe.Reason
	}{
		{
			name:       "recognized but gated",
			out:        compiler.Outcome{ExitCode: 1, Stderr: "error[E0658]: the `!` type is experimental"},
			wantStatus: probe.StatusSupported,
			wantReason: probe.ReasonMatched,
		},
		{
			name:       "entirely unrecognized",
			out:        compiler.Outcome{ExitCode: 1, Stderr: "error: expected type, found `!`"},
			wantStatus: probe.StatusUnsupported,
			wantReason: probe.ReasonUnrecognized,
		},
		{
			name:       "accepted outright",
			out:        compiler.Outcome{ExitCode: 0},
			wantStatus: probe.StatusUnsupported,
			wantReason: probe.ReasonAccepted,
		},
		{
			name:       "plausible but unmatched diagnostic",
			out:        compiler.Outcome{ExitCode: 1, Stderr: "error[E0277]: the trait bound is not satisfied"},
			wantStatus: probe.StatusIndeterminate,
			wantReason: probe.ReasonAmbiguous,
		},
		{
			name:       "timeout beats a matching pattern",
			out:        compiler.Outcome{ExitCode: -1, Stderr: "error[E0658]", Fault: compiler.FaultTimeout},
			wantStatus: probe.StatusIndeterminate,
			wantReason: probe.ReasonTimedOut,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify(toolchain.Rustc, p, tt.out)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantReason, res.Reason)
		})
	}
}

func TestClassify_Evidence(t *testing.T) {
	p := successProbe(t)

	long := "error: " + strings.Repeat("x", 3*DiagnosticLimit)
	res := Classify(toolchain.Rustc, p, compiler.Outcome{ExitCode: 1, Stderr: long, Elapsed: 42 * time.Millisecond})
	assert.Len(t, res.Evidence.Diagnostic, DiagnosticLimit)
	assert.Equal(t, 42*time.Millisecond, res.Evidence.Elapsed)

	res = Classify(toolchain.Rustc, p, compiler.Outcome{ExitCode: -1, Fault: compiler.FaultTimeout, Err: errors.New("timed out after 2s")})
	assert.Equal(t, "timed out after 2s", res.Evidence.Diagnostic, "fault detail stands in for empty output")
}

func TestClassify_IsDeterministic(t *testing.T) {
	p := diagnosticProbe(t)
	out := compiler.Outcome{ExitCode: 1, Stderr: "error[E0658]: experimental"}

	first := Classify(toolchain.Rustc, p, out)
	for range 50 {
		assert.Equal(t, first, Classify(toolchain.Rustc, p, out))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "a", Truncate("aé", 2), "must not split a multi-byte rune")
	assert.Equal(t, "", Truncate("é", 1))
}
