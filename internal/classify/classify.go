// Package classify turns a trial compilation outcome into a verdict.
//
// Classification is bounded pattern matching over the compiler output:
// the flavor's error-diagnostic and internal-error patterns, plus the
// probe's own expect and reject patterns. Nothing else is parsed. Output
// that does not fit a rule resolves to Indeterminate.
//
// success policy:
//
//	fault                             Indeterminate  (fault reason)
//	internal compiler error           Indeterminate  crashed
//	exit 0, no error diagnostic       Supported      compiled
//	exit 0, error diagnostic          Indeterminate  ambiguous
//	exit != 0, error diagnostic       Unsupported    rejected
//	exit != 0, no error diagnostic    Indeterminate  ambiguous
//
// diagnostic policy:
//
//	fault                             Indeterminate  (fault reason)
//	internal compiler error           Indeterminate  crashed
//	exit 0                            Unsupported    accepted
//	exit != 0, expect matches         Supported      matched
//	exit != 0, reject matches         Unsupported    unrecognized
//	exit != 0, neither                Indeterminate  ambiguous
package classify

import (
	"unicode/utf8"

	"github.com/Norgate-AV/featprobe/internal/compiler"
	"github.com/Norgate-AV/featprobe/internal/probe"
	"github.com/Norgate-AV/featprobe/internal/toolchain"
)

// DiagnosticLimit is how much compiler output a Result keeps as evidence.
const DiagnosticLimit = 2048

var faultReasons = map[compiler.Fault]probe.Reason{
	compiler.FaultTimeout:  probe.ReasonTimedOut,
	compiler.FaultCrash:    probe.ReasonCrashed,
	compiler.FaultIO:       probe.ReasonIOError,
	compiler.FaultCanceled: probe.ReasonCanceled,
}

// Classify maps out to a Result according to p's policy.
func Classify(flavor toolchain.Flavor, p *probe.Probe, out compiler.Outcome) probe.Result {
	output := out.Output()

	res := probe.Result{
		Probe:  p.Name(),
		Status: probe.StatusIndeterminate,
		Evidence: probe.Evidence{
			ExitCode:   out.ExitCode,
			Diagnostic: Truncate(output, DiagnosticLimit),
			Elapsed:    out.Elapsed,
		},
	}

	if out.Fault != compiler.FaultNone {
		res.Reason = faultReasons[out.Fault]
		if res.Reason == "" {
			res.Reason = probe.ReasonAmbiguous
		}

		if res.Evidence.Diagnostic == "" && out.Err != nil {
			res.Evidence.Diagnostic = Truncate(out.Err.Error(), DiagnosticLimit)
		}

		return res
	}

	if flavor.IsInternalError(output) {
		res.Reason = probe.ReasonCrashed
		return res
	}

	switch p.Policy() {
	case probe.PolicySuccess:
		res.Status, res.Reason = bySuccess(flavor, out.ExitCode, output)
	case probe.PolicyDiagnostic:
		res.Status, res.Reason = byDiagnostic(p, out.ExitCode, output)
	default:
		res.Reason = probe.ReasonAmbiguous
	}

	return res
}

func bySuccess(flavor toolchain.Flavor, exitCode int, output string) (probe.Status, probe.Reason) {
	hasError := flavor.HasErrorDiagnostic(output)

	switch {
	case compiler.IsSuccess(exitCode) && !hasError:
		return probe.StatusSupported, probe.ReasonCompiled
	case !compiler.IsSuccess(exitCode) && hasError:
		return probe.StatusUnsupported, probe.ReasonRejected
	}

	return probe.StatusIndeterminate, probe.ReasonAmbiguous
}

func byDiagnostic(p *probe.Probe, exitCode int, output string) (probe.Status, probe.Reason) {
	if compiler.IsSuccess(exitCode) {
		return probe.StatusUnsupported, probe.ReasonAccepted
	}

	if p.Expect() != nil && p.Expect().MatchString(output) {
		return probe.StatusSupported, probe.ReasonMatched
	}

	if p.Reject() != nil && p.Reject().MatchString(output) {
		return probe.StatusUnsupported, probe.ReasonUnrecognized
	}

	return probe.StatusIndeterminate, probe.ReasonAmbiguous
}

// Truncate cuts s to at most limit bytes without splitting a UTF-8 sequence.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}

	return s[:limit]
}
