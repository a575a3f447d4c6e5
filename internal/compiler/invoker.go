// Package compiler runs trial compilations of probe snippets.
//
// Every invocation gets a private scratch directory, a hard timeout and
// bounded output capture. The scratch directory is removed on every exit
// path. Failures to run the compiler meaningfully are reported as a Fault
// on the Outcome rather than as errors: a probe never aborts a run.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/Norgate-AV/featprobe/internal/probe"
	"github.com/Norgate-AV/featprobe/internal/toolchain"
)

const (
	// DefaultTimeout bounds a single trial compilation.
	DefaultTimeout = 30 * time.Second

	// maxOutput is how much of each output stream is kept.
	maxOutput = 64 << 10

	// waitDelay bounds how long Wait drains pipes after the compiler has
	// exited or been killed.
	waitDelay = 2 * time.Second

	// scratchPattern names scratch directories independently of the
	// snippet so that long or unusual names never reach the filesystem.
	scratchPattern = "featprobe-*"
)

// Fault describes why an invocation produced no usable compiler verdict.
type Fault int

const (
	FaultNone Fault = iota
	FaultTimeout
	FaultCrash
	FaultIO
	FaultCanceled
)

var faultNames = map[Fault]string{
	FaultNone:     "none",
	FaultTimeout:  "timeout",
	FaultCrash:    "crash",
	FaultIO:       "io",
	FaultCanceled: "canceled",
}

func (f Fault) String() string {
	if name, ok := faultNames[f]; ok {
		return name
	}

	return fmt.Sprintf("Fault(%d)", f)
}

// Outcome is the raw result of one trial compilation.
type Outcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
	Fault    Fault
	// Err carries detail for FaultIO and FaultCrash.
	Err     error
	Command string
}

// Output returns stderr followed by stdout; compilers disagree on where
// diagnostics go.
func (o Outcome) Output() string {
	switch {
	case o.Stdout == "":
		return o.Stderr
	case o.Stderr == "":
		return o.Stdout
	}

	return o.Stderr + "\n" + o.Stdout
}

// Invoker runs trial compilations.
type Invoker struct {
	Timeout time.Duration
	// ScratchRoot is where scratch directories are created; empty means
	// the system temporary directory.
	ScratchRoot string
	// Logger receives a line per invocation when Verbose is set.
	Logger  *log.Logger
	Verbose bool

	invocations atomic.Int64
}

// NewInvoker returns an invoker with the given per-invocation timeout.
// A non-positive timeout selects DefaultTimeout.
func NewInvoker(timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Invoker{
		Timeout: timeout,
		Logger:  log.New(io.Discard, "", 0),
	}
}

// Invocations is the number of compiler processes this invoker started
// or attempted to start.
func (inv *Invoker) Invocations() int64 {
	return inv.invocations.Load()
}

// Invoke compiles p's snippet with the compiler identified by fp. It is
// safe for concurrent use; invocations share nothing on disk.
func (inv *Invoker) Invoke(ctx context.Context, fp *toolchain.Fingerprint, p *probe.Probe) Outcome {
	start := time.Now()

	scratch, err := os.MkdirTemp(inv.ScratchRoot, scratchPattern)
	if err != nil {
		return Outcome{Fault: FaultIO, Err: fmt.Errorf("create scratch directory: %w", err), Elapsed: time.Since(start)}
	}
	defer os.RemoveAll(scratch)

	c := BuildCommand(fp, p, scratch, inv.Verbose)
	if err := os.WriteFile(c.Source, []byte(p.Source()), 0o600); err != nil {
		return Outcome{Fault: FaultIO, Err: fmt.Errorf("write snippet: %w", err), Command: c.String(), Elapsed: time.Since(start)}
	}

	inv.logf("probe %s: %s", p.Name(), c)
	if inv.Verbose {
		inv.logf("probe %s source:\n%s", p.Name(), p.Source())
	}

	out := inv.run(ctx, fp.Flavor, c)
	out.Elapsed = time.Since(start)

	inv.logf("probe %s: exit=%d fault=%s elapsed=%s", p.Name(), out.ExitCode, out.Fault, out.Elapsed.Round(time.Millisecond))
	return out
}

func (inv *Invoker) run(parent context.Context, flavor toolchain.Flavor, c *Command) Outcome {
	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	stdout := newCappedBuffer(maxOutput)
	stderr := newCappedBuffer(maxOutput)

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	inv.invocations.Add(1)
	err := cmd.Run()

	out := Outcome{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Command: c.String(),
	}

	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	} else {
		out.ExitCode = -1
	}

	switch {
	case parent.Err() != nil:
		out.Fault = FaultCanceled
		out.Err = parent.Err()
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		out.Fault = FaultTimeout
		out.Err = fmt.Errorf("timed out after %s", timeout)
	case err == nil, errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Exited():
		if IsCrash(flavor, out.ExitCode) {
			out.Fault = FaultCrash
			out.Err = errors.New(GetErrorMessage(flavor, out.ExitCode))
		}
	default:
		var exitErr *exec.ExitError
		switch {
		case !errors.As(err, &exitErr):
			// The process never started: missing binary, permissions.
			out.Fault = FaultIO
			out.Err = err
		case out.ExitCode < 0:
			// ExitCode is -1 when the process was terminated by a signal.
			out.Fault = FaultCrash
			out.Err = fmt.Errorf("compiler terminated: %s", exitErr.ProcessState)
		case IsCrash(flavor, out.ExitCode):
			out.Fault = FaultCrash
			out.Err = errors.New(GetErrorMessage(flavor, out.ExitCode))
		}
	}

	return out
}

func (inv *Invoker) logf(format string, args ...any) {
	if inv.Logger != nil {
		inv.Logger.Printf(format, args...)
	}
}
