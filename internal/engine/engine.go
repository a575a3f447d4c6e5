// Package engine runs every probe in a registry against one toolchain.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Norgate-AV/featprobe/internal/cache"
	"github.com/Norgate-AV/featprobe/internal/classify"
	"github.com/Norgate-AV/featprobe/internal/compiler"
	"github.com/Norgate-AV/featprobe/internal/probe"
	"github.com/Norgate-AV/featprobe/internal/registry"
	"github.com/Norgate-AV/featprobe/internal/toolchain"
)

// Resolver produces the fingerprint of the toolchain under test.
type Resolver interface {
	Resolve(ctx context.Context) (*toolchain.Fingerprint, error)
}

// Invoker performs one trial compilation.
type Invoker interface {
	Invoke(ctx context.Context, fp *toolchain.Fingerprint, p *probe.Probe) compiler.Outcome
}

// Options configures a Run.
type Options struct {
	Registry *registry.Registry
	Resolver Resolver
	Invoker  Invoker

	// Cache may be nil, in which case every probe is compiled
	Cache *cache.Cache
	// NoCache skips lookups and stores even when Cache is set
	NoCache bool

	// Jobs bounds concurrent invocations; non-positive means GOMAXPROCS
	Jobs   int
	Logger *log.Logger
}

// Warning is a non-fatal condition met during a run.
type Warning struct {
	// Probe is empty for warnings that concern the run as a whole
	Probe   string
	Message string
}

func (w Warning) String() string {
	if w.Probe == "" {
		return w.Message
	}

	return w.Probe + ": " + w.Message
}

// Stats counts the work a run did.
type Stats struct {
	Probes      int
	CacheHits   int
	Invocations int
	Elapsed     time.Duration
}

// Report is the outcome of a run. Results are in registry order.
type Report struct {
	Fingerprint *toolchain.Fingerprint
	Results     []probe.Result
	Warnings    []Warning
	Stats       Stats
}

// Lookup returns the result for the named probe.
func (r *Report) Lookup(name string) (probe.Result, bool) {
	for _, res := range r.Results {
		if res.Probe == name {
			return res, true
		}
	}

	return probe.Result{}, false
}

type runner struct {
	opts        Options
	fp          *toolchain.Fingerprint
	logger      *log.Logger
	hits        atomic.Int64
	invocations atomic.Int64
}

// Run resolves the toolchain fingerprint, then answers every probe,
// from the cache where possible and by trial compilation otherwise.
//
// A fingerprint failure aborts the run before any probe is attempted.
// Individual probe failures never abort it; they surface as Indeterminate
// results with a warning. Cancelling ctx aborts the run with ctx.Err().
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Registry == nil {
		return nil, errors.New("no probe registry")
	}

	if opts.Resolver == nil || opts.Invoker == nil {
		return nil, errors.New("resolver and invoker are required")
	}

	start := time.Now()

	r := &runner{opts: opts, logger: opts.Logger}
	if r.logger == nil {
		r.logger = log.New(io.Discard, "", 0)
	}

	fp, err := opts.Resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	if fp.Flavor != opts.Registry.Flavor() {
		return nil, fmt.Errorf("registry is for %s but the toolchain is %s", opts.Registry.Flavor(), fp.Flavor)
	}

	r.fp = fp
	r.logger.Printf("toolchain %s %s (%s), fingerprint %s", fp.Compiler, fp.Version, fp.EffectiveTarget(), cache.ShortHash(fp.Hash))

	probes := opts.Registry.Probes()
	results := make([]probe.Result, len(probes))
	warnings := make([][]Warning, len(probes))

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, p := range probes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			results[i], warnings[i] = r.answer(gctx, p)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// A cancelled parent surfaces as Canceled outcomes rather than a
	// goroutine error, so check it explicitly
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		Fingerprint: fp,
		Results:     results,
		Stats: Stats{
			Probes:      len(probes),
			CacheHits:   int(r.hits.Load()),
			Invocations: int(r.invocations.Load()),
			Elapsed:     time.Since(start),
		},
	}

	if r.cacheEnabled() {
		for _, msg := range opts.Cache.Warnings() {
			report.Warnings = append(report.Warnings, Warning{Message: msg})
		}
	}

	for _, ws := range warnings {
		report.Warnings = append(report.Warnings, ws...)
	}

	return report, nil
}

func (r *runner) cacheEnabled() bool {
	return r.opts.Cache != nil && !r.opts.NoCache
}

// answer produces the result for a single probe.
func (r *runner) answer(ctx context.Context, p *probe.Probe) (probe.Result, []Warning) {
	var warnings []Warning

	if r.cacheEnabled() {
		res, ok, err := r.opts.Cache.Get(r.fp, p)
		if err != nil {
			warnings = append(warnings, Warning{Probe: p.Name(), Message: err.Error()})
		}

		if ok {
			r.hits.Add(1)
			r.logger.Printf("probe %s: %s (cached)", p.Name(), res.Status)

			if res.Status == probe.StatusIndeterminate {
				warnings = append(warnings, Warning{Probe: p.Name(), Message: indeterminateMessage(res)})
			}

			return res, warnings
		}
	}

	r.invocations.Add(1)
	out := r.opts.Invoker.Invoke(ctx, r.fp, p)
	res := classify.Classify(r.fp.Flavor, p, out)

	r.logger.Printf("probe %s: %s (%s, exit %d, %s)", p.Name(), res.Status, res.Reason, out.ExitCode, out.Elapsed.Round(time.Millisecond))

	if res.Status == probe.StatusIndeterminate {
		warnings = append(warnings, Warning{Probe: p.Name(), Message: indeterminateMessage(res)})
	}

	if r.cacheEnabled() {
		if err := r.opts.Cache.Put(r.fp, p, res); err != nil {
			warnings = append(warnings, Warning{Probe: p.Name(), Message: err.Error()})
		}
	}

	return res, warnings
}

func indeterminateMessage(res probe.Result) string {
	msg := "indeterminate (" + string(res.Reason) + ")"

	line, _, _ := strings.Cut(strings.TrimSpace(res.Evidence.Diagnostic), "\n")
	if line != "" {
		msg += ": " + line
	}

	return msg
}
