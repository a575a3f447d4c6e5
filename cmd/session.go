package cmd

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/featprobe/internal/cache"
	"github.com/Norgate-AV/featprobe/internal/compiler"
	"github.com/Norgate-AV/featprobe/internal/config"
	"github.com/Norgate-AV/featprobe/internal/engine"
	"github.com/Norgate-AV/featprobe/internal/registry"
	"github.com/Norgate-AV/featprobe/internal/toolchain"
)

// session is the state shared by commands that talk to a compiler.
type session struct {
	cfg    *config.Config
	logger *log.Logger
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.NewLoader().Load(cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger := log.New(io.Discard, "", 0)
	if cfg.Verbose {
		logger = log.New(cmd.ErrOrStderr(), "featprobe: ", 0)
	}

	return &session{cfg: cfg, logger: logger}, nil
}

func (s *session) registry() (*registry.Registry, error) {
	if len(s.cfg.ProbeFiles) == 0 {
		return registry.Default(s.cfg.Flavor)
	}

	return registry.Load(s.cfg.Flavor, s.cfg.ProbeFiles...)
}

func (s *session) resolver() *toolchain.Resolver {
	r := toolchain.NewResolver(s.cfg.Flavor, s.cfg.CompilerPath, s.cfg.Target, s.cfg.EnvKeys)
	r.Emit = s.cfg.Emit

	return r
}

func (s *session) invoker() *compiler.Invoker {
	inv := compiler.NewInvoker(s.cfg.Timeout)
	inv.Logger = s.logger
	inv.Verbose = s.cfg.Verbose
	return inv
}

// openCache never fails the run: a cache that cannot be opened turns into
// a warning and the run proceeds uncached.
func (s *session) openCache() (*cache.Cache, []engine.Warning) {
	if s.cfg.NoCache {
		return nil, nil
	}

	c, err := cache.Open(s.cfg.CacheDir)
	if err == nil {
		return c, nil
	}

	msg := "cache unavailable, continuing without it: " + err.Error()
	if errors.Is(err, cache.ErrLocked) {
		msg = "cache is in use by another featprobe run, continuing without it"
	}

	return nil, []engine.Warning{{Message: msg}}
}

// probe runs every registered probe against the configured toolchain.
func (s *session) probe(ctx context.Context, reg *registry.Registry) (*engine.Report, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, warnings := s.openCache()
	if c != nil {
		defer c.Close()
	}

	inv := s.invoker()
	report, err := engine.Run(ctx, engine.Options{
		Registry: reg,
		Resolver: s.resolver(),
		Invoker:  inv,
		Cache:    c,
		NoCache:  s.cfg.NoCache,
		Jobs:     s.cfg.Jobs,
		Logger:   s.logger,
	})
	if err != nil {
		return nil, err
	}

	report.Warnings = append(warnings, report.Warnings...)
	s.logger.Printf("%d probes, %d cached, %d compiler processes in %s",
		report.Stats.Probes, report.Stats.CacheHits, inv.Invocations(), report.Stats.Elapsed)

	return report, nil
}
