package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Norgate-AV/featprobe/internal/emit"
	"github.com/Norgate-AV/featprobe/internal/toolchain"
)

// AppName names the configuration and cache directories.
const AppName = "featprobe"

// Default configuration values
const (
	DefaultFlavor  = "rustc"
	DefaultTimeout = 30 * time.Second
	DefaultFormat  = string(emit.FormatText)
	DefaultNoCache = false
	DefaultVerbose = false
)

// Holds the configuration options for featprobe
type Config struct {
	// Compiler binary or path; empty defers to the flavor's environment
	// variable and then its default binary
	CompilerPath string

	// Flavor of compiler being probed
	Flavor toolchain.Flavor

	// Explicit compilation target; empty probes the host
	Target string

	// Output kind requested from rustc; empty selects the flavor default
	Emit string

	// Directory holding the result cache
	CacheDir string

	// Skip cache lookups and stores
	NoCache bool

	// Per-invocation time limit
	Timeout time.Duration

	// Concurrent trial compilations; zero means GOMAXPROCS
	Jobs int

	// Probe definition files; empty selects the embedded defaults
	ProbeFiles []string

	// Output format
	Format emit.Format

	// Extra environment variables folded into the toolchain fingerprint
	EnvKeys []string

	// Enable verbose output
	Verbose bool
}

// DefaultCacheDir returns the per-user cache directory for featprobe.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, AppName)
	}

	return filepath.Join(os.TempDir(), AppName+"-cache")
}

func Load() (*Config, error) {
	cfg := &Config{
		CompilerPath: strings.TrimSpace(viper.GetString("compiler_path")),
		Target:       strings.TrimSpace(viper.GetString("target")),
		Emit:         strings.TrimSpace(viper.GetString("emit")),
		CacheDir:     viper.GetString("cache_dir"),
		NoCache:      viper.GetBool("no_cache"),
		Timeout:      viper.GetDuration("timeout"),
		Jobs:         viper.GetInt("jobs"),
		ProbeFiles:   viper.GetStringSlice("probes"),
		EnvKeys:      viper.GetStringSlice("env_keys"),
		Verbose:      viper.GetBool("verbose"),
	}

	flavor, err := toolchain.ParseFlavor(orDefault(viper.GetString("flavor"), DefaultFlavor))
	if err != nil {
		return nil, err
	}
	cfg.Flavor = flavor

	format, err := emit.ParseFormat(orDefault(viper.GetString("format"), DefaultFormat))
	if err != nil {
		return nil, err
	}
	cfg.Format = format

	// Apply defaults if not set
	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir()
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.Jobs == 0 {
		cfg.Jobs = runtime.GOMAXPROCS(0)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}

	return v
}

func (c *Config) Validate() error {
	// Bare names are looked up on PATH; only paths are made absolute
	if strings.ContainsRune(c.CompilerPath, filepath.Separator) || strings.ContainsRune(c.CompilerPath, '/') {
		abs, err := filepath.Abs(c.CompilerPath)
		if err != nil {
			return fmt.Errorf("invalid compiler path: %v", err)
		}

		c.CompilerPath = abs
	}

	if c.Target != "" && !c.Flavor.ValidTarget(c.Target) {
		return fmt.Errorf("invalid target for %s: %s", c.Flavor, c.Target)
	}

	if !c.Flavor.ValidEmit(c.Emit) {
		return fmt.Errorf("invalid emit kind for %s: %s", c.Flavor, c.Emit)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}

	if c.Jobs < 0 {
		return fmt.Errorf("invalid job count: %d", c.Jobs)
	}

	abs, err := filepath.Abs(c.CacheDir)
	if err != nil {
		return fmt.Errorf("invalid cache directory: %v", err)
	}
	c.CacheDir = abs

	// Resolve probe files
	files := c.ProbeFiles[:0]
	for _, file := range c.ProbeFiles {
		if strings.TrimSpace(file) == "" {
			continue
		}

		abs, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("invalid probe file path: %v", err)
		}

		files = append(files, abs)
	}
	c.ProbeFiles = files

	keys := c.EnvKeys[:0]
	for _, key := range c.EnvKeys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}

		if strings.ContainsAny(key, "= \t") {
			return fmt.Errorf("invalid environment key: %q", key)
		}

		keys = append(keys, key)
	}
	c.EnvKeys = keys

	return nil
}
