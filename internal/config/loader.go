package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables that override config keys,
// e.g. FEATPROBE_TIMEOUT.
const EnvPrefix = "FEATPROBE"

// flagKeys maps config keys to the command-line flags that set them.
var flagKeys = map[string]string{
	"compiler_path": "compiler",
	"flavor":        "flavor",
	"target":        "target",
	"emit":          "emit",
	"cache_dir":     "cache-dir",
	"no_cache":      "no-cache",
	"timeout":       "timeout",
	"jobs":          "jobs",
	"probes":        "probes",
	"format":        "format",
	"env_keys":      "env-key",
	"verbose":       "verbose",
}

// Loader handles configuration loading from various sources
type Loader struct {
	// GlobalDir holds config.{yml,yaml,json,toml}; empty disables it
	GlobalDir string
	// WorkDir is where .env and the local config search start
	WorkDir string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	wd, _ := os.Getwd()

	return &Loader{
		GlobalDir: GlobalConfigDir(),
		WorkDir:   wd,
	}
}

// Load layers defaults, .env, global config, local config, environment and
// flags, in increasing precedence.
func (l *Loader) Load(flags *pflag.FlagSet) (*Config, error) {
	l.setupViperDefaults()
	l.loadDotEnv()
	l.setupEnv()

	if err := l.loadGlobalConfig(); err != nil {
		return nil, err
	}

	if err := l.loadLocalConfig(); err != nil {
		return nil, err
	}

	if err := l.bindCommandFlags(flags); err != nil {
		return nil, err
	}

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("flavor", DefaultFlavor)
	viper.SetDefault("timeout", DefaultTimeout)
	viper.SetDefault("format", DefaultFormat)
	viper.SetDefault("no_cache", DefaultNoCache)
	viper.SetDefault("verbose", DefaultVerbose)
	viper.SetDefault("cache_dir", "")
	viper.SetDefault("compiler_path", "")
	viper.SetDefault("target", "")
	viper.SetDefault("emit", "")
	viper.SetDefault("jobs", 0)
	viper.SetDefault("probes", []string{})
	viper.SetDefault("env_keys", []string{})
}

// loadDotEnv reads .env from the working directory into the process
// environment. Variables already set win.
func (l *Loader) loadDotEnv() {
	if l.WorkDir == "" {
		return
	}

	path := filepath.Join(l.WorkDir, ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}

	if err := godotenv.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed to read %s: %v\n", color.YellowString("Warning:"), path, err)
	}
}

// setupEnv lets FEATPROBE_<KEY> override any config key.
func (l *Loader) setupEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadGlobalConfig loads the per-user config file
func (l *Loader) loadGlobalConfig() error {
	path := FindGlobalConfig(l.GlobalDir)
	if path == "" {
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	return nil
}

// loadLocalConfig merges the nearest .featprobe.* over the global config
func (l *Loader) loadLocalConfig() error {
	if l.WorkDir == "" {
		return nil
	}

	dir, err := filepath.Abs(l.WorkDir)
	if err != nil {
		return nil
	}

	path := FindLocalConfig(dir)
	if path == "" {
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.MergeInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	return nil
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	for key, name := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}

		if err := viper.BindPFlag(key, f); err != nil {
			return err
		}
	}

	return nil
}
