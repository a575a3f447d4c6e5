package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Norgate-AV/featprobe/internal/config"
	"github.com/Norgate-AV/featprobe/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "featprobe",
	Short: "Compiler feature detection by trial compilation",
	Long: `featprobe decides which language features a compiler supports by
compiling tiny probe programs and classifying the result. Verdicts are
cached per toolchain fingerprint and emitted as build flags.`,
	RunE:              runProbes,
	SilenceUsage:      true,
	Args:              cobra.NoArgs,
	PersistentPreRunE: setupOutput,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}

		os.Exit(ExitFailure)
	}
}

func init() {
	rootCmd.Version = version.String()

	flags := rootCmd.PersistentFlags()
	flags.StringP("compiler", "c", "", "Compiler binary or path (default: $RUSTC / $CC, then the flavor's default)")
	flags.StringP("flavor", "f", config.DefaultFlavor, "Compiler flavor (rustc, cc, go)")
	flags.StringP("target", "t", "", "Target to probe (triple, or GOOS/GOARCH for go); empty probes the host")
	flags.String("emit", "", "Output kind rustc compiles probes to (obj, metadata, ...; default: obj)")
	flags.String("cache-dir", "", "Result cache directory (default: user cache dir)")
	flags.Bool("no-cache", false, "Disable the result cache")
	flags.Duration("timeout", config.DefaultTimeout, "Time limit for each trial compilation")
	flags.IntP("jobs", "j", 0, "Concurrent trial compilations (default: number of CPUs)")
	flags.StringSliceP("probes", "p", []string{}, "Probe definition files (yaml, json, toml); default: built-in set")
	flags.StringP("format", "o", config.DefaultFormat, "Output format (text, json, env, cargo)")
	flags.StringSlice("env-key", []string{}, "Extra environment variables that identify the toolchain")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(runCmd, checkCmd, listCmd, fingerprintCmd, cacheCmd, versionCmd)
}

// setupOutput disables color when asked to or when stdout is not a terminal.
func setupOutput(cmd *cobra.Command, _ []string) error {
	noColor, err := cmd.Flags().GetBool("no-color")
	if err != nil {
		return err
	}

	if noColor || os.Getenv("NO_COLOR") != "" || !isTerminal(cmd.OutOrStdout()) {
		color.NoColor = true
	}

	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func warnf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.YellowString("Warning:"), fmt.Sprintf(format, args...))
}
