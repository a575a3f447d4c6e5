package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/featprobe/internal/emit"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Probe the compiler and emit feature flags",
	Long: `Resolve the toolchain fingerprint, answer every probe from the cache or
by trial compilation, and write the resulting flags in the chosen format.`,
	RunE:         runProbes,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func runProbes(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	reg, err := s.registry()
	if err != nil {
		return err
	}

	report, err := s.probe(cmd.Context(), reg)
	if err != nil {
		return err
	}

	return emit.Write(cmd.OutOrStdout(), emit.FromReport(report), s.cfg.Format)
}
