package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/featprobe/internal/emit"
)

var fingerprintCmd = &cobra.Command{
	Use:          "fingerprint",
	Short:        "Show the toolchain fingerprint",
	Long:         `Resolve the compiler and print the values that identify it in the cache.`,
	RunE:         runFingerprint,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	fp, err := s.resolver().Resolve(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if s.cfg.Format == emit.FormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"flavor":   fp.Flavor.String(),
			"compiler": fp.Compiler,
			"version":  fp.Version,
			"host":     fp.Host,
			"target":   fp.EffectiveTarget(),
			"env":      fp.Env,
			"hash":     fp.Hash,
		})
	}

	fmt.Fprintf(out, "flavor:   %s\n", fp.Flavor)
	fmt.Fprintf(out, "compiler: %s\n", fp.Compiler)
	fmt.Fprintf(out, "version:  %s\n", fp.Version)
	fmt.Fprintf(out, "host:     %s\n", fp.Host)
	fmt.Fprintf(out, "target:   %s\n", fp.EffectiveTarget())
	if len(fp.Env) > 0 {
		fmt.Fprintf(out, "env:      %s\n", strings.Join(fp.Env, " "))
	}
	fmt.Fprintf(out, "hash:     %s\n", fp.Hash)

	return nil
}
