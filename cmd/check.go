package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Fail unless the required features are supported",
	Long: `Probe the compiler and exit with status 2 if any required feature is not
supported. Indeterminate verdicts count as unsupported. Without --require
every registered probe is required.`,
	RunE:         runCheck,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func init() {
	checkCmd.Flags().StringSliceP("require", "r", []string{}, "Features that must be supported")
}

func runCheck(cmd *cobra.Command, args []string) error {
	required, err := cmd.Flags().GetStringSlice("require")
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	reg, err := s.registry()
	if err != nil {
		return err
	}

	if len(required) == 0 {
		required = reg.Names()
	}

	for _, name := range required {
		if _, ok := reg.Lookup(name); !ok {
			return fmt.Errorf("unknown probe %q", name)
		}
	}

	report, err := s.probe(cmd.Context(), reg)
	if err != nil {
		return err
	}

	for _, w := range report.Warnings {
		warnf(cmd, "%s", w)
	}

	out := cmd.OutOrStdout()
	var missing []string
	for _, name := range required {
		res, _ := report.Lookup(name)
		if res.Supported() {
			fmt.Fprintf(out, "%s %s\n", color.GreenString("ok     "), name)
			continue
		}

		missing = append(missing, name)
		fmt.Fprintf(out, "%s %s (%s: %s)\n", color.RedString("missing"), name, res.Status, res.Reason)
	}

	if len(missing) > 0 {
		return &ExitError{
			Code: ExitMissing,
			Err:  fmt.Errorf("required features not supported: %s", strings.Join(missing, ", ")),
		}
	}

	return nil
}
