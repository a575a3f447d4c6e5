package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/featprobe/internal/cache"
)

var listCmd = &cobra.Command{
	Use:          "list",
	Short:        "List registered probes",
	RunE:         runList,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	reg, err := s.registry()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tPOLICY\tHASH\tSOURCE")
	for _, p := range reg.Probes() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Name(), p.Kind(), p.Policy(), cache.ShortHash(p.ContentHash()), reg.Source(p.Name()))
	}

	return tw.Flush()
}
