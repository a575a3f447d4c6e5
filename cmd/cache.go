package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/featprobe/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or maintain the result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Show cache statistics",
	RunE:         runCacheStats,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

var cacheClearCmd = &cobra.Command{
	Use:          "clear",
	Short:        "Remove every cached verdict",
	RunE:         runCacheClear,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

var cachePruneCmd = &cobra.Command{
	Use:          "prune",
	Short:        "Remove verdicts for every toolchain except the current one",
	RunE:         runCachePrune,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cachePruneCmd)
}

func withCache(cmd *cobra.Command, fn func(s *session, c *cache.Cache) error) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	c, err := cache.Open(s.cfg.CacheDir)
	if err != nil {
		return err
	}
	defer c.Close()

	for _, w := range c.Warnings() {
		warnf(cmd, "%s", w)
	}

	return fn(s, c)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	return withCache(cmd, func(_ *session, c *cache.Cache) error {
		stats, err := c.Stats()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "path:         %s\n", stats.Path)
		fmt.Fprintf(out, "toolchains:   %d\n", stats.Fingerprints)
		fmt.Fprintf(out, "verdicts:     %d\n", stats.Entries)
		fmt.Fprintf(out, "size:         %d bytes\n", stats.Size)
		return nil
	})
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	return withCache(cmd, func(_ *session, c *cache.Cache) error {
		if err := c.Clear(); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
		return nil
	})
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	return withCache(cmd, func(s *session, c *cache.Cache) error {
		fp, err := s.resolver().Resolve(cmd.Context())
		if err != nil {
			return err
		}

		removed, err := c.Prune(fp.Hash)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stale toolchain(s), kept %s\n", removed, cache.ShortHash(fp.Hash))
		return nil
	})
}
