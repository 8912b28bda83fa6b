package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the article cache and database",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache and database statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		stats, err := rt.db.GetStats()
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Database:        %s\n", rt.config.Data.DBPath)
		fmt.Fprintf(out, "Key policy:      %s\n", keyPolicyName(rt.config.Cache.KeyPolicy))
		fmt.Fprintf(out, "Cached articles: %d\n", rt.cache.Len())
		fmt.Fprintf(out, "Stored keys:     %d\n", stats.KeyCount)
		fmt.Fprintf(out, "Stored data:     %s\n", formatSize(stats.ValueBytes))
		fmt.Fprintf(out, "Database size:   %s\n", formatSize(stats.DBSizeBytes))

		keys, err := rt.db.ListSettings(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing stored keys: %w", err)
		}
		for _, k := range keys {
			fmt.Fprintf(out, "  %-10s %8s  updated %s\n", k.Key, formatSize(int64(len(k.Value))), k.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every cached article",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		n := rt.cache.Len()
		if err := rt.cache.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		rt.logger.Info("Article cache cleared (%d entries)", n)
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached article(s).\n", n)
		return nil
	},
}

var cacheVacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Reclaim unused database space",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.db.Vacuum(); err != nil {
			return fmt.Errorf("vacuum: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database optimized.")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheVacuumCmd)
}

func keyPolicyName(name string) string {
	if name == "" {
		return "signature"
	}
	return name
}

func formatSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
