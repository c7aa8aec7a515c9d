package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the summary cache",
	Long: `Inspect and clean the local result cache.

Summaries are cached by document content, query, chunking policy, model and
strategy. Entries expire after the configured TTL and the least recently used
entries are evicted when the size limit is exceeded.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and entry count",
	RunE:  runCacheStats,
}

var cacheEvictCmd = &cobra.Command{
	Use:   "evict",
	Short: "Remove expired and over-limit entries now",
	RunE:  runCacheEvict,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove every cached summary",
	RunE:  runCachePurge,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheEvictCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	if cacheService == nil {
		return errNotConfigured("cache")
	}

	stats, err := cacheService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get cache stats: %w", err)
	}

	cmd.Println("Summary Cache")
	cmd.Println("=============")
	cmd.Printf("  Entries:   %d\n", stats.Entries)
	size := humanize.IBytes(uint64(max(stats.TotalBytes, 0)))
	if stats.MaxBytes > 0 {
		cmd.Printf("  Size:      %s of %s\n", size, humanize.IBytes(uint64(stats.MaxBytes)))
	} else {
		cmd.Printf("  Size:      %s (unbounded)\n", size)
	}
	if stats.Staging > 0 {
		cmd.Printf("  In flight: %d\n", stats.Staging)
	}
	return nil
}

func runCacheEvict(cmd *cobra.Command, _ []string) error {
	if cacheService == nil {
		return errNotConfigured("cache")
	}

	removed, err := cacheService.Evict(cmd.Context())
	if err != nil {
		return fmt.Errorf("eviction failed: %w", err)
	}
	cmd.Printf("Evicted %d %s.\n", removed, plural(removed, "entry", "entries"))
	return nil
}

func runCachePurge(cmd *cobra.Command, _ []string) error {
	if cacheService == nil {
		return errNotConfigured("cache")
	}

	if err := cacheService.Purge(cmd.Context()); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	cmd.Println("Cache purged.")
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
