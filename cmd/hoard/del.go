package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var delCmd = &cobra.Command{
	Use:   "del [KEY...]",
	Short: "Delete keys from the cache",
	Long: `Delete the given keys, or keys selected by tag or pattern.

Examples:
  hoard del user:1 user:2
  hoard del --tag users
  hoard del --pattern 'session:*'`,
	RunE: runDel,
}

var (
	delTags    []string
	delPattern string
)

func init() {
	delCmd.Flags().StringArrayVar(&delTags, "tag", nil, "delete every key with this tag (repeatable)")
	delCmd.Flags().StringVar(&delPattern, "pattern", "", "delete keys matching this pattern")
	rootCmd.AddCommand(delCmd)
}

func runDel(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && len(delTags) == 0 && delPattern == "" {
		return fmt.Errorf("nothing to delete: give keys, --tag or --pattern")
	}

	cache, err := newCache()
	if err != nil {
		return err
	}
	defer cache.Close()
	ctx := context.Background()

	deleted := 0
	for _, key := range args {
		if err := cache.Delete(ctx, key); err != nil {
			return fmt.Errorf("deleting %q: %w", key, err)
		}
		deleted++
	}

	if len(delTags) > 0 {
		n, err := cache.InvalidateTags(ctx, delTags...)
		if err != nil {
			return fmt.Errorf("invalidating tags: %w", err)
		}
		deleted += n
	}

	if delPattern != "" {
		n, err := cache.InvalidatePattern(ctx, delPattern)
		if err != nil {
			return fmt.Errorf("invalidating pattern: %w", err)
		}
		deleted += n
	}

	fmt.Printf("deleted %d key(s)\n", deleted)
	return nil
}
