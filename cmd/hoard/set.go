package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set [KEY] [VALUE]",
	Short: "Store a value in the cache",
	Long: `Store VALUE under KEY.

If VALUE is valid JSON it is stored as-is; otherwise it is stored as a
JSON string.

Examples:
  hoard set user:1 '{"name":"Ana"}' --ttl 1h
  hoard set greeting hello --ttl 10m --tag greetings --tag demo`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

var (
	setTTL  time.Duration
	setTags []string
)

func init() {
	setCmd.Flags().DurationVar(&setTTL, "ttl", time.Hour, "time to live")
	setCmd.Flags().StringArrayVar(&setTags, "tag", nil, "tag for group invalidation (repeatable)")
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	cache, err := newCache()
	if err != nil {
		return err
	}
	defer cache.Close()

	key, raw := args[0], []byte(args[1])

	var value any
	if json.Valid(raw) {
		value = json.RawMessage(raw)
	} else {
		value = args[1]
	}

	if err := cache.SetWithTags(context.Background(), key, value, setTTL, setTags...); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}

	fmt.Printf("OK %s (ttl %s)\n", key, setTTL)
	return nil
}
