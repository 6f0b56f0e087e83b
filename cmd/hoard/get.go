package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get [KEY]",
	Short: "Read a value from the cache",
	Long: `Read the value stored under KEY and print it.

Values are stored JSON-encoded; by default the raw JSON is printed as-is.

Examples:
  hoard get user:1
  hoard get user:1 --pretty`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

var prettyPrint bool

func init() {
	getCmd.Flags().BoolVar(&prettyPrint, "pretty", false, "re-indent JSON output")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	cache, err := newCache()
	if err != nil {
		return err
	}
	defer cache.Close()

	var value json.RawMessage
	found, err := cache.Get(context.Background(), args[0], &value)
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}
	if !found {
		return fmt.Errorf("key %q not found", args[0])
	}

	if prettyPrint {
		var buf any
		if err := json.Unmarshal(value, &buf); err != nil {
			return fmt.Errorf("parsing stored value: %w", err)
		}
		out, err := json.MarshalIndent(buf, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(string(value))
	return nil
}
