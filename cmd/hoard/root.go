package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hoardkv/hoard"
	"github.com/hoardkv/hoard/internal/backend/redisbackend"
	"github.com/hoardkv/hoard/internal/lock/redislock"
)

var (
	// Global flags.
	redisAddr string
	namespace string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "hoard",
	Short: "Two-tier distributed cache over redis",
	Long: `Hoard is a CLI tool for inspecting and manipulating a hoard cache.

It talks to the same redis keyspace your services use, applying the same
namespacing, so values written here are visible to them and vice versa.

Examples:
  # Store a value for an hour
  hoard set user:1 '{"name":"Ana"}' --ttl 1h

  # Read it back
  hoard get user:1

  # Remove everything tagged "users"
  hoard del --tag users

  # Show cache statistics
  hoard stats`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&redisAddr, "redis", "r", "localhost:6379", "redis server address")
	rootCmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "cache", "key namespace")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// newCache connects to redis and builds a cache for one-shot CLI use.
// The local tier is disabled; a single command gains nothing from it.
func newCache() (*hoard.Cache, error) {
	logger := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("creating logger: %w", err)
		}
		logger = l
	}

	rb := redisbackend.New(redisbackend.Config{
		Addr:        redisAddr,
		DialTimeout: 5 * time.Second,
	})

	cache, err := hoard.New(
		hoard.WithBackend(rb),
		hoard.WithNamespace(namespace),
		hoard.WithLocker(redislock.New(rb.Client(), 30*time.Second)),
		hoard.WithLocalCacheSize(0),
		hoard.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	return cache, nil
}
