// Package main provides the hoard CLI tool for inspecting and manipulating
// a hoard cache over redis.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
