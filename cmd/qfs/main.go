// Package main provides the entry point for the qfs CLI.
package main

import (
	"os"

	"github.com/qfs-dev/qfs/cmd/qfs/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
