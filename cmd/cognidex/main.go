// Package main provides the entry point for the cognidex CLI.
package main

import (
	"os"

	"github.com/cognidex/cognidex/cmd/cognidex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
