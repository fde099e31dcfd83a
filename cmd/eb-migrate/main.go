// Package main is the entry point for the eb-migrate CLI.
package main

import (
	"os"

	"github.com/verenigingen/eb-migrate/cmd/eb-migrate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
