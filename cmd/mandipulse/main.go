// Package main is the entry point for the mandipulse agent CLI.
package main

import (
	"os"

	"github.com/mandipulse/mandipulse/cmd/mandipulse/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
