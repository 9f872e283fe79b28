package main

import (
	"os"

	"github.com/sieng/factor-engine/cmd/factorengine/commands"
)

// main is the entry point for the Factor Engine CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
