package main

import (
	"os"

	"github.com/capellaquant/capella/cmd/capella/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
