package main

import (
	"os"

	"github.com/aristath/advisor/cmd/advisor/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
