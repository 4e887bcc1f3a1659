package main

import (
	"os"

	"github.com/kirillm/fx-copilot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
