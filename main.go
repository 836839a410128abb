package main

import (
	"os"

	"github.com/scansplit/scansplit/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
