package main

import (
	"os"

	"github.com/carwise/gearbox/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
