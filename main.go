package main

import (
	"os"

	"github.com/idelchi/jolt/internal/cli"
)

// Global variable for CI stamping.
var version = "unknown - unofficial & generated by unknown" //nolint:gochecknoglobals

func main() {
	if err := cli.New(version).Execute(); err != nil {
		cli.PrintError(err)
		os.Exit(1)
	}
}
