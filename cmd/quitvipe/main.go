// Package main is the single-binary entrypoint for Quit Vipe.
package main

import (
	_ "time/tzdata" // tracker.timezone works on hosts without a zoneinfo database

	"github.com/quitvipe/quitvipe/internal/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
