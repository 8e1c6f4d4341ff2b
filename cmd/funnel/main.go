// Package main provides the funnel CLI.
package main

import (
	"os"

	"github.com/mesh-intelligence/funnel/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
