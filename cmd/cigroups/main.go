// Package main is the entry point for the cigroups CLI binary.
package main

import (
	"os"

	cli "cigroups/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
