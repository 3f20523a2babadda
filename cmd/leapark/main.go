// Package main provides the leapark CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leapark/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
