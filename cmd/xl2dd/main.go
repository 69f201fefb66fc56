// Package main provides the xl2dd command-line tool.
package main

import (
	"os"

	"github.com/gridcraft/xl2dd/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
