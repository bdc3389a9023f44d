// Package main provides talectl, the Talespring command line client.
package main

import (
	"fmt"
	"os"

	"github.com/talespring/talespring-server/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
