// Package main is the entry point for the threat intel aggregator.
package main

import (
	"fmt"
	"os"

	"threatintel/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
