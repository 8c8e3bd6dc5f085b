// Package main provides the pricewatch command: refresh the tracked catalog,
// list the most valuable items and check single references.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
