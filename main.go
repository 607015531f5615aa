// Package main is the entry point for the wfw layer-2 UDP bridge.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/wfw/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
