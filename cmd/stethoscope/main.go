// Package main is the stethoscope command line tool.
//
// Usage:
//
//	stethoscope [flags] <command> [args]
//
// Commands:
//
//	predict      - Classify WAV recordings
//	spectrogram  - Build and save mel spectrograms without a model
//	labels       - List the class labels in model output order
package main

import (
	"fmt"
	"os"

	"github.com/Brownie44l1/stethoscope-api/cmd/stethoscope/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
