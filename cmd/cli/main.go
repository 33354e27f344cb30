// Package main is the entry point for comandactl.
// comandactl is the operator terminal tool for the comanda print dispatcher.
package main

import (
	"os"

	"comanda/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
