package cmd

import (
	"errors"

	"comanda/internal/bridge"

	"github.com/spf13/cobra"
)

// printError reports err the way every command does: API errors with their
// status code, anything else as is.
func printError(cmd *cobra.Command, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
		return
	}
	var bridgeErr *bridge.APIError
	if errors.As(err, &bridgeErr) {
		cmd.Printf("Error (%d): %s\n", bridgeErr.StatusCode, bridgeErr.Message)
		return
	}
	cmd.Printf("Error: %v\n", err)
}
