// Balictl is a command-line client for Bali motorized blinds hubs.
//
// It authenticates against the MMS cloud portal, opens the hub's cloud relay
// session, and exposes hub information, device and item listings, item
// control, and live update watching.
//
// Usage:
//
//	balictl [command] [flags]
//
// See 'balictl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/balihome/balirelay/internal/logging"
	"github.com/balihome/balirelay/internal/version"
)

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "balictl",
	Short: "Bali Blinds Cloud Relay Client",
	Long: `A command-line client for Bali motorized blinds hubs.

Logs into the MMS cloud portal with your Bali Motorization account,
resolves the hub's relay assignment, and talks to the hub over its
persistent cloud relay session.`,
	Version: version.Version,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("balictl %s (commit: %s)\n", version.Version, version.Commit)
	},
}
