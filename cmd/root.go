// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/wfw/internal/config"
)

var (
	// Global flags
	configFile string
	foreground bool
)

// rootCmd runs the bridge when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wfw",
	Short: "wfw - layer-2 bridge over UDP",
	Long: `wfw joins two separate network segments into one layer-2 broadcast domain.

Frames read from a TAP interface are sent over UDP, unicast to the peer a
hardware address was learned behind or broadcast otherwise. Frames received
over UDP are written back to the TAP interface. Addresses are only learned
from IPv6 TCP traffic that answers a locally initiated handshake; remotes
sending unsolicited SYNs are blacklisted.

Unless --foreground is given the process detaches and runs in the background.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBridge(cmd.Context(), configFile, foreground)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultPath,
		"config file path")
	rootCmd.Flags().BoolVarP(&foreground, "foreground", "f", false,
		"stay in the foreground instead of detaching")

	// Add subcommands
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
