// Package cli implements the serverd binary's command-line surface:
// serve, version, and create-admin-key.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errInvalidConfig marks a startup failure as a configuration problem so
// Execute can exit 2 rather than the generic 1.
var errInvalidConfig = errors.New("invalid configuration")

const version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "serverd",
	Short: "Local desktop search engine server",
	Long: `serverd runs the desktop search engine: it indexes registered
directories, keeps their contents searchable by keyword, semantic, and
hybrid queries, and serves the results over an HTTP API.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml (optional)")
}

// Execute runs the root command, exiting the process with the exit codes
// spec'd for a CLI wrapper: 1 on startup/init failure, 2 on invalid
// configuration.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errInvalidConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
