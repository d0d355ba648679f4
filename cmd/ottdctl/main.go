package main

import (
	"fmt"
	"os"

	"github.com/danmuck/ottdctl/internal/logging"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	logging.ConfigureRuntime()

	var configPath string
	rootCmd := &cobra.Command{
		Use:   "ottdctl",
		Short: "Admin port client for OpenTTD servers",
		Long: `ottdctl connects to the admin port of an OpenTTD server.

It runs the chat bot, the Slack bridge, the statistics store and the
status API, or sends a single command and prints the answer.

Examples:
  ottdctl run --config ottdctl.toml
  ottdctl rcon "say \"hello\""
  ottdctl ping
  ottdctl date`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ottdctl.toml when present)")

	rootCmd.AddCommand(
		runCmd(&configPath),
		rconCmd(&configPath),
		pingCmd(&configPath),
		dateCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ottdctl: %v\n", err)
		os.Exit(1)
	}
}
