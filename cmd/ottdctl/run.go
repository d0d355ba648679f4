package main

import (
	"errors"
	"os"

	"github.com/danmuck/ottdctl/internal/app"
	"github.com/danmuck/ottdctl/internal/config"
	"github.com/spf13/cobra"
)

func runCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Stay connected and run the enabled components",
		Long: `Connect to the admin port and keep the session alive until SIGINT
or SIGTERM. The bot, Slack bridge, store and status API start when
enabled in the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			svc, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return svc.Run()
		},
	}
}

// loadConfig reads path, or the default file when path is empty and the
// default exists. Without either only the environment is used.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err == nil {
			path = config.DefaultPath
		} else if !errors.Is(err, os.ErrNotExist) {
			return config.Config{}, err
		}
	}
	return config.Load(path)
}
