package main

import (
	"context"
	"fmt"
	"time"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/spf13/cobra"
)

func dateCmd(configPath *string) *cobra.Command {
	var (
		timeout time.Duration
		storage bool
	)

	cmd := &cobra.Command{
		Use:   "date",
		Short: "Print the current game date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, *configPath, timeout,
				func(c *admin.Client) error { return c.RequestDate() },
				func(ctx context.Context, shot *oneShot) error {
					select {
					case d := <-shot.dates:
						if storage {
							fmt.Fprintln(cmd.OutOrStdout(), d.StorageString())
						} else {
							fmt.Fprintln(cmd.OutOrStdout(), d.String())
						}
						return nil
					case err := <-shot.fail:
						return err
					case <-ctx.Done():
						return ctx.Err()
					}
				})
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "Give up after this long")
	cmd.Flags().BoolVar(&storage, "iso", false, "Print YYYY-MM-DD instead of DD.MM.YYYY")
	return cmd
}
