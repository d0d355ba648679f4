package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/spf13/cobra"
)

func pingCmd(configPath *string) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Measure the admin port round trip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := rand.Uint32()
			var sent time.Time
			return withClient(cmd, *configPath, timeout,
				func(c *admin.Client) error {
					sent = time.Now()
					return c.SendPing(payload)
				},
				func(ctx context.Context, shot *oneShot) error {
					for {
						select {
						case got := <-shot.pongs:
							if got != payload {
								continue
							}
							// includes the handshake, the ping waits for the session
							fmt.Fprintf(cmd.OutOrStdout(), "pong payload=%d rtt=%s\n", got, time.Since(sent).Round(time.Millisecond))
							return nil
						case err := <-shot.fail:
							return err
						case <-ctx.Done():
							return ctx.Err()
						}
					}
				})
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "Give up after this long")
	return cmd
}
