package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/spf13/cobra"
)

func rconCmd(configPath *string) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "rcon <command...>",
		Short: "Run a console command on the server and print its output",
		Long: `Run a console command through the admin port. The arguments are
joined with spaces, so quote them the way the game console expects.

Examples:
  ottdctl rcon pause
  ottdctl rcon 'kick 3 "spamming"'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := strings.Join(args, " ")
			return withClient(cmd, *configPath, timeout,
				func(c *admin.Client) error { return c.ExecuteRCon(command) },
				func(ctx context.Context, shot *oneShot) error {
					return printRcon(ctx, cmd.OutOrStdout(), shot)
				})
		},
	}
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "Give up after this long")
	return cmd
}

// printRcon writes console output until the server reports the command
// finished. Lines arrive before the end marker on the same reader, so a final
// flush after done sees all of them.
func printRcon(ctx context.Context, out io.Writer, shot *oneShot) error {
	flush := func() {
		for _, line := range shot.takeLines() {
			fmt.Fprintln(out, line)
		}
	}
	for {
		select {
		case <-shot.more:
			flush()
		case <-shot.done:
			flush()
			return nil
		case err := <-shot.fail:
			flush()
			return err
		case <-ctx.Done():
			flush()
			return ctx.Err()
		}
	}
}
