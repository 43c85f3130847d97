// multactl/cmd_watch.go
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/shared/models"
)

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the roster of the team live until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			teamID, err := c.teamID()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			err = c.client.WatchRoster(cmd.Context(), teamID, func(snap models.RosterSnapshot) error {
				c.logger.Debug("snapshot", zap.Uint64("version", snap.Version), zap.Int("players", len(snap.Players)))
				fmt.Fprintln(out)
				printRoster(out, snap)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return explain(err)
		},
	}
}
