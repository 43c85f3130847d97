// multactl/cmd_players.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) playersCmd() *cobra.Command {
	players := &cobra.Command{
		Use:   "players",
		Short: "Manage the players of a team",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the roster of the team with every balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			teamID, err := c.teamID()
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd)
			defer cancel()
			snap, err := c.client.Roster(ctx, teamID)
			if err != nil {
				return explain(err)
			}
			printRoster(cmd.OutOrStdout(), *snap)
			return nil
		},
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Add a new player to the team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			teamID, err := c.teamID()
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd)
			defer cancel()
			res, err := c.client.CreatePlayer(ctx, teamID, args[0])
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", res.Message, res.Player.ID)
			return nil
		},
	}

	join := &cobra.Command{
		Use:   "join <player-id>",
		Short: "Add an existing player to the team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			teamID, err := c.teamID()
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd)
			defer cancel()
			res, err := c.client.AddMembership(ctx, teamID, args[0])
			if err != nil {
				return explain(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			if res.Added != nil && !*res.Added {
				fmt.Fprintln(cmd.OutOrStdout(), "(already a member)")
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <player-id>",
		Short: "Show a player's balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.requestContext(cmd)
			defer cancel()
			p, err := c.client.GetPlayer(ctx, args[0])
			if err != nil {
				return explain(err)
			}
			printPlayer(cmd.OutOrStdout(), p)
			return nil
		},
	}

	rename := &cobra.Command{
		Use:   "rename <player-id> <name>",
		Short: "Rename a player",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.requestContext(cmd)
			defer cancel()
			res, err := c.client.RenamePlayer(ctx, args[0], args[1])
			if err != nil {
				return explain(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <player-id>",
		Short: "Delete a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.requestContext(cmd)
			defer cancel()
			res, err := c.client.DeletePlayer(ctx, args[0])
			if err != nil {
				return explain(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	players.AddCommand(list, create, join, show, rename, del)
	return players
}
