// multactl/cmd_teams.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) teamsCmd() *cobra.Command {
	teams := &cobra.Command{
		Use:   "teams",
		Short: "Manage the teams you administer",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your teams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.requestContext(cmd)
			defer cancel()
			list, err := c.client.ListTeams(ctx)
			if err != nil {
				return explain(err)
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tCOLOR\tADMINS")
			for _, t := range list {
				marker := ""
				if t.ID == c.cfg.Team {
					marker = " *"
				}
				fmt.Fprintf(tw, "%s%s\t%s\t%s\t%d\n", t.ID, marker, t.Name, t.Color, len(t.Admins))
			}
			return tw.Flush()
		},
	}

	create := &cobra.Command{
		Use:   "create <name> <color>",
		Short: "Create a team",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.requestContext(cmd)
			defer cancel()
			res, err := c.client.CreateTeam(ctx, args[0], args[1])
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", res.Message, res.Team.ID)
			return nil
		},
	}

	update := &cobra.Command{
		Use:   "update <team-id> <name> <color>",
		Short: "Rename or recolor a team",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.requestContext(cmd)
			defer cancel()
			res, err := c.client.UpdateTeam(ctx, args[0], args[1], args[2])
			if err != nil {
				return explain(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <team-id>",
		Short: "Delete a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.requestContext(cmd)
			defer cancel()
			res, err := c.client.DeleteTeam(ctx, args[0])
			if err != nil {
				return explain(err)
			}
			if c.cfg.Team == args[0] {
				c.cfg.Team = ""
				if err := c.cfg.save(c.configPath); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	addAdmin := &cobra.Command{
		Use:   "add-admin <team-id> <uid-or-email>",
		Short: "Share a team with another user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.requestContext(cmd)
			defer cancel()
			res, err := c.client.AddTeamAdmin(ctx, args[0], args[1])
			if err != nil {
				return explain(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			if res.Added != nil && !*res.Added {
				fmt.Fprintln(cmd.OutOrStdout(), "(already an admin)")
			}
			return nil
		},
	}

	use := &cobra.Command{
		Use:   "use <team-id>",
		Short: "Remember a team for later commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.requestContext(cmd)
			defer cancel()
			snap, err := c.client.Roster(ctx, args[0])
			if err != nil {
				return explain(err)
			}
			c.cfg.Team = args[0]
			if err := c.cfg.save(c.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Using team %s\n", snap.Team.Name)
			return nil
		},
	}

	teams.AddCommand(list, create, update, del, addAdmin, use)
	return teams
}
