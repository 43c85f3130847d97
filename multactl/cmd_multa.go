// multactl/cmd_multa.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ftotnem/multa-tracker/shared/ledger"
	"github.com/Ftotnem/multa-tracker/shared/service"
)

func (c *cli) multaCmd() *cobra.Command {
	multa := &cobra.Command{
		Use:   "multa",
		Short: "Record penalties and payments",
	}
	multa.AddCommand(
		c.adjustCmd("add <player-id> <amount>", "Record a multa", false),
		c.adjustCmd("pay <player-id> <amount>", "Record a payment", true),
	)
	return multa
}

func (c *cli) adjustCmd(use, short string, payment bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			teamID, err := c.teamID()
			if err != nil {
				return err
			}
			// Catch typos before a round trip.
			if _, err := ledger.ParseAmount(args[1]); err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd)
			defer cancel()

			var res *service.PlayerResult
			if payment {
				res, err = c.client.PayMulta(ctx, teamID, args[0], args[1])
			} else {
				res, err = c.client.AddMulta(ctx, teamID, args[0], args[1])
			}
			if err != nil {
				return explain(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			if res.Player == nil {
				return nil
			}
			if b, ok := ledger.BalanceFor(*res.Player, teamID); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s owes %s (total %s)\n", res.Player.Name, money(b.AmountDue), money(b.TotalMulta))
			}
			return nil
		},
	}
}
