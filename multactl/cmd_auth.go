// multactl/cmd_auth.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/shared/service"
)

func (c *cli) remember(cmd *cobra.Command, res *service.SignInResponse) error {
	c.cfg.Token = res.Token
	c.cfg.Email = res.Identity.Email
	if err := c.cfg.save(c.configPath); err != nil {
		return err
	}
	c.logger.Debug("token stored", zap.String("config", c.configPath), zap.Time("expires_at", res.ExpiresAt))
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (valid until %s)\n", res.Identity.Email, res.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}

func (c *cli) signupCmd() *cobra.Command {
	var password, displayName string
	cmd := &cobra.Command{
		Use:   "signup <email>",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ", password)
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd)
			defer cancel()
			res, err := c.client.SignUp(ctx, args[0], pw, displayName)
			if err != nil {
				return explain(err)
			}
			return c.remember(cmd, res)
		},
	}
	cmd.Flags().StringVar(&password, "password", os.Getenv("MULTACTL_PASSWORD"), "Password (prompted when empty)")
	cmd.Flags().StringVar(&displayName, "name", "", "Display name")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and store the token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ", password)
			if err != nil {
				return err
			}
			ctx, cancel := c.requestContext(cmd)
			defer cancel()
			res, err := c.client.SignIn(ctx, args[0], pw)
			if err != nil {
				return explain(err)
			}
			return c.remember(cmd, res)
		},
	}
	cmd.Flags().StringVar(&password, "password", os.Getenv("MULTACTL_PASSWORD"), "Password (prompted when empty)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Token != "" {
				ctx, cancel := c.requestContext(cmd)
				defer cancel()
				if err := c.client.SignOut(ctx); err != nil {
					// The local token is dropped either way.
					c.logger.Warn("sign out failed", zap.Error(err))
				}
			}
			c.cfg.Token, c.cfg.Email = "", ""
			if err := c.cfg.save(c.configPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.requestContext(cmd)
			defer cancel()
			id, err := c.client.Me(ctx)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id.UID, id.Email)
			return nil
		},
	}
}
