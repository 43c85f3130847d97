// multactl/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ftotnem/multa-tracker/shared/service"
)

// cli carries the state shared by all commands of one invocation.
type cli struct {
	configPath string
	server     string
	team       string
	verbose    bool
	timeout    time.Duration

	cfg    *cliConfig
	client *service.LedgerClient
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "multactl",
		Short: "Keep track of multa owed to your teams",
		Long: `multactl talks to a multa-service instance.

Sign in once with "multactl login"; the server URL and token are stored in
~/.multactl.yaml. Amounts may be typed with a decimal comma ("2,50").`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if c.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			c.logger, err = config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			c.cfg, err = loadConfig(c.configPath)
			if err != nil {
				return err
			}
			if c.server != "" {
				c.cfg.Server = c.server
			}
			c.client = service.NewLedgerClient(c.cfg.Server, c.cfg.Token)
			c.logger.Debug("using server", zap.String("server", c.cfg.Server), zap.String("config", c.configPath))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", defaultConfigPath(), "Config file")
	root.PersistentFlags().StringVar(&c.server, "server", "", "multa-service URL (overrides the config file)")
	root.PersistentFlags().StringVarP(&c.team, "team", "t", "", "Team id (default: the team chosen with \"teams use\")")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 10*time.Second, "Request timeout")

	root.AddCommand(
		c.signupCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.teamsCmd(),
		c.playersCmd(),
		c.multaCmd(),
		c.watchCmd(),
	)
	return root
}

// requestContext bounds a single API call.
func (c *cli) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.timeout)
}

// teamID resolves the team a command works on.
func (c *cli) teamID() (string, error) {
	if c.team != "" {
		return c.team, nil
	}
	if c.cfg.Team != "" {
		return c.cfg.Team, nil
	}
	return "", fmt.Errorf("no team selected: pass --team or run \"multactl teams use <id>\"")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
