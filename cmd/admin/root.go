package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/app"
	"github.com/kevin07696/subscription-tracker/internal/config"
	"github.com/kevin07696/subscription-tracker/pkg/logging"
)

// cli carries the state built once in PersistentPreRunE
type cli struct {
	cfg    *config.Config
	logger *zap.Logger
	app    *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "admin",
		Short: "Operate the subscription tracker from the command line",
		Long: `Administrative commands that run against the configured storage.

Configuration is read from the environment (or a .env file) exactly as the
server reads it, so STORAGE_DRIVER and its connection settings must match.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			c.close()
			return nil
		},
	}

	root.AddCommand(
		newCreateAdminCmd(c),
		newSweepCmd(c),
		newRemindCmd(c),
	)
	return root
}

func (c *cli) init(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Server.Environment, cfg.Logger.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	c.cfg, c.logger, c.app = cfg, logger, a
	return nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close(context.Background())
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}
