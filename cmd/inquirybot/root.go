package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/inquirybot/core/buildinfo"
	corecmd "github.com/m3rciful/inquirybot/core/cmd"
	"github.com/m3rciful/inquirybot/core/database"
	"github.com/m3rciful/inquirybot/core/logger"
	"github.com/m3rciful/inquirybot/internal/app"
	"github.com/m3rciful/inquirybot/internal/config"
)

const (
	configEnvVar      = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

func newRootCmd() *cobra.Command {
	var configPath string

	runOpts := func() corecmd.Options {
		return corecmd.Options{
			ConfigPath:        configPath,
			ConfigEnvVar:      configEnvVar,
			DefaultConfigPath: defaultConfigPath,
			LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
				cfg, err := config.Load(path)
				if err != nil {
					return nil, err
				}
				return cfg, nil
			},
			Bootstrap: func(ctx context.Context, c corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
				cfg, ok := c.(*config.Config)
				if !ok {
					return nil, fmt.Errorf("unexpected config type %T", c)
				}
				return app.New(ctx, cfg)
			},
		}
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bot",
		RunE: func(*cobra.Command, []string) error {
			return corecmd.Run(runOpts())
		},
	}

	root := &cobra.Command{
		Use:           "inquirybot",
		Short:         "Telegram bot that imports real estate inquiries from a forum",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runCmd.RunE,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default $"+configEnvVar+" or "+defaultConfigPath+")")

	root.AddCommand(runCmd, newMigrateCmd(runOpts), newVersionCmd())
	return root
}

func newMigrateCmd(opts func() corecmd.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o := opts()
			path, err := o.ResolveConfigPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if err := logger.InitLogger(cfg.CoreConfig()); err != nil {
				return err
			}
			defer func() { _ = logger.Shutdown() }()
			if err := database.RunMigrations(cfg.Database); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			date := buildinfo.Date
			if date == "" {
				date = "unknown"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inquirybot %s (commit %s, built %s)\n", buildinfo.Version, buildinfo.Commit, date)
		},
	}
}
