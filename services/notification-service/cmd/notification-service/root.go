package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dentbook/clinic/libs/config"
	"github.com/dentbook/clinic/libs/db"
	"github.com/dentbook/clinic/libs/runtime"
	"github.com/dentbook/clinic/services/notification-service/internal/storage"
)

const serviceName = "notification-service"

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Delivers booking notifications consumed from Kafka",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional KEY=VALUE file loaded before reading the environment")

	var migrate bool
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Consume notification requests and expose health probes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, errLog, err := runtime.NewLoggerWithErrorFile(serviceName, cfg.ErrorLogPath)
			if err != nil {
				return err
			}
			defer errLog.Close()

			ctx, stop := runtime.SignalContext()
			defer stop()
			if err := serve(ctx, cfg, logger, migrate); err != nil {
				logger.Error("notification service stopped", "err", err)
				return err
			}
			return nil
		},
	}
	serveCmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before consuming")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbURL, err := config.RequiredString("DATABASE_URL")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: 2})
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()

			applied, err := storage.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(applied))
			return nil
		},
	}

	root.AddCommand(serveCmd, migrateCmd)
	return root
}
