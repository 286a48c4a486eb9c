package main

import (
	"github.com/spf13/cobra"

	"github.com/dentbook/clinic/libs/config"
)

const serviceName = "booking-service"

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Dental clinic appointment booking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional KEY=VALUE file loaded before reading the environment")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSlotsCmd())
	return root
}
