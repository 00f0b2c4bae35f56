package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Proton-105/koi-bot/pkg/config"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "koi-bot",
		Short:        "Telegram trading menu bot",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	cmd.PersistentFlags().String("config", "", "Config file path (default ./configs/$APP_ENV.yaml).")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newLayoutCmd())
	cmd.AddCommand(newRefreshCmd())

	return cmd
}

// loadConfig reads the --config file when given, otherwise the APP_ENV default.
func loadConfig(cmd *cobra.Command) (*config.Config, *viper.Viper, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path, os.Getenv("APP_ENV"))
}
