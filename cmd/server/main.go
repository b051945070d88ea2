package main

import (
	"fmt"
	"log"
	"runtime"

	"github.com/bbr/taskbot/internal/config"
	"github.com/bbr/taskbot/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	envName string
)

func main() {
	c := &cobra.Command{
		Use:           "taskbot",
		Short:         "Telegram to-do list bot",
		Version:       fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.PersistentFlags().StringVar(&envName, "env", "local", "environment to run in (loads .env.<env>)")

	c.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Version for taskbot",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(c.Version)
		},
	})
	c.AddCommand(serveCmd)
	c.AddCommand(migrateCmd)

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

// setup loads the environment files and configuration and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	envFile, err := config.LoadEnv(envName)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("could not load config: %w", err)
	}

	zl, err := logger.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	zl.Info("configuration loaded", zap.String("app_env", cfg.AppEnv), zap.String("env_file", envFile))

	return cfg, zl, nil
}
