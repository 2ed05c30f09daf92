package main

import (
	"fmt"
	"os"

	"github.com/jetsocket/backend/internal/config"
	"github.com/jetsocket/backend/internal/logger"
	"github.com/spf13/cobra"
)

var log = logger.Get("main")

var configFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "jetsocket-api",
		SilenceUsage: true,
		Short:        "JetSocket dashboard backend",
		Long:         `JetSocket dashboard backend: application management, metrics, checkout and broker tooling.`,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "optional YAML config file (environment variables override it)")
	root.AddCommand(serveCmd(), migrateCmd(), createAdminCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
