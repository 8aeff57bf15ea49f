// Package cmd holds the nounfill command line: the interactive session and
// two non-interactive helpers for the catalog and the answer checker.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"nounfill-go/internal/api"
	"nounfill-go/internal/config"
	"nounfill-go/internal/logger"
)

var (
	cfgFile string
	baseURL string
)

var rootCmd = &cobra.Command{
	Use:          "nounfill",
	Short:        "Listen to a sentence and fill in the nouns you heard",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd)
	},
}

// Execute runs the root command until it returns or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./nounfill.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "backend origin, overrides backend.base_url")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if baseURL != "" {
		cfg.Backend.BaseURL = baseURL
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	return cfg, nil
}

// setup loads the config and builds a stderr logger and an API client for
// the non-interactive commands.
func setup() (*config.Config, *logrus.Logger, *api.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := logger.New(cfg, os.Stderr)
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := api.NewClient(cfg.Backend, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, client, nil
}
