package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rorical/zoltar/internal/config"
	"github.com/Rorical/zoltar/internal/health"
	"github.com/Rorical/zoltar/internal/logging"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the oracle backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		logger, err := logging.New(logging.Config{Level: cfg.LogLevel(), File: cfg.LogFile(), Service: "health"})
		if err != nil {
			return err
		}
		defer logger.Close()

		checker := health.NewChecker(cfg.HealthURL(), 5*time.Second, nil, logger.Logger)
		status := checker.Check(context.Background())
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", checker.URL(), status)

		cmd.SilenceUsage = true
		if status != health.Connected {
			return fmt.Errorf("backend %s", status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
