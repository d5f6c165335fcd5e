package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Rorical/zoltar/internal/app"
	"github.com/Rorical/zoltar/internal/config"
	"github.com/Rorical/zoltar/internal/models"
)

var (
	modeFlag    string
	noSoundFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "zoltar",
	Short: "A coin-operated oracle for your terminal",
	Long: `Zoltar is a coin-operated fortune teller. Insert a coin, ask one question
and watch the oracle think before it reveals its answer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return runApp(cmd, cfg)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&modeFlag, "mode", "m", "direct", "answer mode: direct or grounded")
	rootCmd.PersistentFlags().BoolVar(&noSoundFlag, "no-sound", false, "disable sound effects")

	rootCmd.AddCommand(profileCmd)
}

func options() (app.Options, error) {
	mode, err := models.ParseMode(modeFlag)
	if err != nil {
		return app.Options{}, err
	}
	return app.Options{Mode: mode, Mute: noSoundFlag}, nil
}

// runApp starts the TUI for the loaded configuration. The application is
// stopped on every return path.
func runApp(cmd *cobra.Command, cfg *config.Config) error {
	opts, err := options()
	if err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	application, err := app.NewApplication(cfg, opts)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer application.Stop()

	cmd.SilenceUsage = true
	if err := application.Start(); err != nil {
		return fmt.Errorf("application error: %w", err)
	}
	return nil
}
