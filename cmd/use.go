package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Rorical/zoltar/internal/config"
)

var useCmd = &cobra.Command{
	Use:   "use [profile-name]",
	Short: "Switch to a profile and consult the oracle",
	Long:  `Switch to the specified profile and immediately start the oracle.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := cfg.Use(args[0]); err != nil {
			return fmt.Errorf("cannot use profile: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		return runApp(cmd, cfg)
	},
}

func init() {
	rootCmd.AddCommand(useCmd)
}
