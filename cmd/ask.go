package cmd

import (
	"os"
	"os/signal"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Rorical/zoltar/internal/app"
	"github.com/Rorical/zoltar/internal/config"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question without the TUI",
	Long: `Insert a coin, ask one question and print the answer. The answer is typed
out when stdout is a terminal and printed at once otherwise.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		opts, err := options()
		if err != nil {
			return err
		}
		opts.InstantReveal = !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())

		application, err := app.NewApplication(cfg, opts)
		if err != nil {
			return err
		}
		defer application.Stop()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		cmd.SilenceUsage = true
		return application.Ask(ctx, strings.Join(args, " "), opts.Mode, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
