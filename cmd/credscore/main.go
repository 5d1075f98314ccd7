package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acheong08/credscore/internal/app"
	"github.com/acheong08/credscore/internal/config"
)

var (
	verbose bool
	logger  *zap.Logger
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "credscore",
	Short: "credscore - credibility analysis for news and social media posts",
	Long: `credscore sends text, or text read from a screenshot, to a credibility
scoring service and reports a 0-100 score with red flags and an explanation.

When the scoring service cannot be reached an estimated result is shown and
marked as such. The last results are kept in a local history.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		} else if level == "info" {
			// Keep the terminal for results unless asked otherwise
			level = "warn"
		}
		logger, err = config.NewLogger(level)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(analyzeCmd, batchCmd, historyCmd)
}

func openApp(cmd *cobra.Command) (*app.App, error) {
	return app.Open(cmd.Context(), cfg, logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
