package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/acheong08/credscore/internal/batch"
	"github.com/acheong08/credscore/internal/locale"
	"github.com/acheong08/credscore/pkg/models"
)

var (
	batchConcurrency int
	batchJSON        bool
	batchLanguage    string
)

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Score many items, separated by blank lines, from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", batch.DefaultConcurrency, "Items scored at once")
	batchCmd.Flags().StringVarP(&batchLanguage, "lang", "l", "", "Language to record results in (en, hi, mr)")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "Print results as JSON")
}

type batchItem struct {
	Content string               `json:"content"`
	Entry   *models.HistoryEntry `json:"entry,omitempty"`
	Error   string               `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	var input io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		input = f
	}
	data, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	items := batch.SplitItems(string(data))

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	progress := cmd.ErrOrStderr()
	runner := batch.NewRunner(a.Analyzer, batchConcurrency, func(done, total int, r batch.Result) {
		if batchJSON {
			return
		}
		status := "✅"
		if r.Error != nil {
			status = "❌"
		} else if r.Outcome.IsSynthetic {
			status = "⚠️ "
		}
		fmt.Fprintf(progress, "  [%d/%d] %s %s\n", done, total, status, preview(r.Content, 50))
	}, logger.Named("batch"))

	fmt.Fprintf(progress, "🔍 Analyzing %d items (max %d concurrent)\n", len(items), batchConcurrency)
	results, runErr := runner.Run(cmd.Context(), items)

	language := locale.Resolve(batchLanguage, cfg.DefaultLanguage)
	out := make([]batchItem, len(results))
	for i, r := range results {
		out[i] = batchItem{Content: r.Content}
		if r.Error != nil {
			out[i].Error = r.Error.Error()
			continue
		}
		entry, err := models.NewHistoryEntry(r.Outcome, r.Content, language, time.Now())
		if err != nil {
			return err
		}
		if err := a.History.Append(cmd.Context(), entry); err != nil {
			logger.Warn("Result not saved to history", zap.Error(err))
		}
		out[i].Entry = &entry
	}

	if batchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		s := batch.Summarize(results)
		fmt.Fprintf(cmd.OutOrStdout(), "\n📊 Batch Summary:\n   Scored: %d\n   Estimated: %d\n   Failed: %d\n", s.Scored, s.Estimated, s.Failed)
	}
	return runErr
}
