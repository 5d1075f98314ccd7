package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/acheong08/credscore/pkg/models"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent analysis results, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		entries := a.History.List(cmd.Context())
		out := cmd.OutOrStdout()
		if historyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		printHistory(out, entries)
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print entries as JSON")
}

func printHistory(w io.Writer, entries []models.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "📭 No analyses yet")
		return
	}

	fmt.Fprintf(w, "🕘 Recent analyses (%d):\n\n", len(entries))
	for _, e := range entries {
		marker := ""
		if e.IsSynthetic {
			marker = " (estimated)"
		}
		fmt.Fprintf(w, "   %s  %3d/100%s  [%s]  %s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04"), e.CredibilityScore, marker, e.Language, preview(e.Content, 60))
	}
}

// preview shortens content to one line of at most n runes
func preview(content string, n int) string {
	line := strings.Join(strings.Fields(content), " ")
	runes := []rune(line)
	if len(runes) <= n {
		return line
	}
	return string(runes[:n-1]) + "…"
}
