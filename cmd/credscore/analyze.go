package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/acheong08/credscore/internal/analysis"
	"github.com/acheong08/credscore/internal/server"
	"github.com/acheong08/credscore/pkg/models"
)

var (
	imagePath  string
	language   string
	jsonOutput bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text...]",
	Short: "Score the credibility of text and/or a screenshot",
	Long: `Scores the given text. With --image, text is also read from the image and
appended after any text given as arguments. With neither, text is read from
stdin.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&imagePath, "image", "i", "", "Path to an image to read text from")
	analyzeCmd.Flags().StringVarP(&language, "lang", "l", "", "Language to record the result in (en, hi, mr)")
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	content := strings.Join(args, " ")
	if content == "" && imagePath == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		content = string(data)
	}

	var image []byte
	if imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		image = data
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	sender := &consoleSender{out: cmd.ErrOrStderr(), quiet: jsonOutput}
	session := server.NewSession(a.Analyzer, a.Extractor, a.History, cfg.DefaultLanguage, sender, logger)

	entry, err := session.Run(cmd.Context(), server.Request{Content: content, Image: image, Language: language})
	if err != nil {
		if code := analysis.Code(err); code != "internal" {
			return errors.New(analysis.UserMessage(err))
		}
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	}
	printOutcome(out, entry)
	return nil
}

func printOutcome(w io.Writer, entry models.HistoryEntry) {
	fmt.Fprintf(w, "\n📊 Credibility Score: %d/100 (%s)\n", entry.CredibilityScore, verdict(entry.CredibilityScore))
	if entry.IsSynthetic {
		fmt.Fprintln(w, "⚠️  Estimated result: the scoring service was unavailable")
	}

	if len(entry.RedFlags) > 0 {
		fmt.Fprintf(w, "\n🚩 Red Flags (%d):\n", len(entry.RedFlags))
		for _, flag := range entry.RedFlags {
			fmt.Fprintf(w, "   - %s\n", flag)
		}
	} else {
		fmt.Fprintln(w, "\n✅ No red flags")
	}

	fmt.Fprintf(w, "\n📝 %s\n", entry.Explanation)
}

// verdict labels a score band
func verdict(score int) string {
	switch {
	case score >= 70:
		return "high credibility"
	case score >= 40:
		return "moderate credibility"
	default:
		return "low credibility"
	}
}

// consoleSender prints session progress to the terminal
type consoleSender struct {
	out   io.Writer
	quiet bool
}

func (c *consoleSender) SendMessage(server.Message) {}

func (c *consoleSender) SendLog(message, level string) {
	if c.quiet {
		return
	}
	icon := "ℹ️ "
	switch level {
	case "success":
		icon = "✅"
	case "warning":
		icon = "⚠️ "
	case "error":
		icon = "❌"
	}
	fmt.Fprintf(c.out, "%s %s\n", icon, message)
}

func (c *consoleSender) SendProgress(percent int, stage, message string) {
	if c.quiet || percent == 100 {
		return
	}
	fmt.Fprintf(c.out, "🔍 %s\n", message)
}

func (c *consoleSender) SendError(message string, err error) {
	c.SendLog(fmt.Sprintf("%s: %v", message, err), "error")
}
