package server

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/acheong08/credscore/internal/extract"
	"github.com/acheong08/credscore/internal/locale"
	"github.com/acheong08/credscore/pkg/models"
)

// ProgressSender interface for sending progress updates
type ProgressSender interface {
	SendMessage(msg Message)
	SendLog(message, level string)
	SendProgress(percent int, stage, message string)
	SendError(message string, err error)
}

// Scorer produces an outcome for a piece of content
type Scorer interface {
	Analyze(ctx context.Context, content string) (models.Outcome, error)
}

// TextExtractor reads text out of an uploaded image
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// History records and lists finished analyses
type History interface {
	Append(ctx context.Context, entry models.HistoryEntry) error
	List(ctx context.Context) []models.HistoryEntry
}

// Request is one analysis as submitted by a client
type Request struct {
	Content  string
	Image    []byte
	Language string
}

// Session runs analyses for one client: extract, combine, score, record
type Session struct {
	scorer          Scorer
	extractor       TextExtractor
	history         History
	defaultLanguage string
	sender          ProgressSender
	logger          *zap.Logger
	now             func() time.Time
}

// NewSession creates a session reporting to sender. extractor may be nil when
// image uploads are not supported.
func NewSession(scorer Scorer, extractor TextExtractor, history History, defaultLanguage string, sender ProgressSender, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		scorer:          scorer,
		extractor:       extractor,
		history:         history,
		defaultLanguage: defaultLanguage,
		sender:          sender,
		logger:          logger,
		now:             time.Now,
	}
}

// log sends a log message both to the client and to the process logger
func (s *Session) log(message, level string) {
	s.sender.SendLog(message, level)

	switch level {
	case "warning":
		s.logger.Warn(message)
	case "error":
		s.logger.Error(message)
	default:
		s.logger.Info(message, zap.String("level", level))
	}
}

// Run executes one analysis and returns the recorded entry. A failure to
// persist the entry is reported as a warning; the entry is still returned.
func (s *Session) Run(ctx context.Context, req Request) (models.HistoryEntry, error) {
	language := locale.Resolve(req.Language, s.defaultLanguage)

	// Step 1: Extract text from the image, if any (0% - 30%)
	var extracted string
	if len(req.Image) > 0 {
		s.sender.SendProgress(0, "extract", "Reading text from image...")
		if s.extractor == nil {
			return models.HistoryEntry{}, extract.ErrExtractionUnavailable
		}
		text, err := s.extractor.ExtractText(ctx, req.Image)
		if err != nil {
			return models.HistoryEntry{}, fmt.Errorf("failed to extract text: %w", err)
		}
		extracted = text
		s.log(fmt.Sprintf("Extracted %d characters from image", len(extracted)), "info")
	}
	content := extract.Combine(req.Content, extracted)

	// Step 2: Score (30% - 80%)
	s.sender.SendProgress(30, "analyze", "Analyzing content...")
	outcome, err := s.scorer.Analyze(ctx, content)
	if err != nil {
		return models.HistoryEntry{}, err
	}
	if outcome.IsSynthetic {
		s.log("Scoring service unavailable, showing an estimated result", "warning")
	} else {
		s.log(fmt.Sprintf("Credibility score: %d/100", outcome.CredibilityScore), "success")
	}

	// Step 3: Record (80% - 100%)
	s.sender.SendProgress(80, "history", "Saving result...")
	entry, err := models.NewHistoryEntry(outcome, content, language, s.now())
	if err != nil {
		return models.HistoryEntry{}, err
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.log(fmt.Sprintf("Result not saved to history: %v", err), "warning")
	}
	s.sender.SendProgress(100, "history", "Analysis complete")

	return entry, nil
}

// Recent returns the stored history, newest first
func (s *Session) Recent(ctx context.Context) []models.HistoryEntry {
	return s.history.List(ctx)
}
