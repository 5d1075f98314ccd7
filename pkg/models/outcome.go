package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome is the canonical result of a credibility analysis
type Outcome struct {
	CredibilityScore int      `json:"credibilityScore"` // 0-100
	RedFlags         []string `json:"redFlags"`         // detection order
	Explanation      string   `json:"explanation"`
	IsSynthetic      bool     `json:"isSynthetic"` // produced locally, not by the scorer
}

// HistoryEntry is an Outcome plus where and when it came from
type HistoryEntry struct {
	Outcome
	ID        string    `json:"id"`      // UUIDv7, sorts in generation order
	Content   string    `json:"content"` // the analyzed text
	CreatedAt time.Time `json:"createdAt"`
	Language  string    `json:"language"` // BCP 47 tag
}

// NewHistoryEntry wraps an outcome for storage
func NewHistoryEntry(outcome Outcome, content, language string, now time.Time) (HistoryEntry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to generate entry id: %w", err)
	}

	flags := make([]string, len(outcome.RedFlags))
	copy(flags, outcome.RedFlags)
	outcome.RedFlags = flags

	return HistoryEntry{
		Outcome:   outcome,
		ID:        id.String(),
		Content:   content,
		CreatedAt: now,
		Language:  language,
	}, nil
}
