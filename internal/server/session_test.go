package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acheong08/credscore/internal/analysis"
	"github.com/acheong08/credscore/internal/extract"
	"github.com/acheong08/credscore/internal/history"
	"github.com/acheong08/credscore/pkg/models"
)

type stubScorer struct {
	outcome models.Outcome
	err     error
	content string
}

func (s *stubScorer) Analyze(_ context.Context, content string) (models.Outcome, error) {
	s.content = content
	return s.outcome, s.err
}

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) ExtractText(context.Context, []byte) (string, error) {
	return s.text, s.err
}

type failingHistory struct{}

func (failingHistory) Append(context.Context, models.HistoryEntry) error {
	return errors.New("disk full")
}

func (failingHistory) List(context.Context) []models.HistoryEntry { return nil }

// recordingSender collects everything a session reports
type recordingSender struct {
	mu       sync.Mutex
	messages []Message
	logs     []LogPayload
	progress []ProgressPayload
}

func (r *recordingSender) SendMessage(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recordingSender) SendLog(message, level string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, LogPayload{Message: message, Level: level})
}

func (r *recordingSender) SendProgress(percent int, stage, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, ProgressPayload{Percent: percent, Stage: stage, Message: message})
}

func (r *recordingSender) SendError(message string, err error) {
	r.SendMessage(NewErrorMessage(message, err))
}

func (r *recordingSender) levels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var levels []string
	for _, l := range r.logs {
		levels = append(levels, l.Level)
	}
	return levels
}

func TestSessionRun(t *testing.T) {
	scorer := &stubScorer{outcome: models.Outcome{CredibilityScore: 82, RedFlags: []string{}, Explanation: "fine"}}
	store := history.NewStore(history.NewMemorySlot())
	sender := &recordingSender{}
	s := NewSession(scorer, nil, store, "en", sender, nil)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	entry, err := s.Run(context.Background(), Request{Content: "  The moon is made of cheese ", Language: "hi-IN"})
	require.NoError(t, err)

	assert.Equal(t, 82, entry.CredibilityScore)
	assert.Equal(t, "The moon is made of cheese", entry.Content)
	assert.Equal(t, "hi", entry.Language)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), entry.CreatedAt)
	assert.Equal(t, "The moon is made of cheese", scorer.content)

	recent := s.Recent(context.Background())
	require.Len(t, recent, 1)
	assert.Equal(t, entry.ID, recent[0].ID)

	require.NotEmpty(t, sender.progress)
	assert.Equal(t, 100, sender.progress[len(sender.progress)-1].Percent)
	assert.Contains(t, sender.levels(), "success")
}

func TestSessionCombinesImageText(t *testing.T) {
	scorer := &stubScorer{outcome: models.Outcome{CredibilityScore: 50}}
	ext := &stubExtractor{text: "text from screenshot"}
	s := NewSession(scorer, ext, history.NewStore(history.NewMemorySlot()), "en", &recordingSender{}, nil)

	entry, err := s.Run(context.Background(), Request{Content: "caption", Image: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, "caption\n\ntext from screenshot", scorer.content)
	assert.Equal(t, scorer.content, entry.Content)
	assert.Equal(t, "en", entry.Language)
}

func TestSessionErrors(t *testing.T) {
	rejected := &analysis.UpstreamError{Status: 401, Message: "bad key"}

	tests := []struct {
		name      string
		scorer    *stubScorer
		extractor TextExtractor
		image     []byte
		expected  error
	}{
		{"scorer rejects", &stubScorer{err: rejected}, nil, nil, rejected},
		{"image without extractor", &stubScorer{}, nil, []byte{1}, extract.ErrExtractionUnavailable},
		{"extraction fails", &stubScorer{}, &stubExtractor{err: extract.ErrNotImage}, []byte{1}, extract.ErrNotImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := history.NewStore(history.NewMemorySlot())
			s := NewSession(tt.scorer, tt.extractor, store, "en", &recordingSender{}, nil)

			_, err := s.Run(context.Background(), Request{Content: "x", Image: tt.image})
			assert.ErrorIs(t, err, tt.expected)
			assert.Empty(t, store.List(context.Background()))
		})
	}
}

func TestSessionWarnsOnSyntheticOutcome(t *testing.T) {
	scorer := &stubScorer{outcome: models.Outcome{CredibilityScore: 45, IsSynthetic: true}}
	sender := &recordingSender{}
	s := NewSession(scorer, nil, history.NewStore(history.NewMemorySlot()), "en", sender, nil)

	entry, err := s.Run(context.Background(), Request{Content: "x"})
	require.NoError(t, err)
	assert.True(t, entry.IsSynthetic)
	assert.Contains(t, sender.levels(), "warning")
}

func TestSessionKeepsResultWhenSaveFails(t *testing.T) {
	scorer := &stubScorer{outcome: models.Outcome{CredibilityScore: 70}}
	sender := &recordingSender{}
	s := NewSession(scorer, nil, failingHistory{}, "en", sender, nil)

	entry, err := s.Run(context.Background(), Request{Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, 70, entry.CredibilityScore)
	assert.Contains(t, sender.levels(), "warning")
}
