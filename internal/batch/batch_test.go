package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/acheong08/credscore/internal/analysis"
	"github.com/acheong08/credscore/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// funcScorer adapts a function to Scorer
type funcScorer func(ctx context.Context, content string) (models.Outcome, error)

func (f funcScorer) Analyze(ctx context.Context, content string) (models.Outcome, error) {
	return f(ctx, content)
}

func TestRunPreservesOrder(t *testing.T) {
	scorer := funcScorer(func(_ context.Context, content string) (models.Outcome, error) {
		// Later items finish first
		time.Sleep(time.Duration(10-len(content)) * time.Millisecond)
		return models.Outcome{CredibilityScore: len(content)}, nil
	})

	items := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	results, err := NewRunner(scorer, 3, nil, nil).Run(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, results, len(items))

	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, items[i], r.Content)
		assert.Equal(t, len(items[i]), r.Outcome.CredibilityScore)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var active, peak atomic.Int32
	scorer := funcScorer(func(context.Context, string) (models.Outcome, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return models.Outcome{}, nil
	})

	items := make([]string, 20)
	for i := range items {
		items[i] = fmt.Sprintf("claim %d", i)
	}
	_, err := NewRunner(scorer, 2, nil, nil).Run(context.Background(), items)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunRecordsItemErrors(t *testing.T) {
	scorer := funcScorer(func(_ context.Context, content string) (models.Outcome, error) {
		if content == "" {
			return models.Outcome{}, analysis.ErrInvalidInput
		}
		return models.Outcome{CredibilityScore: 50, IsSynthetic: content == "offline"}, nil
	})

	results, err := NewRunner(scorer, 2, nil, nil).Run(context.Background(), []string{"ok", "", "offline"})
	require.NoError(t, err)

	assert.NoError(t, results[0].Error)
	assert.ErrorIs(t, results[1].Error, analysis.ErrInvalidInput)
	assert.Equal(t, Summary{Scored: 1, Estimated: 1, Failed: 1}, Summarize(results))
}

func TestRunStopsOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	scorer := funcScorer(func(context.Context, string) (models.Outcome, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return models.Outcome{}, fmt.Errorf("%w: slow down", analysis.ErrRateLimited)
	})

	items := make([]string, 10)
	for i := range items {
		items[i] = "claim"
	}
	results, err := NewRunner(scorer, 1, nil, nil).Run(context.Background(), items)
	require.ErrorIs(t, err, analysis.ErrRateLimited)
	require.Len(t, results, len(items))

	assert.Less(t, calls.Load(), int32(len(items)))
	var cancelled int
	for _, r := range results {
		if errors.Is(r.Error, ErrCancelled) {
			cancelled++
		}
	}
	assert.Positive(t, cancelled)
}

func TestRunReportsProgress(t *testing.T) {
	scorer := funcScorer(func(context.Context, string) (models.Outcome, error) {
		return models.Outcome{CredibilityScore: 80}, nil
	})

	var mu sync.Mutex
	var seen []int
	cb := func(done, total int, _ Result) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 3, total)
		seen = append(seen, done)
	}

	_, err := NewRunner(scorer, 2, cb, nil).Run(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestRunEmpty(t *testing.T) {
	_, err := NewRunner(nil, 0, nil, nil).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestSplitItems(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"empty", "", nil},
		{"single", "one claim", []string{"one claim"}},
		{"blank separated", "first\n\nsecond\n  \nthird", []string{"first", "second", "third"}},
		{"multi line item", "line one\nline two\n\nnext", []string{"line one\nline two", "next"}},
		{"surrounding blanks", "\n\n  claim  \n\n", []string{"claim"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitItems(tt.text))
		})
	}
}
