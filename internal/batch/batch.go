// Package batch scores many pieces of content with a bounded worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/acheong08/credscore/internal/analysis"
	"github.com/acheong08/credscore/pkg/models"
)

// DefaultConcurrency is how many items are scored at once
const DefaultConcurrency = 4

// ErrCancelled marks items never sent because the run stopped early
var ErrCancelled = errors.New("cancelled due to previous error")

// Scorer produces an outcome for a piece of content
type Scorer interface {
	Analyze(ctx context.Context, content string) (models.Outcome, error)
}

// ProgressCallback is called as each item finishes
type ProgressCallback func(done, total int, result Result)

// Result holds the outcome of scoring a single item
type Result struct {
	Index   int
	Content string
	Outcome models.Outcome
	Error   error
}

// Runner scores items concurrently. A rate-limit rejection stops the run:
// items not yet started are reported with ErrCancelled.
type Runner struct {
	scorer      Scorer
	concurrency int
	progressCb  ProgressCallback
	logger      *zap.Logger
}

// NewRunner creates a runner. concurrency <= 0 uses DefaultConcurrency.
func NewRunner(scorer Scorer, concurrency int, progressCb ProgressCallback, logger *zap.Logger) *Runner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		scorer:      scorer,
		concurrency: concurrency,
		progressCb:  progressCb,
		logger:      logger,
	}
}

type workItem struct {
	index   int
	content string
}

// Run scores every item and returns the results in input order. The error
// is the first rate-limit failure, if any; other per-item errors are only
// recorded in their Result.
func (r *Runner) Run(ctx context.Context, items []string) ([]Result, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no content to analyze")
	}

	// Create a cancellable context for early termination
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workChan := make(chan workItem, len(items))
	resultChan := make(chan Result, len(items))

	for i, content := range items {
		workChan <- workItem{index: i, content: content}
	}
	close(workChan)

	var wg sync.WaitGroup
	for i := 0; i < min(r.concurrency, len(items)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx, workChan, resultChan)
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]Result, len(items))
	var stopErr error
	done := 0
	for result := range resultChan {
		done++
		if stopErr == nil && errors.Is(result.Error, analysis.ErrRateLimited) {
			stopErr = result.Error
			// Further requests would be rejected the same way
			cancel()
		}
		results[result.Index] = result
		if r.progressCb != nil {
			r.progressCb(done, len(items), result)
		}
	}

	r.logger.Debug("Batch finished", zap.Int("items", len(items)), zap.Bool("stopped", stopErr != nil))
	return results, stopErr
}

// worker scores items from the work channel
func (r *Runner) worker(ctx context.Context, workChan <-chan workItem, resultChan chan<- Result) {
	for item := range workChan {
		result := Result{Index: item.index, Content: strings.TrimSpace(item.content)}

		// Check if context is cancelled before starting the request
		select {
		case <-ctx.Done():
			result.Error = ErrCancelled
			resultChan <- result
			continue
		default:
		}

		result.Outcome, result.Error = r.scorer.Analyze(ctx, item.content)
		resultChan <- result
	}
}

// Summary counts results by kind
type Summary struct {
	Scored    int
	Estimated int // synthetic outcomes
	Failed    int
}

// Summarize counts results
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch {
		case r.Error != nil:
			s.Failed++
		case r.Outcome.IsSynthetic:
			s.Estimated++
		default:
			s.Scored++
		}
	}
	return s
}

// SplitItems splits text into items separated by blank lines
func SplitItems(text string) []string {
	var items []string
	var current []string
	flush := func() {
		if item := strings.TrimSpace(strings.Join(current, "\n")); item != "" {
			items = append(items, item)
		}
		current = current[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return items
}
