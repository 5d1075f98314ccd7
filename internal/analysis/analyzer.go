package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/acheong08/credscore/pkg/models"
)

// DefaultTimeout bounds a single analysis request
const DefaultTimeout = 15 * time.Second

// maxBodyBytes caps how much of a scorer response is read
const maxBodyBytes = 1 << 20

// Analyzer calls the remote credibility scorer and always hands back either
// an outcome or a user-facing error.
type Analyzer struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	policy     StatusPolicy
	fallback   *FallbackGenerator
	logger     *zap.Logger
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithHTTPClient sets the client used to reach the scorer
func WithHTTPClient(c *http.Client) Option {
	return func(a *Analyzer) { a.httpClient = c }
}

// WithTimeout sets the per-request time budget
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) { a.timeout = d }
}

// WithStatusPolicy overrides how non-success statuses are classified
func WithStatusPolicy(p StatusPolicy) Option {
	return func(a *Analyzer) { a.policy = p }
}

// WithFallbackGenerator sets the generator used for synthetic outcomes
func WithFallbackGenerator(g *FallbackGenerator) Option {
	return func(a *Analyzer) { a.fallback = g }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// New creates an Analyzer for endpoint, which may be the scorer itself or a
// relay in front of it.
func New(endpoint string, opts ...Option) *Analyzer {
	a := &Analyzer{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		policy:     DefaultStatusPolicy(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.fallback == nil {
		a.fallback = NewFallbackGenerator(nil)
	}
	return a
}

// Analyze scores content. It returns ErrInvalidInput for blank content,
// an *UpstreamError for rejected or rate-limited requests, and a synthetic
// outcome for every other failure. If ctx itself is cancelled or passes its
// deadline, ctx.Err() is returned instead of a synthetic outcome; only the
// analyzer's own timeout degrades to one.
func (a *Analyzer) Analyze(ctx context.Context, content string) (models.Outcome, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Outcome{}, fmt.Errorf("%w: content is empty", ErrInvalidInput)
	}

	deadline := NewDeadline(ctx, a.timeout)
	defer deadline.Cancel()

	start := time.Now()
	outcome, err := a.score(deadline.Context(), content)
	switch {
	case err == nil:
		a.logger.Debug("Scorer returned outcome",
			zap.Int("score", outcome.CredibilityScore),
			zap.Int("red_flags", len(outcome.RedFlags)),
			zap.Duration("elapsed", time.Since(start)))
		return outcome, nil
	case errors.Is(err, ErrUpstreamRejected), errors.Is(err, ErrRateLimited):
		a.logger.Info("Scorer refused request", zap.Error(err))
		return models.Outcome{}, err
	case ctx.Err() != nil:
		// The caller gave up; nobody is waiting for a fallback
		return models.Outcome{}, ctx.Err()
	default:
		a.logger.Warn("Scorer unusable, using fallback outcome",
			zap.Error(err),
			zap.Bool("timed_out", deadline.Expired()),
			zap.Duration("elapsed", time.Since(start)))
		return a.fallback.Generate(), nil
	}
}

// score performs the request. Errors other than *UpstreamError are
// recoverable.
func (a *Analyzer) score(ctx context.Context, content string) (models.Outcome, error) {
	body, err := json.Marshal(scoreRequest{Content: content})
	if err != nil {
		return models.Outcome{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.Outcome{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return models.Outcome{}, fmt.Errorf("failed to reach scorer: %w", err)
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Outcome{}, a.classify(resp.StatusCode, data)
	}
	if readErr != nil {
		return models.Outcome{}, fmt.Errorf("failed to read response: %w", readErr)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Outcome{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return Normalize(raw)
}

// classify turns a non-success response into either a user-facing
// *UpstreamError or a plain (recoverable) error.
func (a *Analyzer) classify(status int, body []byte) error {
	var errBody map[string]any
	_ = json.Unmarshal(body, &errBody)

	if marker, _ := errBody[fieldFallbackMarker].(bool); marker {
		return fmt.Errorf("relay reported recoverable failure: status %d", status)
	}

	switch a.policy.Classify(status) {
	case Rejected:
		msg := upstreamMessage(errBody)
		if msg == "" {
			msg = fmt.Sprintf("The analysis service could not process this request (status %d).", status)
		}
		return &UpstreamError{Status: status, Message: msg, kind: ErrUpstreamRejected}
	case RateLimited:
		msg := upstreamMessage(errBody)
		if msg == "" {
			msg = "Too many analysis requests. Please wait a moment and try again."
		}
		return &UpstreamError{Status: status, Message: msg, kind: ErrRateLimited}
	default:
		return fmt.Errorf("scorer returned status %d", status)
	}
}

// UpstreamMessage returns the human-readable message in a scorer error body,
// or "" when the body is not a JSON object carrying one.
func UpstreamMessage(body []byte) string {
	var errBody map[string]any
	if err := json.Unmarshal(body, &errBody); err != nil {
		return ""
	}
	return upstreamMessage(errBody)
}

func upstreamMessage(body map[string]any) string {
	for _, key := range []string{"error", "message", "detail", "details"} {
		if s, ok := body[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
