package analysis

import (
	"errors"
	"fmt"
)

// User-facing errors. Anything else that goes wrong during an analysis is
// absorbed and turned into a synthetic outcome.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrUpstreamRejected = errors.New("analysis request rejected")
	ErrRateLimited      = errors.New("rate limited")
)

// ErrRejectedPayload is returned by Normalize when the scorer's response
// does not carry a usable credibility score.
var ErrRejectedPayload = errors.New("unusable scorer payload")

// UpstreamError is a non-success response the caller has to act on
type UpstreamError struct {
	Status  int
	Message string
	kind    error // ErrUpstreamRejected or ErrRateLimited
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%v (status %d): %s", e.kind, e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.kind
}

// Code is a stable identifier for the error class, used on the wire
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUpstreamRejected):
		return "upstream_rejected"
	default:
		return "internal"
	}
}

// UserMessage returns the text to show for a user-facing error
func UserMessage(err error) string {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Message
	}
	return err.Error()
}
