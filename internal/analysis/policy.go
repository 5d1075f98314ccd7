package analysis

import "net/http"

// Classification says how the orchestrator treats a non-success status
type Classification int

const (
	// Recoverable failures are answered with a synthetic outcome
	Recoverable Classification = iota
	// Rejected means the request itself was at fault
	Rejected
	// RateLimited means the caller has to slow down
	RateLimited
)

func (c Classification) String() string {
	switch c {
	case Rejected:
		return "rejected"
	case RateLimited:
		return "rate_limited"
	default:
		return "recoverable"
	}
}

// StatusPolicy maps upstream HTTP statuses to a Classification. Statuses not
// listed are Recoverable.
type StatusPolicy struct {
	Rejected    []int `yaml:"rejected"`
	RateLimited []int `yaml:"rate_limited"`
}

// DefaultStatusPolicy treats malformed, unauthorized and oversized requests as
// rejected and 429 as rate limited. 404 and every 5xx are recoverable.
func DefaultStatusPolicy() StatusPolicy {
	return StatusPolicy{
		Rejected: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusRequestEntityTooLarge,
			http.StatusUnprocessableEntity,
		},
		RateLimited: []int{http.StatusTooManyRequests},
	}
}

// Classify returns the classification for status
func (p StatusPolicy) Classify(status int) Classification {
	for _, s := range p.RateLimited {
		if s == status {
			return RateLimited
		}
	}
	for _, s := range p.Rejected {
		if s == status {
			return Rejected
		}
	}
	return Recoverable
}
