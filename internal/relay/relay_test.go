package relay

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acheong08/credscore/internal/analysis"
)

func newRelay(target string, timeout time.Duration) *Relay {
	rl := New(target, timeout, analysis.DefaultStatusPolicy(), nil)
	rl.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return rl
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestRelayForwardsSuccess(t *testing.T) {
	var forwarded map[string]string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Forwarded-For"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&forwarded))
		_, _ = io.WriteString(w, `{"credibility_score": 77, "explanation": "ok"}`)
	}))
	defer backend.Close()

	rec, out := post(t, newRelay(backend.URL, time.Second), `{"content": "  hello world  "}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "hello world", forwarded["content"])
	assert.Equal(t, float64(77), out["credibility_score"])
	assert.Equal(t, "ok", out["explanation"])

	meta, ok := out["_proxy"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "credscore-relay", meta["via"])
	assert.Equal(t, float64(200), meta["backend_status"])
	assert.Equal(t, "2025-01-02T03:04:05Z", meta["timestamp"])
}

func TestRelayRequestValidation(t *testing.T) {
	rl := newRelay("http://127.0.0.1:1", time.Second)

	tests := []struct {
		name string
		body string
	}{
		{"no content", `{}`},
		{"blank content", `{"content": "   "}`},
		{"not json", `content=hello`},
		{"wrong type", `{"content": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := post(t, rl, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, out["error"])
			assert.Nil(t, out["fallback"])
		})
	}
}

func TestRelayMethods(t *testing.T) {
	rl := newRelay("http://127.0.0.1:1", time.Second)

	rec := httptest.NewRecorder()
	rl.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/analyze", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))

	rec = httptest.NewRecorder()
	rl.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRelayBackendErrors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		wantFallback bool
	}{
		{"server error", http.StatusInternalServerError, true},
		{"unavailable", http.StatusServiceUnavailable, true},
		{"not found", http.StatusNotFound, true},
		{"bad request", http.StatusBadRequest, false},
		{"rate limited", http.StatusTooManyRequests, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, "backend says no")
			}))
			defer backend.Close()

			rec, out := post(t, newRelay(backend.URL, time.Second), `{"content": "x"}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, fmt.Sprintf("Backend API error: %d", tt.status), out["error"])
			assert.Equal(t, "backend says no", out["details"])
			if tt.wantFallback {
				assert.Equal(t, true, out["fallback"])
			} else {
				assert.Nil(t, out["fallback"])
			}
		})
	}
}

func TestRelayTimeout(t *testing.T) {
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer backend.Close()
	defer close(release)

	rec, out := post(t, newRelay(backend.URL, 50*time.Millisecond), `{"content": "x"}`)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, true, out["fallback"])
}

func TestRelayBackendUnreachable(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	url := backend.URL
	backend.Close()

	rec, out := post(t, newRelay(url, time.Second), `{"content": "x"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Backend API unavailable", out["error"])
	assert.Equal(t, true, out["fallback"])
}

// The analyzer pointed at the relay sees the same classification it would
// see talking to the backend directly.
func TestAnalyzerThroughRelay(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer backend.Close()

	front := httptest.NewServer(newRelay(backend.URL, time.Second))
	defer front.Close()

	outcome, err := analysis.New(front.URL).Analyze(t.Context(), "claim")
	require.NoError(t, err)
	assert.True(t, outcome.IsSynthetic)
}

func TestRelayPassesBackendMessage(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": "Content exceeds 5000 characters"}`)
	}))
	defer backend.Close()

	rec, out := post(t, newRelay(backend.URL, time.Second), `{"content": "x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Content exceeds 5000 characters", out["error"])
	assert.Equal(t, `{"error": "Content exceeds 5000 characters"}`, out["details"])
	assert.Nil(t, out["fallback"])
}

func TestAnalyzerThroughRelayKeepsBackendMessage(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    error
		message string
	}{
		{
			name:    "rejected",
			status:  http.StatusBadRequest,
			body:    `{"error": "Content exceeds 5000 characters"}`,
			kind:    analysis.ErrUpstreamRejected,
			message: "Content exceeds 5000 characters",
		},
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"message": "Slow down, try again in a minute"}`,
			kind:    analysis.ErrRateLimited,
			message: "Slow down, try again in a minute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer backend.Close()

			front := httptest.NewServer(newRelay(backend.URL, time.Second))
			defer front.Close()

			_, err := analysis.New(front.URL).Analyze(t.Context(), "claim")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.message, analysis.UserMessage(err))
		})
	}
}
