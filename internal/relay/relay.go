package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/acheong08/credscore/internal/analysis"
)

// maxRequestBytes caps the body accepted from clients
const maxRequestBytes = 1 << 20

// Relay forwards analysis requests to the scorer from the same origin as
// the web client, and turns backend trouble into responses marked with
// "fallback": true.
type Relay struct {
	target     string
	timeout    time.Duration
	policy     analysis.StatusPolicy
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a relay to target
func New(target string, timeout time.Duration, policy analysis.StatusPolicy, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		target:     target,
		timeout:    timeout,
		policy:     policy,
		httpClient: &http.Client{},
		logger:     logger,
		now:        time.Now,
	}
}

type relayRequest struct {
	Content *string `json:"content"`
}

type errorBody struct {
	Error    string `json:"error"`
	Details  string `json:"details,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

type proxyMeta struct {
	Timestamp     string `json:"timestamp"`
	Via           string `json:"via"`
	BackendStatus int    `json:"backend_status"`
}

func (rl *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed. Use POST."})
		return
	}

	var req relayRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&req); err != nil || req.Content == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "Invalid request body. Content is required.",
			Details: "Please provide content in the request body",
		})
		return
	}
	content := strings.TrimSpace(*req.Content)
	if content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "Invalid content provided",
			Details: "Content must be a non-empty string",
		})
		return
	}

	rl.forward(r.Context(), w, r, content)
}

func (rl *Relay) forward(ctx context.Context, w http.ResponseWriter, r *http.Request, content string) {
	ctx, cancel := context.WithTimeout(ctx, rl.timeout)
	defer cancel()

	body, _ := json.Marshal(map[string]string{"content": content})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rl.target, bytes.NewReader(body))
	if err != nil {
		rl.fail(w, http.StatusInternalServerError, "Proxy server error", err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "credscore-relay/1.0")
	req.Header.Set("X-Forwarded-For", headerOr(r, "X-Forwarded-For", clientIP(r)))
	req.Header.Set("X-Real-IP", headerOr(r, "X-Real-IP", clientIP(r)))

	rl.logger.Debug("Forwarding to backend", zap.String("target", rl.target), zap.Int("bytes", len(content)))

	resp, err := rl.httpClient.Do(req)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			rl.fail(w, http.StatusGatewayTimeout, "Backend request timeout", "The backend API took too long to respond")
		case isUnreachable(err):
			rl.fail(w, http.StatusBadGateway, "Backend API unavailable", "Could not connect to the backend service")
		default:
			rl.fail(w, http.StatusInternalServerError, "Proxy server error", err.Error())
		}
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		rl.fail(w, http.StatusBadGateway, "Backend response unreadable", err.Error())
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rl.logger.Warn("Backend API error", zap.Int("status", resp.StatusCode), zap.ByteString("body", data))
		msg := analysis.UpstreamMessage(data)
		if msg == "" {
			msg = fmt.Sprintf("Backend API error: %d", resp.StatusCode)
		}
		writeJSON(w, resp.StatusCode, errorBody{
			Error:    msg,
			Details:  string(data),
			Fallback: rl.policy.Classify(resp.StatusCode) == analysis.Recoverable,
		})
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		// Not an object: pass it through untouched and let the client decide
		w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(data)
		return
	}
	payload["_proxy"] = proxyMeta{
		Timestamp:     rl.now().UTC().Format(time.RFC3339),
		Via:           "credscore-relay",
		BackendStatus: resp.StatusCode,
	}
	writeJSON(w, http.StatusOK, payload)
}

func (rl *Relay) fail(w http.ResponseWriter, status int, msg, details string) {
	rl.logger.Warn("Relay failure", zap.Int("status", status), zap.String("error", msg), zap.String("details", details))
	writeJSON(w, status, errorBody{Error: msg, Details: details, Fallback: true})
}

func isUnreachable(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

func setCORSHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept, Origin")
	h.Set("Access-Control-Max-Age", "86400")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func headerOr(r *http.Request, key, fallback string) string {
	if v := r.Header.Get(key); v != "" {
		return v
	}
	return fallback
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "unknown"
	}
	return host
}
