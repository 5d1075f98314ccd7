package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The web client is served from anywhere
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Server exposes analysis over WebSocket and a small HTTP API
type Server struct {
	scorer          Scorer
	extractor       TextExtractor
	history         History
	relay           http.Handler
	defaultLanguage string
	logger          *zap.Logger
}

// Deps are the collaborators a Server needs. Extractor and Relay are
// optional.
type Deps struct {
	Scorer          Scorer
	Extractor       TextExtractor
	History         History
	Relay           http.Handler
	DefaultLanguage string
	Logger          *zap.Logger
}

// New creates a server
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		scorer:          deps.Scorer,
		extractor:       deps.Extractor,
		history:         deps.History,
		relay:           deps.Relay,
		defaultLanguage: deps.DefaultLanguage,
		logger:          logger,
	}
}

// Handler routes all endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/ws", s.serveWs)
	mux.HandleFunc("GET /api/history", s.serveHistory)
	if s.relay != nil {
		mux.Handle("/api/analyze", s.relay)
	}
	return mux
}

func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	client := newClient(conn, s)

	// Start goroutines for reading and writing
	go client.writePump()
	go client.readPump()
}

func (s *Server) serveHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.history.List(r.Context())
	writeJSON(w, http.StatusOK, HistoryPayload{Entries: entries})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
