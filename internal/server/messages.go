package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/acheong08/credscore/internal/analysis"
	"github.com/acheong08/credscore/pkg/models"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	// Client -> Server
	TypeAnalyze MessageType = "analyze" // Client sends text and/or an image to analyze
	TypeHistory MessageType = "history" // Client asks for recent results
	TypePing    MessageType = "ping"    // Keep-alive

	// Server -> Client
	TypeProgress MessageType = "progress" // Progress updates
	TypeLog      MessageType = "log"      // Log messages for terminal
	TypeResult   MessageType = "result"   // Finished analysis
	TypeComplete MessageType = "complete" // Analysis complete
	TypeError    MessageType = "error"    // Error message
	TypePong     MessageType = "pong"
)

// Message is the base WebSocket message structure
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AnalyzePayload sent by client to start analysis
type AnalyzePayload struct {
	Content  string `json:"content"`            // Manually entered text
	Image    string `json:"image,omitempty"`    // Base64 image, optional
	Language string `json:"language,omitempty"` // Requested locale, e.g. "hi-IN"
}

// ProgressPayload for progress bar updates
type ProgressPayload struct {
	Percent int    `json:"percent"` // 0-100
	Stage   string `json:"stage"`   // "extract", "analyze", "history"
	Message string `json:"message"`
}

// LogPayload for terminal output
type LogPayload struct {
	Message string `json:"message"`
	Level   string `json:"level,omitempty"` // "info", "success", "warning", "error"
}

// ResultPayload carries the recorded entry for a finished analysis
type ResultPayload struct {
	Entry models.HistoryEntry `json:"entry"`
}

// HistoryPayload lists recent entries, newest first
type HistoryPayload struct {
	Entries []models.HistoryEntry `json:"entries"`
}

// CompletePayload sent when analysis is done
type CompletePayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorPayload for error messages
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func newMessage(t MessageType, payload any) Message {
	payloadBytes, _ := json.Marshal(payload)
	return Message{Type: t, Payload: payloadBytes}
}

func NewProgressMessage(percent int, stage, message string) Message {
	return newMessage(TypeProgress, ProgressPayload{Percent: percent, Stage: stage, Message: message})
}

func NewLogMessage(message, level string) Message {
	return newMessage(TypeLog, LogPayload{Message: message, Level: level})
}

func NewResultMessage(entry models.HistoryEntry) Message {
	return newMessage(TypeResult, ResultPayload{Entry: entry})
}

func NewHistoryMessage(entries []models.HistoryEntry) Message {
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	return newMessage(TypeHistory, HistoryPayload{Entries: entries})
}

func NewCompleteMessage(success bool, message string) Message {
	return newMessage(TypeComplete, CompletePayload{Success: success, Message: message})
}

// NewErrorMessage describes err to the user. Errors the user can act on keep
// their own message; anything else is reported under message.
func NewErrorMessage(message string, err error) Message {
	code := analysis.Code(err)
	errMsg := message
	if err != nil && code != "internal" {
		errMsg = analysis.UserMessage(err)
	}
	return newMessage(TypeError, ErrorPayload{Message: errMsg, Code: code})
}

// ParseAnalyzePayload extracts the analyze payload from a message
func ParseAnalyzePayload(msg Message) (*AnalyzePayload, error) {
	var payload AnalyzePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse analyze payload: %w", err)
	}
	return &payload, nil
}

// DecodeImage returns the raw image bytes, or nil when no image was sent.
// Data URLs ("data:image/png;base64,...") are accepted.
func (p *AnalyzePayload) DecodeImage() ([]byte, error) {
	if p.Image == "" {
		return nil, nil
	}
	data := p.Image
	if strings.HasPrefix(data, "data:") {
		if _, encoded, ok := strings.Cut(data, ","); ok {
			data = encoded
		}
	}
	image, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: image is not valid base64", analysis.ErrInvalidInput)
	}
	return image, nil
}
