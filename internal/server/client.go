package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pingInterval   = 30 * time.Second
	maxMessageSize = 16 << 20 // room for a base64 image
)

// Client represents a connected WebSocket client
type Client struct {
	conn    *websocket.Conn
	send    chan Message
	session *Session
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// One analysis at a time
	mu        sync.Mutex
	analyzing bool
	wg        sync.WaitGroup
}

func newClient(conn *websocket.Conn, srv *Server) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:   conn,
		send:   make(chan Message, 256),
		logger: srv.logger.With(zap.String("remote", conn.RemoteAddr().String())),
		ctx:    ctx,
		cancel: cancel,
	}
	c.session = NewSession(srv.scorer, srv.extractor, srv.history, srv.defaultLanguage, c, c.logger)
	return c
}

func (c *Client) SendMessage(msg Message) {
	select {
	case c.send <- msg:
	default:
		// Channel full, drop message
		c.logger.Warn("Message channel full, dropping message", zap.String("type", string(msg.Type)))
	}
}

func (c *Client) SendLog(message, level string) {
	c.SendMessage(NewLogMessage(message, level))
}

func (c *Client) SendProgress(percent int, stage, message string) {
	c.SendMessage(NewProgressMessage(percent, stage, message))
}

func (c *Client) SendError(message string, err error) {
	c.SendMessage(NewErrorMessage(message, err))
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn("Error writing message", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		// Cancel any running analysis and let it finish before closing send
		c.cancel()
		c.wg.Wait()
		close(c.send)
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket error", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case TypeAnalyze:
			c.handleAnalyze(msg)
		case TypeHistory:
			c.SendMessage(NewHistoryMessage(c.session.Recent(c.ctx)))
		case TypePing:
			c.SendMessage(Message{Type: TypePong})
		default:
			c.SendError(fmt.Sprintf("Unknown message type: %s", msg.Type), nil)
		}
	}
}

func (c *Client) handleAnalyze(msg Message) {
	payload, err := ParseAnalyzePayload(msg)
	if err != nil {
		c.SendError("Failed to parse analyze request", err)
		return
	}
	image, err := payload.DecodeImage()
	if err != nil {
		c.SendError("Failed to read image", err)
		return
	}

	c.mu.Lock()
	if c.analyzing {
		c.mu.Unlock()
		c.SendError("Analysis already in progress", nil)
		return
	}
	c.analyzing = true
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer func() {
			c.mu.Lock()
			c.analyzing = false
			c.mu.Unlock()
			c.wg.Done()
		}()
		c.runAnalysis(Request{Content: payload.Content, Image: image, Language: payload.Language})
	}()
}

func (c *Client) runAnalysis(req Request) {
	entry, err := c.session.Run(c.ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.logger.Info("Analysis cancelled")
			return
		}
		c.SendError("Analysis failed", err)
		return
	}

	c.SendMessage(NewResultMessage(entry))
	c.SendMessage(NewCompleteMessage(true, "Analysis complete"))
}
