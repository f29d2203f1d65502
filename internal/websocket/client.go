package websocket

import (
	"context"
	"encoding/json"
	"time"

	"emotion-diary-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

// Frame is one server-to-client message.
type Frame struct {
	Type    string      `json:"type"`
	Status  int         `json:"status,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Frame types.
const (
	FrameTurn  = "turn"
	FrameError = "error"
)

// TurnFunc answers one user utterance.
type TurnFunc func(ctx context.Context, text string) Frame

type inbound struct {
	Text string `json:"text"`
}

// Client is one chat connection bound to a session. Utterances are answered
// one at a time, in the order they arrive.
type Client struct {
	Conn      *websocket.Conn
	SessionID string
	Send      chan []byte

	handle TurnFunc
	logger logger.ILogger
}

// ServeWs runs the connection until the peer goes away.
func ServeWs(c *websocket.Conn, sessionID string, handle TurnFunc, log logger.ILogger) {
	client := &Client{
		Conn:      c,
		SessionID: sessionID,
		Send:      make(chan []byte, 16),
		handle:    handle,
		logger:    log,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		client.writePump()
	}()
	client.readPump()
	<-done
}

// readPump reads utterances and queues the replies.
func (c *Client) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		close(c.Send)
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WS", "Unexpected close", map[string]interface{}{
					"session_id": c.SessionID,
					"error":      err.Error(),
				})
			}
			return
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg inbound
		frame := Frame{Type: FrameError, Status: 400, Message: "message must be JSON {\"text\": ...}"}
		if err := json.Unmarshal(raw, &msg); err == nil {
			frame = c.handle(ctx, msg.Text)
		}

		data, err := json.Marshal(frame)
		if err != nil {
			c.logger.Error("WS", "Failed to encode frame", map[string]interface{}{"error": err})
			continue
		}
		c.Send <- data
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.drain()
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.drain()
				return
			}
		}
	}
}

// drain discards frames after a write failure so readPump never blocks.
func (c *Client) drain() {
	c.Conn.Close()
	for range c.Send {
	}
}
