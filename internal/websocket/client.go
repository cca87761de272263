package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"nyan-bot/internal/dto"
	"nyan-bot/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

var (
	ErrClientGone     = errors.New("websocket client disconnected")
	ErrSendBufferFull = errors.New("websocket send buffer full")
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	ID  uuid.UUID
	Hub *Hub

	// The websocket connection. Nil in tests.
	Conn *websocket.Conn

	// UserID is the subject of the token the connection was opened with.
	UserID string

	// Buffered channel of outbound frames.
	Send chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		ID:     uuid.New(),
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBufferSize),
	}
}

// enqueue never blocks and never panics on a closed client.
func (c *Client) enqueue(frame dto.ChatFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientGone
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// readPump reads ask frames until the connection fails.
func (c *Client) readPump(asker Asker) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn(logger.ModuleWebSocket, "Unexpected close", map[string]interface{}{
					"client_id": c.ID.String(),
					"error":     err.Error(),
				})
			}
			return
		}
		c.handleFrame(context.Background(), asker, data)
	}
}

func (c *Client) handleFrame(ctx context.Context, asker Asker, data []byte) {
	var frame dto.ChatFrame
	if err := json.Unmarshal(data, &frame); err != nil || frame.Type != dto.FrameAsk {
		_ = c.enqueue(dto.ChatFrame{Type: dto.FrameError, Text: "expected {\"type\":\"ask\",\"query\":\"...\"}"})
		return
	}

	target := NewChatTarget(c)
	if _, err := asker.Ask(ctx, c.UserID, target, frame.Query); err != nil {
		_ = c.enqueue(dto.ChatFrame{Type: dto.FrameError, Text: err.Error(), RequestID: target.requestID})
	}
}

// writePump pumps frames from Send to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// one frame per websocket message so clients can parse each as JSON
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
