package websocket

import (
	"context"

	"nyan-bot/pkg/sequencer"

	"github.com/gofiber/websocket/v2"
)

// Asker is the part of the bot service the chat transport needs.
type Asker interface {
	Ask(ctx context.Context, requester string, target sequencer.ReplyTarget, query string) (sequencer.Admission, error)
}

// ServeWs handles websocket requests from the peer.
func ServeWs(hub *Hub, c *websocket.Conn, userID string, asker Asker) {
	client := newClient(hub, c, userID)
	if !hub.Register(client) {
		return
	}

	go client.writePump()
	client.readPump(asker) // Run readPump in current goroutine (handler)
}
