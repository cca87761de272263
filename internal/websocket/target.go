package websocket

import (
	"context"

	"nyan-bot/internal/dto"

	"github.com/google/uuid"
)

// ChatTarget delivers the replies of one ask frame to the client that sent it.
type ChatTarget struct {
	client    *Client
	requestID string
}

func NewChatTarget(c *Client) *ChatTarget {
	return &ChatTarget{client: c, requestID: uuid.NewString()}
}

func (t *ChatTarget) RequestID() string {
	return t.requestID
}

func (t *ChatTarget) Acknowledge(ctx context.Context) error {
	return t.client.enqueue(dto.ChatFrame{Type: dto.FrameProcessing, RequestID: t.requestID})
}

func (t *ChatTarget) Deliver(ctx context.Context, text string) error {
	return t.client.enqueue(dto.ChatFrame{Type: dto.FrameAnswer, Text: text, RequestID: t.requestID})
}

func (t *ChatTarget) NotifyBusy(ctx context.Context, text string) error {
	return t.client.enqueue(dto.ChatFrame{Type: dto.FrameBusy, Text: text, RequestID: t.requestID})
}
