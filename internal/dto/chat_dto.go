package dto

// Websocket chat frame types.
const (
	FrameAsk        = "ask"
	FrameProcessing = "processing"
	FrameBusy       = "busy"
	FrameAnswer     = "answer"
	FrameError      = "error"
)

// ChatFrame is exchanged in both directions on /ws/chat.
type ChatFrame struct {
	Type      string `json:"type"`
	Query     string `json:"query,omitempty"`
	Text      string `json:"text,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
