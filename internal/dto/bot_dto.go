package dto

import "time"

type BotStatusResponse struct {
	Busy        bool   `json:"busy"`
	QueueDepth  int    `json:"queue_depth"`
	StyleMode   bool   `json:"style_mode"`
	Served      int64  `json:"served"`
	Failed      int64  `json:"failed"`
	Connections int    `json:"ws_connections"`
	Provider    string `json:"provider"`
}

type StyleModeRequest struct {
	Status string `json:"status" validate:"required,oneof=on off"`
}

type StyleModeResponse struct {
	StyleMode bool   `json:"style_mode"`
	Message   string `json:"message"`
}

type UsageResponse struct {
	Requester  string     `json:"requester"`
	Completed  int64      `json:"completed"`
	Failed     int64      `json:"failed"`
	Queued     int64      `json:"queued"`
	Rejected   int64      `json:"rejected"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

type LogListRequest struct {
	Level  string `query:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}
