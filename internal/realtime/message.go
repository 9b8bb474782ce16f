package realtime

import "encoding/json"

// Message is the envelope for every inbound frame. Payload carries the
// structured body; Message carries plain-text bodies (alerts).
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Message string          `json:"message"`
}

const (
	MetricsUpdateEvent = "metrics_update"
	AlertEvent         = "alert"
	UserFlaggedEvent   = "user_flagged"
	TradePlacedEvent   = "trade_placed"
	PongEvent          = "pong"
)
