package websocket

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	// EventTick carries the recomputed remaining time, once per second.
	EventTick Event = "tick"
	// EventReminder fires once per configured threshold as the remaining
	// time crosses it.
	EventReminder Event = "reminder"
	// EventExpired marks the deadline. The client locks all inputs.
	EventExpired Event = "expired"
	// EventSubmitted confirms a delivered pack (manual or forced).
	EventSubmitted Event = "submitted"
	EventError     Event = "error"
)

// TimerEvent is the payload published on a session's event channel and
// relayed to the WebSocket client.
type TimerEvent struct {
	Event       Event  `json:"event"`
	SessionID   string `json:"session_id"`
	RemainingMs int64  `json:"remaining_ms"`
	// ThresholdMs is set for reminder events only: the crossed threshold.
	ThresholdMs int64 `json:"threshold_ms,omitempty"`
	// EarlySubmit is set for submitted events only.
	EarlySubmit bool `json:"early_submit,omitempty"`
}

// ErrorResponse is sent directly over the socket, never via pub/sub.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
