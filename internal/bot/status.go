package bot

// Position is a block-coordinate triple.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Status is the externally visible snapshot of one session. It is a plain
// value: callers always receive a well-formed Status, never a nil.
type Status struct {
	// Connected reports whether the session's connection is live.
	Connected bool `json:"connected"`
	// Message is a human-readable description of the current state.
	Message string `json:"message"`
	// Health is the latest reported health value.
	Health int `json:"health"`
	// Food is the latest reported food value.
	Food int `json:"food"`
	// Position is the latest reported entity position.
	Position Position `json:"position"`
	// ChatLog holds the most recent chat lines, oldest first, capped.
	ChatLog []string `json:"chat_log"`
	// AutoChatActive reports whether the auto-message timer is armed.
	AutoChatActive bool `json:"auto_chat_active"`
	// AutoChatText is the configured auto-message text, if any.
	AutoChatText string `json:"auto_chat_text,omitempty"`
	// AutoChatInterval is the auto-message period in seconds, if any.
	AutoChatInterval int `json:"auto_chat_interval_seconds,omitempty"`
}

// State messages surfaced through Status.Message.
const (
	msgConnecting   = "connecting"
	msgConnected    = "connected"
	msgConnError    = "connection error"
	msgKickedPrefix = "kicked: "
	msgDisconnected = "disconnected"
	msgStopped      = "stopped"
	msgOffline      = "offline"
)

// Offline returns the canonical snapshot for a key with no live session.
//
// Postcondition: Connected is false, numeric fields are zero, ChatLog is
// empty but non-nil.
func Offline() Status {
	return Status{
		Message: msgOffline,
		ChatLog: []string{},
	}
}
