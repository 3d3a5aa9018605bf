// Package bot provides the multi-tenant bot session core: the registry of
// live game-server connections, per-session state tracking, auto-messaging,
// and the adapter contract the wire-protocol client must satisfy.
package bot

import "context"

// Target identifies the game server and identity a connection should use.
type Target struct {
	Host     string
	Port     int
	Username string
	Version  string
}

// Conn is one live connection to a game server. Implementations own the wire
// protocol; the session core only sends chat lines and consumes events.
type Conn interface {
	// Send transmits one chat line (or slash command) to the server.
	Send(text string) error
	// Events returns the connection's event stream. The channel is closed
	// after the terminal Ended event.
	Events() <-chan Event
	// Close tears the connection down. Close is idempotent and triggers the
	// terminal Ended event asynchronously.
	Close() error
}

// Connector opens connections to game servers. Open may block on dialing;
// the session core always calls it from a dedicated goroutine.
type Connector interface {
	Open(ctx context.Context, target Target) (Conn, error)
}
