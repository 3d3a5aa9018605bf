package bot

// Event is a typed occurrence emitted by a Conn. Events for one connection
// are delivered in emission order; no ordering holds across connections.
type Event interface {
	event()
}

// LoginReady signals that the server accepted the login handshake and the
// connection can carry chat commands (the password command in particular).
type LoginReady struct{}

// Spawned signals that the client entity has entered the world. This is the
// transition into the Connected state.
type Spawned struct{}

// HealthChanged carries the latest health and food values.
type HealthChanged struct {
	Health int
	Food   int
}

// PositionChanged carries the latest entity coordinates, rounded to blocks.
type PositionChanged struct {
	X, Y, Z int
}

// ChatReceived carries one chat line observed in-game.
type ChatReceived struct {
	Sender string
	Text   string
}

// Kicked signals that the remote server ejected the client. Terminal.
type Kicked struct {
	Reason string
}

// Errored signals a connection-level failure. Terminal.
type Errored struct {
	Err error
}

// Ended signals that the connection closed. Terminal. The adapter closes the
// event channel after emitting Ended.
type Ended struct{}

func (LoginReady) event()      {}
func (Spawned) event()         {}
func (HealthChanged) event()   {}
func (PositionChanged) event() {}
func (ChatReceived) event()    {}
func (Kicked) event()          {}
func (Errored) event()         {}
func (Ended) event()           {}
