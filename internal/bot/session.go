package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Key addresses at most one live session: one user's one bot.
type Key struct {
	UserID int64
	BotID  int64
}

// String returns the key in "userID_botID" form, used for logging.
func (k Key) String() string {
	return fmt.Sprintf("%d_%d", k.UserID, k.BotID)
}

// Config is the snapshot of a bot's persisted configuration that a session
// reads at creation time. Later edits to the stored configuration are not
// observed by a running session.
type Config struct {
	Host          string
	Port          int
	Username      string
	Version       string
	PasswordCmd   string
	ExtraCommands []string
}

// Timing groups the fixed delays used when dispatching commands after a
// connection comes up, to avoid flooding the remote server.
type Timing struct {
	// PasswordDelay is the pause before submitting the password command.
	PasswordDelay time.Duration
	// CommandDelay is the pause before the first extra command after spawn.
	CommandDelay time.Duration
	// CommandStagger is the additional pause per extra-command index.
	CommandStagger time.Duration
}

// DefaultTiming returns the delays used when none are configured.
func DefaultTiming() Timing {
	return Timing{
		PasswordDelay:  500 * time.Millisecond,
		CommandDelay:   2 * time.Second,
		CommandStagger: 500 * time.Millisecond,
	}
}

// Session is the live representation of one bot's current connection
// instance. It owns the connection exclusively, consumes its events on a
// dedicated goroutine, and serializes all state mutation behind one mutex.
type Session struct {
	key     Key
	cfg     Config
	timing  Timing
	chatCap int
	logger  *zap.Logger

	mu           sync.Mutex
	conn         Conn
	stopped      bool
	connected    bool
	message      string
	health       int
	food         int
	pos          Position
	chatLog      []string
	secretSent   bool
	timers       []*time.Timer
	auto         *autoChat
	autoText     string
	autoInterval int

	// done is closed when the event loop exits.
	done chan struct{}
}

func newSession(key Key, cfg Config, timing Timing, chatCap int, logger *zap.Logger) *Session {
	return &Session{
		key:     key,
		cfg:     cfg,
		timing:  timing,
		chatCap: chatCap,
		logger:  logger.With(zap.String("session", key.String())),
		message: msgConnecting,
		chatLog: make([]string, 0, chatCap),
		done:    make(chan struct{}),
	}
}

// Key returns the session's key.
func (s *Session) Key() Key {
	return s.key
}

// Connected reports whether the session's connection is live.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Snapshot projects the session's current state into a Status value.
//
// Postcondition: The returned Status shares no mutable state with the
// session; ChatLog is a copy.
func (s *Session) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := make([]string, len(s.chatLog))
	copy(log, s.chatLog)

	return Status{
		Connected:        s.connected,
		Message:          s.message,
		Health:           s.health,
		Food:             s.food,
		Position:         s.pos,
		ChatLog:          log,
		AutoChatActive:   s.auto != nil,
		AutoChatText:     s.autoText,
		AutoChatInterval: s.autoInterval,
	}
}

// SendChat transmits one chat line on behalf of the user.
//
// Postcondition: Returns ErrNotActive if the session has no live connection.
func (s *Session) SendChat(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || !s.connected || s.conn == nil {
		return ErrNotActive
	}
	return s.conn.Send(text)
}

// start launches the connection attempt and event loop. It returns
// immediately; connection establishment is asynchronous.
func (s *Session) start(ctx context.Context, connector Connector) {
	go s.run(ctx, connector)
}

func (s *Session) run(ctx context.Context, connector Connector) {
	defer close(s.done)

	conn, err := connector.Open(ctx, Target{
		Host:     s.cfg.Host,
		Port:     s.cfg.Port,
		Username: s.cfg.Username,
		Version:  s.cfg.Version,
	})
	if err != nil {
		s.mu.Lock()
		if !s.stopped {
			s.connected = false
			s.message = msgConnError
		}
		s.mu.Unlock()
		s.logger.Warn("connection failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.stopped {
		// Stopped while dialing: release the connection we no longer own.
		s.mu.Unlock()
		_ = conn.Close()
		for range conn.Events() {
		}
		return
	}
	s.conn = conn
	s.mu.Unlock()

	for ev := range conn.Events() {
		s.handle(ev)
	}
}

// handle applies one adapter event. Events arrive in emission order on the
// session's event-loop goroutine; a session that has been stopped treats
// every late event as a no-op.
func (s *Session) handle(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	switch ev := ev.(type) {
	case LoginReady:
		s.scheduleSecretLocked()

	case Spawned:
		s.connected = true
		s.message = msgConnected
		s.scheduleSecretLocked()
		s.scheduleExtraCommandsLocked()
		s.logger.Info("spawned")

	case HealthChanged:
		s.health = ev.Health
		s.food = ev.Food

	case PositionChanged:
		s.pos = Position{X: ev.X, Y: ev.Y, Z: ev.Z}

	case ChatReceived:
		s.appendChatLocked(fmt.Sprintf("%s: %s", ev.Sender, ev.Text))

	case Kicked:
		s.connected = false
		s.message = msgKickedPrefix + ev.Reason
		s.logger.Warn("kicked", zap.String("reason", ev.Reason))

	case Errored:
		s.connected = false
		s.message = msgConnError
		s.logger.Warn("connection errored", zap.Error(ev.Err))

	case Ended:
		s.connected = false
		s.message = msgDisconnected
		s.logger.Info("connection ended")
	}
}

// appendChatLocked appends a line with FIFO eviction at the cap.
func (s *Session) appendChatLocked(line string) {
	s.chatLog = append(s.chatLog, line)
	if len(s.chatLog) > s.chatCap {
		s.chatLog = s.chatLog[len(s.chatLog)-s.chatCap:]
	}
}

// scheduleSecretLocked arms the one-shot password command submission. The
// secretSent guard makes the submission at-most-once per connection instance
// even when both the login and spawn triggers fire.
func (s *Session) scheduleSecretLocked() {
	if s.cfg.PasswordCmd == "" || s.secretSent {
		return
	}
	s.secretSent = true
	s.afterLocked(s.timing.PasswordDelay, s.cfg.PasswordCmd)
}

// scheduleExtraCommandsLocked arms the configured extra commands in declared
// order, staggered by index.
func (s *Session) scheduleExtraCommandsLocked() {
	for i, cmd := range s.cfg.ExtraCommands {
		delay := s.timing.CommandDelay + time.Duration(i)*s.timing.CommandStagger
		s.afterLocked(delay, cmd)
	}
}

// afterLocked registers a cancellable delayed send. Timers are tracked so
// teardown can stop any that have not fired.
func (s *Session) afterLocked(delay time.Duration, text string) {
	t := time.AfterFunc(delay, func() {
		s.dispatch(text)
	})
	s.timers = append(s.timers, t)
}

// dispatch sends a scheduled command. Unlike SendChat it does not require
// the Connected state: the password command is submitted on login, before
// spawn. Sends after teardown are dropped.
func (s *Session) dispatch(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.conn == nil {
		return
	}
	if err := s.conn.Send(text); err != nil {
		s.logger.Debug("scheduled send failed", zap.Error(err))
	}
}

// stop tears the session down: cancels the auto-message timer and all
// pending command timers, then closes the connection. Idempotent. After stop
// returns, no timer fires a send and every late adapter event is ignored.
func (s *Session) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true

	s.stopAutoChatLocked()
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil

	s.connected = false
	s.message = msgStopped

	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// Done returns a channel closed when the session's event loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
