package bot

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// DefaultChatLogCap is the bounded chat log size per session.
const DefaultChatLogCap = 50

// Options tunes registry-owned session behavior. Zero values fall back to
// defaults.
type Options struct {
	ChatLogCap int
	Timing     Timing
}

func (o Options) withDefaults() Options {
	if o.ChatLogCap <= 0 {
		o.ChatLogCap = DefaultChatLogCap
	}
	if o.Timing == (Timing{}) {
		o.Timing = DefaultTiming()
	}
	return o
}

// Registry tracks all live bot sessions, keyed by (user, bot). It is the
// only state shared across concurrent request handlers and adapter event
// loops. All methods are safe for concurrent use.
//
// Entries are created only by Start and removed only by Stop or Close; a
// terminal connection event leaves its session in place (disconnected but
// listed) until an explicit stop replaces or removes it.
type Registry struct {
	connector Connector
	opts      Options
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[Key]*Session
}

// NewRegistry creates an empty Registry that opens connections through the
// given connector.
//
// Precondition: connector and logger must be non-nil.
func NewRegistry(connector Connector, opts Options, logger *zap.Logger) *Registry {
	return &Registry{
		connector: connector,
		opts:      opts.withDefaults(),
		logger:    logger,
		sessions:  make(map[Key]*Session),
	}
}

// Start creates a session for key and begins connecting. The call returns
// before the handshake completes; connection progress is observable only
// through the session's status.
//
// Precondition: cfg must carry a valid host and username.
// Postcondition: Returns ErrAlreadyActive if a connected session already
// exists for key. A lingering terminal session for key is torn down and
// replaced. No two concurrent Start calls for the same key produce two live
// sessions.
func (r *Registry) Start(ctx context.Context, key Key, cfg Config) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[key]; ok {
		if existing.Connected() {
			return nil, ErrAlreadyActive
		}
		existing.stop()
	}

	s := newSession(key, cfg, r.opts.Timing, r.opts.ChatLogCap, r.logger)
	r.sessions[key] = s
	s.start(ctx, r.connector)

	r.logger.Info("session starting",
		zap.String("session", key.String()),
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
	)
	return s, nil
}

// Get returns the session for key.
//
// Postcondition: Returns (session, true) if present, or (nil, false).
func (r *Registry) Get(key Key) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Stop tears down the session for key and removes it from the registry.
// The session's connection is closed and its timers cancelled before the
// entry disappears; a removed session never mutates the registry again.
//
// Postcondition: Returns ErrNotFound if no session exists for key. Calling
// Stop twice for the same key yields ErrNotFound on the second call.
func (r *Registry) Stop(key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return ErrNotFound
	}
	s.stop()
	delete(r.sessions, key)

	r.logger.Info("session stopped", zap.String("session", key.String()))
	return nil
}

// StatusFor projects the status for key: a live session's snapshot, or the
// canonical offline snapshot when none exists.
func (r *Registry) StatusFor(key Key) Status {
	s, ok := r.Get(key)
	if !ok {
		return Offline()
	}
	return s.Snapshot()
}

// ListByUser returns the status of every session belonging to userID,
// keyed by bot ID.
func (r *Registry) ListByUser(userID int64) map[int64]Status {
	r.mu.Lock()
	sessions := make([]*Session, 0)
	for key, s := range r.sessions {
		if key.UserID == userID {
			sessions = append(sessions, s)
		}
	}
	r.mu.Unlock()

	// Snapshot outside the registry lock; each session has its own mutex.
	out := make(map[int64]Status, len(sessions))
	for _, s := range sessions {
		out[s.Key().BotID] = s.Snapshot()
	}
	return out
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops every session. Used at process shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, s := range r.sessions {
		s.stop()
		delete(r.sessions, key)
	}
	r.logger.Info("registry closed")
}
