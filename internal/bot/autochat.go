package bot

import (
	"sync"
	"time"
)

// autoChat is the cancellation handle for one armed auto-message timer.
// Cancellation is idempotent.
type autoChat struct {
	stop chan struct{}
	once sync.Once
}

func (a *autoChat) cancel() {
	a.once.Do(func() { close(a.stop) })
}

// StartAutoChat arms a repeating timer that sends text every interval while
// the session is connected. Ticks while disconnected are silently skipped;
// there is no queuing or catch-up. Any previously armed timer is cancelled
// first, so at most one timer is active per session.
//
// Precondition: text must be non-empty; interval must be positive.
// Postcondition: Returns ErrNotActive if the session has been stopped.
func (s *Session) StartAutoChat(text string, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrNotActive
	}

	s.stopAutoChatLocked()
	a := &autoChat{stop: make(chan struct{})}
	s.auto = a
	s.autoText = text
	s.autoInterval = int(interval / time.Second)

	go s.runAutoChat(a, text, interval)
	return nil
}

// StopAutoChat cancels the auto-message timer, if armed. No further sends
// occur from the timer after StopAutoChat returns.
func (s *Session) StopAutoChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAutoChatLocked()
}

func (s *Session) stopAutoChatLocked() {
	if s.auto != nil {
		s.auto.cancel()
		s.auto = nil
	}
}

func (s *Session) runAutoChat(a *autoChat, text string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			// A tick may already be pending when cancel fires; re-check
			// before sending so a cancelled timer never speaks.
			select {
			case <-a.stop:
				return
			default:
			}
			s.autoTick(a, text)
		}
	}
}

// autoTick sends one auto-message if this timer is still the session's
// current timer and the session is connected.
func (s *Session) autoTick(a *autoChat, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.auto != a || s.stopped || !s.connected || s.conn == nil {
		return
	}
	_ = s.conn.Send(text)
}
