package bot

import (
	"context"
	"errors"
	"sync"
)

// fakeConn is a scripted connection: tests push events and inspect sends.
type fakeConn struct {
	events chan Event

	mu     sync.Mutex
	closed bool
	sent   []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan Event, 64)}
}

func (c *fakeConn) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("send on closed fake connection")
	}
	c.sent = append(c.sent, text)
	return nil
}

func (c *fakeConn) Events() <-chan Event {
	return c.events
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

// emit pushes an event into the session's loop. Panics if the connection was
// closed first; tests control the ordering.
func (c *fakeConn) emit(ev Event) {
	c.events <- ev
}

func (c *fakeConn) sentLines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeConnector hands out fakeConns and records every open.
type fakeConnector struct {
	mu      sync.Mutex
	conns   []*fakeConn
	openErr error

	// blockOpen, when non-nil, stalls Open until the channel is closed.
	blockOpen chan struct{}
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{}
}

func (f *fakeConnector) Open(_ context.Context, _ Target) (Conn, error) {
	f.mu.Lock()
	block := f.blockOpen
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	c := newFakeConn()
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *fakeConnector) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

func (f *fakeConnector) conn(i int) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.conns) {
		return nil
	}
	return f.conns[i]
}
