// Package botsim provides a simulated game-server connector implementing the
// bot adapter contract. It stands in for a wire-protocol client during
// development and in tests: connections "spawn" after a short delay, echo
// sent chat back, and wander around a fixed spawn point.
package botsim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cory-johannsen/botpanel/internal/bot"
)

// Options tunes the simulation. Zero values fall back to defaults.
type Options struct {
	// ConnectDelay is the pause between Open and the LoginReady event.
	ConnectDelay time.Duration
	// SpawnDelay is the pause between LoginReady and Spawned.
	SpawnDelay time.Duration
	// WanderInterval is the period between position updates. Zero disables
	// wandering.
	WanderInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.ConnectDelay <= 0 {
		o.ConnectDelay = 100 * time.Millisecond
	}
	if o.SpawnDelay <= 0 {
		o.SpawnDelay = 100 * time.Millisecond
	}
	return o
}

// Connector opens simulated connections.
type Connector struct {
	opts Options
}

// New creates a simulated connector.
func New(opts Options) *Connector {
	return &Connector{opts: opts.withDefaults()}
}

// Open validates the target and returns a simulated connection that begins
// emitting events immediately.
func (c *Connector) Open(_ context.Context, target bot.Target) (bot.Conn, error) {
	if target.Host == "" {
		return nil, errors.New("botsim: target host is empty")
	}
	if target.Username == "" {
		return nil, errors.New("botsim: target username is empty")
	}

	conn := &conn{
		target: target,
		events: make(chan bot.Event, 64),
		done:   make(chan struct{}),
	}
	go conn.run(c.opts)
	return conn, nil
}

type conn struct {
	target bot.Target
	events chan bot.Event
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// Send echoes the line back as a chat event from the bot's own name, so the
// panel's chat log shows outbound traffic the way a real server would.
func (c *conn) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("botsim: send on closed connection to %s", c.target.Host)
	}
	c.emit(bot.ChatReceived{Sender: c.target.Username, Text: text})
	return nil
}

func (c *conn) Events() <-chan bot.Event {
	return c.events
}

// Close is idempotent; the terminal Ended event arrives asynchronously.
func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

// emit enqueues an event without blocking; events are dropped when the
// consumer falls 64 events behind, matching the adapter contract's
// requirement that Send never stalls the caller.
func (c *conn) emit(ev bot.Event) {
	select {
	case c.events <- ev:
	default:
	}
}

func (c *conn) run(opts Options) {
	defer close(c.events)

	if !c.sleep(opts.ConnectDelay) {
		c.emit(bot.Ended{})
		return
	}
	c.emit(bot.LoginReady{})

	if !c.sleep(opts.SpawnDelay) {
		c.emit(bot.Ended{})
		return
	}
	c.emit(bot.Spawned{})
	c.emit(bot.HealthChanged{Health: 20, Food: 20})

	pos := bot.PositionChanged{X: 0, Y: 64, Z: 0}
	c.emit(pos)

	if opts.WanderInterval <= 0 {
		<-c.done
		c.emit(bot.Ended{})
		return
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(opts.WanderInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			c.emit(bot.Ended{})
			return
		case <-ticker.C:
			pos.X += rng.Intn(3) - 1
			pos.Z += rng.Intn(3) - 1
			c.emit(pos)
		}
	}
}

// sleep pauses for d, returning false if the connection closed first.
func (c *conn) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-c.done:
		return false
	case <-timer.C:
		return true
	}
}
