package bot

import "errors"

// ErrAlreadyActive is returned when starting a session whose key already has
// a live, connected session.
var ErrAlreadyActive = errors.New("session already active")

// ErrNotFound is returned when no session exists for the given key.
var ErrNotFound = errors.New("session not found")

// ErrNotActive is returned when a command requires a connected session and
// the session's connection is not live.
var ErrNotActive = errors.New("session not connected")
