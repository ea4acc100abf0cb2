package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of one stream session.
type State int32

const (
	StateConnected State = iota // Accepted, not yet authenticated
	StateAuthenticated
	StateDisconnected // Terminal
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Session is the stateful context bound to one stream connection. The read
// loop is the only goroutine mutating state and channels; writes from other
// goroutines (broadcast fan-out) are serialized by writeMu.
type Session struct {
	ID   uuid.UUID
	conn net.Conn

	writeTimeout time.Duration
	maxLineBytes int

	// Guarded by mu.
	mu       sync.Mutex
	state    State
	identity string
	channels map[string]struct{}

	// writeMu serializes all writes to the connection.
	writeMu sync.Mutex
}

func newSession(conn net.Conn, writeTimeout time.Duration, maxLineBytes int) *Session {
	return &Session{
		ID:           uuid.New(),
		conn:         conn,
		writeTimeout: writeTimeout,
		maxLineBytes: maxLineBytes,
		state:        StateConnected,
		channels:     make(map[string]struct{}),
	}
}

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr().String()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the authenticated identity, empty until a valid Auth.
func (s *Session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// setAuthenticated transitions Connected → Authenticated. A repeated valid
// Auth just replaces the identity.
func (s *Session) setAuthenticated(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return
	}
	s.state = StateAuthenticated
	s.identity = identity
}

// setDisconnected marks the terminal state.
func (s *Session) setDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateDisconnected
}

// subscribe adds channels to the session's set. Duplicates are collapsed.
func (s *Session) subscribe(channels []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range channels {
		if ch == "" {
			continue
		}
		s.channels[ch] = struct{}{}
	}
}

// unsubscribe removes channels from the set; absent entries are no-ops.
func (s *Session) unsubscribe(channels []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range channels {
		delete(s.channels, ch)
	}
}

// Channels returns a copy of the subscribed channel set.
func (s *Session) Channels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.channels))
	for ch := range s.channels {
		out = append(out, ch)
	}
	return out
}

// subscribed reports whether the session has issued any Subscribe.
func (s *Session) subscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels) > 0
}

// send marshals v and writes it as one framed line. Writes to one session
// never interleave; a write error leaves the session to be torn down by
// its read loop or the registry.
func (s *Session) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	data = append(data, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// scanner builds the framing scanner for the read loop. One token is one
// newline-delimited JSON message, reassembled across reads.
func (s *Session) scanner() *bufio.Scanner {
	sc := bufio.NewScanner(s.conn)
	sc.Buffer(make([]byte, 0, 4096), s.maxLineBytes)
	return sc
}

// close shuts the connection; safe to call more than once.
func (s *Session) close() {
	_ = s.conn.Close()
}
