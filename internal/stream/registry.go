package stream

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/janm2001/cryptofeed/internal/model"
)

// EventKind tags a session lifecycle event.
type EventKind int

const (
	EventConnected EventKind = iota
	EventAuthenticated
	EventMessage
	EventDisconnected
)

// Event is emitted by session handlers and consumed by the registry. All
// registry bookkeeping flows through these events instead of ad-hoc
// callbacks.
type Event struct {
	Kind        EventKind
	Session     *Session
	MessageType string // Set for EventMessage
}

// RegistryStats provides statistics about the session registry.
type RegistryStats struct {
	Sessions      int
	Authenticated int
	Subscribed    int
	TotalAccepted int64
	TotalMessages int64
	SendFailures  int64
}

// Registry owns the session table. Sessions are inserted on a connected
// event and removed on a disconnected event; broadcast iterates a snapshot
// of the table so delivery never blocks new registrations.
type Registry struct {
	logger *slog.Logger

	events chan Event

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	statsMu       sync.Mutex
	totalAccepted int64
	totalMessages int64
	sendFailures  int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates a session registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:   logger,
		events:   make(chan Event, 256),
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Start begins consuming lifecycle events.
func (r *Registry) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.eventLoop()

	return nil
}

// Stop drains the event loop and force-closes every open session.
func (r *Registry) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("session registry stop timed out")
	}

	r.mu.Lock()
	for id, sess := range r.sessions {
		sess.setDisconnected()
		sess.close()
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	r.logger.Info("session registry stopped")
	return nil
}

// Emit hands a lifecycle event to the registry. Drops nothing: blocks if
// the event buffer is full, keeping per-session event order intact.
func (r *Registry) Emit(ev Event) {
	select {
	case r.events <- ev:
	case <-r.ctx.Done():
	}
}

// Broadcast sends payload to every session registered at call time that has
// issued a Subscribe. A failed write tears that session down without
// aborting delivery to the others.
func (r *Registry) Broadcast(payload PriceResponse) {
	for _, sess := range r.snapshot() {
		if !sess.subscribed() {
			continue
		}
		if err := sess.send(payload); err != nil {
			r.logger.Warn("broadcast write failed, dropping session",
				"session_id", sess.ID,
				"remote", sess.RemoteAddr(),
				"error", err,
			)
			r.statsMu.Lock()
			r.sendFailures++
			r.statsMu.Unlock()

			// Closing the connection unblocks the session's read loop,
			// which emits the disconnected event.
			sess.close()
		}
	}
}

// BroadcastSnapshots wraps snapshots in an uncorrelated PriceResponse and
// fans it out. Every targeted session receives identical content.
func (r *Registry) BroadcastSnapshots(snapshots []model.PriceSnapshot) {
	r.Broadcast(NewPriceResponse(snapshots, ""))
}

// Stats returns current registry statistics.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	sessions := len(r.sessions)
	authed := 0
	subbed := 0
	for _, sess := range r.sessions {
		if sess.State() == StateAuthenticated {
			authed++
		}
		if sess.subscribed() {
			subbed++
		}
	}
	r.mu.RUnlock()

	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return RegistryStats{
		Sessions:      sessions,
		Authenticated: authed,
		Subscribed:    subbed,
		TotalAccepted: r.totalAccepted,
		TotalMessages: r.totalMessages,
		SendFailures:  r.sendFailures,
	}
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// snapshot copies the current session list for lock-free iteration.
func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out
}

// eventLoop applies lifecycle events to the session table.
func (r *Registry) eventLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case ev := <-r.events:
			r.apply(ev)
		}
	}
}

func (r *Registry) apply(ev Event) {
	switch ev.Kind {
	case EventConnected:
		r.mu.Lock()
		r.sessions[ev.Session.ID] = ev.Session
		r.mu.Unlock()

		r.statsMu.Lock()
		r.totalAccepted++
		r.statsMu.Unlock()

		r.logger.Info("session connected",
			"session_id", ev.Session.ID,
			"remote", ev.Session.RemoteAddr(),
		)

	case EventAuthenticated:
		r.logger.Info("session authenticated",
			"session_id", ev.Session.ID,
			"identity", ev.Session.Identity(),
		)

	case EventMessage:
		r.statsMu.Lock()
		r.totalMessages++
		r.statsMu.Unlock()

	case EventDisconnected:
		r.mu.Lock()
		delete(r.sessions, ev.Session.ID)
		r.mu.Unlock()

		ev.Session.setDisconnected()
		ev.Session.close()

		r.logger.Info("session disconnected",
			"session_id", ev.Session.ID,
			"remote", ev.Session.RemoteAddr(),
		)
	}
}
