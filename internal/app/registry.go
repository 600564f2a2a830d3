package app

import (
	"context"
	"sync"

	"github.com/dkeye/remote-relay/internal/core"
	"github.com/dkeye/remote-relay/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Participant domain.Participant
	Conn        core.SignalConnection
	Cancel      context.CancelFunc
}

// Registry is the source of truth for which connections are alive and what
// room and role each one has.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnectionID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[domain.ConnectionID]*connEntry),
	}
}

// Register adds a connection with no room and no host flag. A second call for
// the same id replaces the transport endpoint.
func (r *Registry) Register(id domain.ConnectionID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; ok {
		log.Warn().Str("module", "app.registry").Str("conn", string(id)).Msg("connection re-registered")
	}
	r.conns[id] = &connEntry{
		Participant: domain.Participant{ID: id},
		Conn:        conn,
		Cancel:      cancel,
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("registered connection")
}

func (r *Registry) Get(id domain.ConnectionID) (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.Participant, true
	}
	return domain.Participant{}, false
}

func (r *Registry) Conn(id domain.ConnectionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.Conn, true
	}
	return nil, false
}

// SetRoom overwrites the room assignment. An empty room clears it.
func (r *Registry) SetRoom(id domain.ConnectionID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return false
	}
	e.Participant.Room = room
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("room", string(room)).Msg("updated room")
	return true
}

func (r *Registry) SetHost(id domain.ConnectionID, flag bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return false
	}
	e.Participant.IsHost = flag
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Bool("host", flag).Msg("updated host flag")
	return true
}

func (r *Registry) IsHost(id domain.ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	return ok && e.Participant.IsHost
}

// Remove deletes the entry and returns what it held so the caller can update
// room membership. The second result is false if the id was already gone.
func (r *Registry) Remove(id domain.ConnectionID) (domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return domain.Participant{}, false
	}
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("removed connection")
	return e.Participant, true
}

// Cancel tears down the connection's transport. Cleanup follows through the
// adapter's disconnect path.
func (r *Registry) Cancel(id domain.ConnectionID) bool {
	r.mu.RLock()
	e, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("canceled connection")
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
