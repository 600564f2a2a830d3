package orch

import (
	"context"
	"sync"

	"github.com/dkeye/remote-relay/internal/app"
	"github.com/dkeye/remote-relay/internal/core"
	"github.com/dkeye/remote-relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator coordinates membership and relays traffic between the
// participants of a room.
//
// Join, DeclareHost and OnDisconnect are serialized by mu so registry and
// directory change together. Relays only take a member snapshot and fan out
// without holding mu.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.Directory
	Policy   app.Policy

	mu sync.Mutex
}

// Connect registers a freshly accepted connection and tells it its id.
func (o *Orchestrator) Connect(id domain.ConnectionID, conn core.SignalConnection, cancel context.CancelFunc) {
	o.Registry.Register(id, conn, cancel)
	o.emit("", core.KindConnected, core.Connected{ID: id}, id)
}

// OnDisconnect drops id from the registry and from its room. Calling it again
// for the same id is a no-op. The remaining members are not notified.
func (o *Orchestrator) OnDisconnect(id domain.ConnectionID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	p, ok := o.Registry.Remove(id)
	if !ok {
		return
	}
	if p.InRoom() {
		left := o.Rooms.Leave(p.Room, id)
		log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(p.Room)).Int("room_size", left).Msg("participant left")
	}
}

func (o *Orchestrator) ListRooms() []core.RoomInfo {
	return o.Rooms.List()
}

// emit encodes one message and delivers it to every id in to.
func (o *Orchestrator) emit(room domain.RoomID, kind core.Kind, data any, to ...domain.ConnectionID) core.PublishResult {
	frame, err := core.Encode(kind, data)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("event", string(kind)).Msg("encode failed")
		return core.PublishResult{}
	}
	return o.deliver(room, to, frame)
}

// deliver fans frame out to recipients. A failed recipient is handed to the
// policy and never stops delivery to the rest.
func (o *Orchestrator) deliver(room domain.RoomID, to []domain.ConnectionID, frame core.Frame) core.PublishResult {
	res := core.PublishResult{}
	for _, id := range to {
		conn, ok := o.Registry.Conn(id)
		if !ok {
			continue
		}
		if err := conn.TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, id)
			o.onBackPressure(room, id, err)
			continue
		}
		res.SendTo++
	}
	return res
}

func (o *Orchestrator) onBackPressure(room domain.RoomID, id domain.ConnectionID, err error) {
	if o.Policy == nil {
		return
	}
	action := o.Policy.OnBackPressure(room, id, err)
	log.Warn().Err(err).Str("module", "orch").Str("room", string(room)).Str("conn", string(id)).Stringer("action", action).Msg("delivery failed")
	switch action {
	case app.KickMember:
		o.Registry.Cancel(id)
	case app.DropFrame, app.NoAction:
	}
}
