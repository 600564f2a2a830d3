package orch

import (
	"fmt"

	"github.com/dkeye/remote-relay/internal/core"
	"github.com/dkeye/remote-relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Join puts id into room and emits presence in this order: user-joined to the
// others, existing-users to the newcomer, client-joined to the host and
// room-size to everyone. A member already in another room leaves it first;
// the host flag travels with it.
func (o *Orchestrator) Join(id domain.ConnectionID, room domain.RoomID) error {
	if room == "" {
		return domain.ErrEmptyRoomID
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	p, ok := o.Registry.Get(id)
	if !ok {
		return fmt.Errorf("join %s: %w", room, domain.ErrUnknownConnection)
	}
	if p.InRoom() && p.Room != room {
		left := o.Rooms.Leave(p.Room, id)
		log.Info().Str("module", "orch").Str("conn", string(id)).Str("from_room", string(p.Room)).Int("room_size", left).Msg("switched room")
	}

	o.Registry.SetRoom(id, room)
	before, size := o.Rooms.Join(room, id)
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(room)).Int("room_size", size).Msg("joined room")

	o.emit(room, core.KindUserJoined, core.UserJoined{UserID: id, RoomSize: size}, before...)

	if size > 1 {
		host, hasHost := o.Rooms.FindHost(room, id)
		users := core.ExistingUsers{
			Users:    o.Rooms.MembersExcept(room, id),
			RoomSize: size,
		}
		if hasHost {
			users.HostID = &host
		}
		o.emit(room, core.KindExistingUsers, users, id)

		if hasHost {
			o.emit(room, core.KindClientJoined, core.ClientJoined{ClientID: id}, host)
		}
	}

	o.emit(room, core.KindRoomSize, size, o.Rooms.Members(room)...)
	return nil
}

// DeclareHost flags id as host of room. Clients already in the room are
// reported back to the host, and the room is told the host is ready. The
// host does not have to be a member yet.
func (o *Orchestrator) DeclareHost(id domain.ConnectionID, room domain.RoomID) error {
	if room == "" {
		return domain.ErrEmptyRoomID
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.Registry.SetHost(id, true) {
		return fmt.Errorf("declare host %s: %w", room, domain.ErrUnknownConnection)
	}
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(room)).Msg("host declared")

	if clients := o.Rooms.Clients(room, id); len(clients) > 0 {
		o.emit(room, core.KindExistingClients, core.ExistingClients{Clients: clients}, id)
	}
	o.emit(room, core.KindHostReady, core.HostReady{HostID: id}, o.Rooms.MembersExcept(room, id)...)
	return nil
}
