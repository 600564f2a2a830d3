package app

import (
	"sort"
	"sync"

	"github.com/dkeye/remote-relay/internal/core"
	"github.com/dkeye/remote-relay/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// HostChecker answers whether a connection is flagged host. The Registry
// implements it; the Directory never stores roles itself.
type HostChecker interface {
	IsHost(id domain.ConnectionID) bool
}

// TransitionFunc observes a room moving between Empty and Active.
type TransitionFunc func(room domain.RoomID, from, to domain.RoomState)

// Directory maps rooms to their members in join order. Rooms exist only
// while they have members.
type Directory struct {
	mu      sync.RWMutex
	rooms   map[domain.RoomID][]domain.ConnectionID
	hosts   HostChecker
	observe TransitionFunc
}

func NewDirectory(hosts HostChecker) *Directory {
	return &Directory{
		rooms: make(map[domain.RoomID][]domain.ConnectionID),
		hosts: hosts,
	}
}

// OnTransition installs fn, replacing any previous observer. Call it before
// the directory is shared.
func (d *Directory) OnTransition(fn TransitionFunc) {
	d.observe = fn
}

// Join adds id to room and returns the members present before it together
// with the resulting size. Joining twice does not duplicate the member.
func (d *Directory) Join(room domain.RoomID, id domain.ConnectionID) ([]domain.ConnectionID, int) {
	d.mu.Lock()
	members, existed := d.rooms[room]
	before := lo.Without(members, id)
	if !lo.Contains(members, id) {
		members = append(members, id)
		d.rooms[room] = members
	}
	size := len(members)
	d.mu.Unlock()

	log.Debug().Str("module", "app.directory").Str("room", string(room)).Str("conn", string(id)).Int("size", size).Msg("member joined")
	if !existed {
		d.transition(room, domain.RoomEmpty, domain.RoomActive)
	}
	return before, size
}

// Leave removes id from room and returns the remaining size. The room entry
// is dropped with its last member.
func (d *Directory) Leave(room domain.RoomID, id domain.ConnectionID) int {
	d.mu.Lock()
	members, ok := d.rooms[room]
	if !ok {
		d.mu.Unlock()
		return 0
	}
	members = lo.Without(members, id)
	emptied := len(members) == 0
	if emptied {
		delete(d.rooms, room)
	} else {
		d.rooms[room] = members
	}
	d.mu.Unlock()

	log.Debug().Str("module", "app.directory").Str("room", string(room)).Str("conn", string(id)).Int("size", len(members)).Msg("member left")
	if emptied {
		d.transition(room, domain.RoomActive, domain.RoomEmpty)
	}
	return len(members)
}

// Members returns a snapshot of room in join order.
func (d *Directory) Members(room domain.RoomID) []domain.ConnectionID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]domain.ConnectionID(nil), d.rooms[room]...)
}

// MembersExcept is the recipient set of every broadcast from id.
func (d *Directory) MembersExcept(room domain.RoomID, id domain.ConnectionID) []domain.ConnectionID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lo.Without(d.rooms[room], id)
}

func (d *Directory) Size(room domain.RoomID) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms[room])
}

func (d *Directory) State(room domain.RoomID) domain.RoomState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.rooms[room]; ok {
		return domain.RoomActive
	}
	return domain.RoomEmpty
}

// FindHost scans room for a member flagged host, skipping exclude. With
// several hosts the latest in join order wins.
func (d *Directory) FindHost(room domain.RoomID, exclude domain.ConnectionID) (domain.ConnectionID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	host, _, ok := lo.FindLastIndexOf(d.rooms[room], func(id domain.ConnectionID) bool {
		return id != exclude && d.hosts.IsHost(id)
	})
	return host, ok
}

// Clients returns members of room that are neither hosts nor exclude.
func (d *Directory) Clients(room domain.RoomID, exclude domain.ConnectionID) []domain.ConnectionID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lo.Filter(d.rooms[room], func(id domain.ConnectionID, _ int) bool {
		return id != exclude && !d.hosts.IsHost(id)
	})
}

func (d *Directory) List() []core.RoomInfo {
	d.mu.RLock()
	out := lo.MapToSlice(d.rooms, func(room domain.RoomID, members []domain.ConnectionID) core.RoomInfo {
		return core.RoomInfo{ID: room, MemberCount: len(members)}
	})
	d.mu.RUnlock()

	for i := range out {
		if host, ok := d.FindHost(out[i].ID, ""); ok {
			out[i].HostID = &host
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *Directory) transition(room domain.RoomID, from, to domain.RoomState) {
	log.Info().Str("module", "app.directory").Str("room", string(room)).Stringer("from", from).Stringer("to", to).Msg("room state")
	if d.observe != nil {
		d.observe(room, from, to)
	}
}
