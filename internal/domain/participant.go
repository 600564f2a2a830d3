// Package domain contains entity without logic, just meta-data
package domain

import "errors"

var (
	ErrEmptyRoomID       = errors.New("room id empty")
	ErrUnknownConnection = errors.New("unknown connection")
)

// ConnectionID is assigned by the transport when a socket is accepted.
// The relay treats it as an opaque token.
type ConnectionID string

// Participant is one open connection and the routing meta the relay keeps for it.
type Participant struct {
	ID     ConnectionID
	Room   RoomID
	IsHost bool
}

// InRoom reports whether the participant has joined any room.
func (p Participant) InRoom() bool { return p.Room != "" }
