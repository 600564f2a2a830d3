package domain

type RoomID string

// NewRoomID checks an externally supplied room id. Any non-empty string is accepted.
func NewRoomID(raw string) (RoomID, error) {
	if raw == "" {
		return "", ErrEmptyRoomID
	}
	return RoomID(raw), nil
}

// RoomState is the lifecycle of a room: it becomes Active with its first
// member and returns to Empty when the last one leaves.
type RoomState int

const (
	RoomEmpty RoomState = iota
	RoomActive
)

func (s RoomState) String() string {
	switch s {
	case RoomEmpty:
		return "empty"
	case RoomActive:
		return "active"
	default:
		return "unknown"
	}
}
