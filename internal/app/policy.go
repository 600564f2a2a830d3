package app

import (
	"errors"

	"github.com/dkeye/remote-relay/internal/core"
	"github.com/dkeye/remote-relay/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

func (a BackpressureAction) String() string {
	switch a {
	case KickMember:
		return "kick"
	case DropFrame:
		return "drop"
	default:
		return "none"
	}
}

// Policy decides what happens to a recipient whose send failed. It never
// affects delivery to the other recipients.
type Policy interface {
	OnBackPressure(room domain.RoomID, member domain.ConnectionID, err error) BackpressureAction
}

// SimplePolicy drops the frame, or kicks recipients whose queue is full when
// KickSlow is set.
type SimplePolicy struct {
	KickSlow bool
}

func (p SimplePolicy) OnBackPressure(_ domain.RoomID, _ domain.ConnectionID, err error) BackpressureAction {
	if errors.Is(err, core.ErrConnectionClosed) {
		return NoAction
	}
	if p.KickSlow && errors.Is(err, core.ErrBackpressure) {
		return KickMember
	}
	return DropFrame
}
