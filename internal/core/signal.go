//go:generate go run go.uber.org/mock/mockgen -source=signal.go -destination=mocks/mock_signal.go -package=mocks
package core

import (
	"errors"

	"github.com/dkeye/remote-relay/internal/domain"
)

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// Frame is one encoded outbound message.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues f without blocking. It fails with ErrBackpressure when the
	// outbound queue is full and ErrConnectionClosed after Close.
	TrySend(f Frame) error
	Close()
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []domain.ConnectionID
}

// RoomInfo is a read-only view of a room for APIs.
type RoomInfo struct {
	ID          domain.RoomID        `json:"id"`
	MemberCount int                  `json:"member_count"`
	HostID      *domain.ConnectionID `json:"host_id"`
}
