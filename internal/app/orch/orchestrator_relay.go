package orch

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/remote-relay/internal/core"
	"github.com/dkeye/remote-relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// RelaySignal forwards an offer, answer or ICE candidate to everyone in room
// but the sender, tagged with the sender id. The payload is not inspected.
func (o *Orchestrator) RelaySignal(sender domain.ConnectionID, kind core.Kind, room domain.RoomID, payload json.RawMessage) (core.PublishResult, error) {
	if !kind.IsSignaling() {
		return core.PublishResult{}, fmt.Errorf("relay signal: %w: %q", core.ErrUnknownKind, kind)
	}
	frame, err := core.SignalFrame(kind, payload, sender)
	if err != nil {
		return core.PublishResult{}, err
	}
	res := o.deliver(room, o.Rooms.MembersExcept(room, sender), frame)
	log.Debug().Str("module", "orch").Str("event", string(kind)).Str("from", string(sender)).Str("room", string(room)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("signal relayed")
	return res, nil
}

// RelayInput forwards a remote-control event unchanged under its remote-*
// name. Nothing is coalesced or buffered.
func (o *Orchestrator) RelayInput(sender domain.ConnectionID, kind core.Kind, room domain.RoomID, data json.RawMessage) (core.PublishResult, error) {
	remote, ok := kind.Remote()
	if !ok {
		return core.PublishResult{}, fmt.Errorf("relay input: %w: %q", core.ErrUnknownKind, kind)
	}
	frame, err := core.Encode(remote, data)
	if err != nil {
		return core.PublishResult{}, err
	}
	res := o.deliver(room, o.Rooms.MembersExcept(room, sender), frame)
	log.Debug().Str("module", "orch").Str("event", string(kind)).Str("from", string(sender)).Str("room", string(room)).Int("sent_to", res.SendTo).Msg("input relayed")
	return res, nil
}
