package signal

import (
	"github.com/dkeye/remote-relay/internal/core"
	"github.com/dkeye/remote-relay/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleRelaySignal(id domain.ConnectionID, env core.Envelope) {
	room, payload, err := core.DecodeSignal(env.Event, env.Data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Str("event", string(env.Event)).Msg("unroutable signal")
		return
	}
	if _, err := ctl.Orch.RelaySignal(id, env.Event, room, payload); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("relay signal")
	}
}

func (ctl *SignalWSController) handleRelayInput(id domain.ConnectionID, env core.Envelope) {
	room, err := core.DecodeRoomRef(env.Data)
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(id)).Str("event", string(env.Event)).Msg("unroutable input")
		return
	}
	if _, err := ctl.Orch.RelayInput(id, env.Event, room, env.Data); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("relay input")
	}
}
