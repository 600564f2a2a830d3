package signal

import (
	"github.com/dkeye/remote-relay/internal/core"
	"github.com/dkeye/remote-relay/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(id domain.ConnectionID, env core.Envelope) {
	room, err := core.DecodeJoinRoom(env.Data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad join payload")
		return
	}
	if err := ctl.Orch.Join(id, room); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("join")
	}
}

func (ctl *SignalWSController) handleHost(id domain.ConnectionID, env core.Envelope) {
	room, err := core.DecodeRoomRef(env.Data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad host payload")
		return
	}
	if err := ctl.Orch.DeclareHost(id, room); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("declare host")
	}
}
