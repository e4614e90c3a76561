package signal

import (
	"github.com/dkeye/ghostchat/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handlePing(c *WsSignalConn, p protocol.Ping) {
	ctl.sendEvent(c, protocol.Pong{TS: p.TS})
}

// sendEvent writes straight to this connection, bypassing the dispatcher.
func (ctl *SignalWSController) sendEvent(c *WsSignalConn, ev protocol.Event) {
	b, err := protocol.Encode(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendEvent encode")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("type", ev.EventType()).Msg("sendEvent dropped")
	}
}
