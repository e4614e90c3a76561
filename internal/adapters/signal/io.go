package signal

import (
	"context"
	"time"

	"github.com/dkeye/ghostchat/internal/core"
	"github.com/dkeye/ghostchat/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(ctl.Opts.WriteTimeout))
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Opts.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.Opts.WriteTimeout)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		}
	}
}

// readPump owns the disconnect: when it returns the user is torn down.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sess core.MemberSession, c *WsSignalConn) {
	id := sess.Meta().ID
	defer func() {
		log.Info().Str("module", "signal").Str("user_id", string(id)).Msg("readPump closing")
		cancel()
		ctl.Orch.Disconnect(id, c)
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.Opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.Opts.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("user_id", string(id)).Msg("readPump ctx done")
			return
		default:
			kind, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("user_id", string(id)).Msg("readPump read error")
				}
				return
			}
			if kind != websocket.TextMessage {
				ctl.sendEvent(c, protocol.Error{Error: "text frames only"})
				continue
			}
			ctl.handleSignal(sess, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(sess core.MemberSession, c *WsSignalConn, data []byte) {
	in, err := protocol.DecodeIntent(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("user_id", string(sess.Meta().ID)).Msg("bad intent")
		ctl.sendEvent(c, protocol.Error{Error: err.Error()})
		return
	}

	id := sess.Meta().ID
	switch v := in.(type) {
	case protocol.JoinRoom:
		ctl.handleJoin(id, v)
	case protocol.LeaveRoom:
		ctl.handleLeave(id, v)
	case protocol.MuteUser:
		ctl.handleMute(id, v)
	case protocol.RemoveUser:
		ctl.handleRemove(id, v)
	case protocol.SendMessage:
		ctl.handleMessage(id, v)
	case protocol.SendDirectMessage:
		ctl.handleDirectMessage(id, v)
	case protocol.Typing:
		ctl.handleTyping(id, v)
	case protocol.GetOnlineUsers:
		ctl.Orch.OnlineUsers(id)
	case protocol.WhoAmI:
		ctl.Orch.WhoAmI(id)
	case protocol.Call:
		ctl.handleCall(id, v)
	case protocol.Signal:
		ctl.handleRelay(id, v)
	case protocol.Ping:
		ctl.handlePing(c, v)
	default:
		log.Warn().Str("module", "signal").Str("type", in.IntentType()).Msg("unhandled intent")
	}
}
