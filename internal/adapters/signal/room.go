package signal

import (
	"github.com/dkeye/ghostchat/internal/domain"
	"github.com/dkeye/ghostchat/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(id domain.UserID, p protocol.JoinRoom) {
	log.Debug().Str("module", "signal").Str("user_id", string(id)).Str("room", string(p.RoomName)).Msg("join")
	ctl.Orch.JoinRoom(id, p.RoomName)
}

// handleLeave leaves one room; the connection stays open.
func (ctl *SignalWSController) handleLeave(id domain.UserID, p protocol.LeaveRoom) {
	log.Debug().Str("module", "signal").Str("user_id", string(id)).Str("room", string(p.RoomName)).Msg("leave")
	ctl.Orch.LeaveRoom(id, p.RoomName)
}

func (ctl *SignalWSController) handleMute(id domain.UserID, p protocol.MuteUser) {
	ctl.Orch.MuteUser(id, p.RoomName, p.TargetUserID, *p.ShouldMute)
}

func (ctl *SignalWSController) handleRemove(id domain.UserID, p protocol.RemoveUser) {
	ctl.Orch.RemoveUser(id, p.RoomName, p.TargetUserID)
}
