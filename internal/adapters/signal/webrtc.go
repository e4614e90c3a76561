package signal

import (
	"github.com/dkeye/ghostchat/internal/domain"
	"github.com/dkeye/ghostchat/internal/protocol"
)

func (ctl *SignalWSController) handleCall(id domain.UserID, p protocol.Call) {
	if p.Kind == protocol.TypeJoinCall {
		ctl.Orch.JoinCall(id, p.RoomName)
		return
	}
	ctl.Orch.LeaveCall(id, p.RoomName)
}

// handleRelay forwards offer, answer and ICE candidate payloads untouched.
func (ctl *SignalWSController) handleRelay(id domain.UserID, p protocol.Signal) {
	ctl.Orch.RelaySignal(p.Kind, id, p.TargetUserID, p.RoomName, p.Payload)
}
