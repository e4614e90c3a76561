package signal

import (
	"github.com/dkeye/ghostchat/internal/domain"
	"github.com/dkeye/ghostchat/internal/protocol"
)

func (ctl *SignalWSController) handleMessage(id domain.UserID, p protocol.SendMessage) {
	ctl.Orch.SendMessage(id, p.RoomName, p.Message, p.MessageType)
}

func (ctl *SignalWSController) handleDirectMessage(id domain.UserID, p protocol.SendDirectMessage) {
	ctl.Orch.SendDirectMessage(id, p.TargetUserID, p.Message, p.MessageType)
}

func (ctl *SignalWSController) handleTyping(id domain.UserID, p protocol.Typing) {
	ctl.Orch.Typing(id, p.RoomName, p.Kind == protocol.TypeTypingStart)
}
