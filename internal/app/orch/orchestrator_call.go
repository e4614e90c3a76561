package orch

import (
	"encoding/json"

	"github.com/dkeye/ghostchat/internal/domain"
	"github.com/dkeye/ghostchat/internal/protocol"
	"github.com/rs/zerolog/log"
)

// JoinCall returns the existing participants to the joiner, then announces
// the joiner to the rest of the room.
func (o *Orchestrator) JoinCall(id domain.UserID, name domain.RoomName) {
	o.mu.Lock()
	defer o.mu.Unlock()

	room, ok := o.Rooms.GetRoom(name)
	if !ok || !room.IsMember(id) {
		return
	}
	if room.InCall(id) {
		o.Relay.Unicast(id, protocol.CallParticipants{RoomName: name, Participants: othersInCall(room.CallParticipants(), id)})
		return
	}
	o.Relay.Unicast(id, protocol.CallParticipants{RoomName: name, Participants: room.CallParticipants()})
	room.JoinCall(id)
	log.Info().Str("module", "orch").Str("user_id", string(id)).Str("room", string(name)).Msg("joined call")
	o.Relay.BroadcastRoom(room.MemberIDs(), id, protocol.CallMembership{
		Kind:     protocol.TypeUserJoinedCall,
		UserID:   id,
		RoomName: name,
	})
}

func (o *Orchestrator) LeaveCall(id domain.UserID, name domain.RoomName) {
	o.mu.Lock()
	defer o.mu.Unlock()

	room, ok := o.Rooms.GetRoom(name)
	if !ok || !room.IsMember(id) || !room.LeaveCall(id) {
		return
	}
	log.Info().Str("module", "orch").Str("user_id", string(id)).Str("room", string(name)).Msg("left call")
	o.Relay.BroadcastRoom(room.MemberIDs(), id, protocol.CallMembership{
		Kind:     protocol.TypeUserLeftCall,
		UserID:   id,
		RoomName: name,
	})
}

// RelaySignal forwards an opaque WebRTC payload between two members of the
// same room. Anything else is dropped.
func (o *Orchestrator) RelaySignal(kind string, from, target domain.UserID, name domain.RoomName, payload json.RawMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()

	room, ok := o.Rooms.GetRoom(name)
	if !ok || !room.IsMember(from) || !room.IsMember(target) {
		log.Debug().Str("module", "orch").Str("user_id", string(from)).Str("target", string(target)).Str("room", string(name)).Str("type", kind).Msg("signal dropped")
		return
	}
	o.Relay.Unicast(target, protocol.RelayedSignal{
		Kind:     kind,
		From:     from,
		RoomName: name,
		Payload:  payload,
	})
}

func othersInCall(all []domain.User, id domain.UserID) []domain.User {
	out := make([]domain.User, 0, len(all))
	for _, u := range all {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}
