package orch

import (
	"github.com/dkeye/ghostchat/internal/domain"
	"github.com/dkeye/ghostchat/internal/protocol"
	"github.com/rs/zerolog/log"
)

// SendMessage fans a message out to the whole room, sender included.
// Non-members are ignored; muted members get a single notice.
func (o *Orchestrator) SendMessage(id domain.UserID, name domain.RoomName, body string, kind domain.MediaType) {
	o.mu.Lock()
	defer o.mu.Unlock()

	room, ok := o.Rooms.GetRoom(name)
	if !ok || !room.IsMember(id) {
		log.Debug().Str("module", "orch").Str("user_id", string(id)).Str("room", string(name)).Msg("message from non-member dropped")
		return
	}
	if room.IsMuted(id) {
		o.Relay.Unicast(id, protocol.MutedInRoom{RoomName: name})
		return
	}
	sess, ok := o.Registry.Lookup(id)
	if !ok {
		return
	}
	msg := domain.NewMessage(*sess.Meta(), body, kind, o.now())
	o.Relay.BroadcastRoom(room.MemberIDs(), "", protocol.NewMessage{RoomName: name, Message: msg})
}

// SendDirectMessage delivers to target and echoes to the sender. An offline
// target drops the message silently.
func (o *Orchestrator) SendDirectMessage(id, target domain.UserID, body string, kind domain.MediaType) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess, ok := o.Registry.Lookup(id)
	if !ok {
		return
	}
	if _, ok := o.Registry.Lookup(target); !ok {
		log.Debug().Str("module", "orch").Str("user_id", string(id)).Str("target", string(target)).Msg("direct message target offline")
		return
	}
	dm := domain.NewDirectMessage(*sess.Meta(), target, body, kind, o.now())
	o.Relay.Unicast(target, protocol.DirectMessage{Kind: protocol.TypeDirectMessageReceived, DirectMessage: dm})
	o.Relay.Unicast(id, protocol.DirectMessage{Kind: protocol.TypeDirectMessageSent, DirectMessage: dm})
}

// Typing tells the rest of the room that id started or stopped typing.
func (o *Orchestrator) Typing(id domain.UserID, name domain.RoomName, typing bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	room, ok := o.Rooms.GetRoom(name)
	if !ok || !room.IsMember(id) {
		return
	}
	sess, ok := o.Registry.Lookup(id)
	if !ok {
		return
	}
	kind := protocol.TypeUserStoppedTyping
	if typing {
		kind = protocol.TypeUserTyping
	}
	o.Relay.BroadcastRoom(room.MemberIDs(), id, protocol.UserTyping{
		Kind:     kind,
		UserID:   id,
		Username: sess.Meta().Username,
		RoomName: name,
	})
}
