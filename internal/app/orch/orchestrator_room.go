package orch

import (
	"github.com/dkeye/ghostchat/internal/core"
	"github.com/dkeye/ghostchat/internal/domain"
	"github.com/dkeye/ghostchat/internal/protocol"
	"github.com/rs/zerolog/log"
)

// JoinRoom creates the room on first join with the joiner as owner. A repeated
// join only re-sends the snapshot to the joiner.
func (o *Orchestrator) JoinRoom(id domain.UserID, name domain.RoomName) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess, ok := o.Registry.Lookup(id)
	if !ok {
		return
	}
	room, created := o.Rooms.GetOrCreate(name)
	if !room.AddMember(sess.Meta()) {
		o.Relay.Unicast(id, roomJoined(room))
		return
	}
	o.Registry.AddRoom(id, name)
	log.Info().Str("module", "orch").Str("user_id", string(id)).Str("room", string(name)).Bool("created", created).Msg("joined room")

	o.Relay.Unicast(id, roomJoined(room))
	o.Relay.BroadcastRoom(room.MemberIDs(), id, membership(protocol.TypeUserJoinedRoom, room, *sess.Meta()))
}

func (o *Orchestrator) LeaveRoom(id domain.UserID, name domain.RoomName) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.leaveLocked(id, name)
}

// MuteUser toggles target's mute flag. Only the owner may do it, never on
// themselves, and only for a current member; anything else is ignored.
func (o *Orchestrator) MuteUser(requester domain.UserID, name domain.RoomName, target domain.UserID, mute bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	room, ok := o.moderatableLocked(requester, name, target)
	if !ok {
		return
	}
	room.SetMuted(target, mute)
	log.Info().Str("module", "orch").Str("room", string(name)).Str("target", string(target)).Bool("muted", mute).Msg("mute updated")
	o.Relay.BroadcastRoom(room.MemberIDs(), "", moderation(room))
}

// RemoveUser notifies target and then runs the leave transition for it.
func (o *Orchestrator) RemoveUser(requester domain.UserID, name domain.RoomName, target domain.UserID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.moderatableLocked(requester, name, target); !ok {
		return
	}
	log.Info().Str("module", "orch").Str("room", string(name)).Str("target", string(target)).Msg("member removed")
	o.Relay.Unicast(target, protocol.RemovedFromRoom{RoomName: name})
	o.leaveLocked(target, name)
}

func (o *Orchestrator) moderatableLocked(requester domain.UserID, name domain.RoomName, target domain.UserID) (core.RoomService, bool) {
	room, ok := o.Rooms.GetRoom(name)
	if !ok {
		return nil, false
	}
	if room.Owner() != requester || requester == target || !room.IsMember(target) {
		log.Debug().Str("module", "orch").Str("room", string(name)).Str("user_id", string(requester)).Str("target", string(target)).Msg("moderation refused")
		return nil, false
	}
	return room, true
}

// leaveLocked removes id from the room: call first, then membership. The room
// is deleted when it empties; otherwise a departing owner is replaced.
func (o *Orchestrator) leaveLocked(id domain.UserID, name domain.RoomName) bool {
	room, ok := o.Rooms.GetRoom(name)
	if !ok || !room.IsMember(id) {
		o.Registry.RemoveRoom(id, name)
		return false
	}
	user := memberOf(room, id)

	if room.LeaveCall(id) {
		o.Relay.BroadcastRoom(room.MemberIDs(), id, protocol.CallMembership{
			Kind:     protocol.TypeUserLeftCall,
			UserID:   id,
			RoomName: name,
		})
	}

	wasOwner := room.Owner() == id
	room.RemoveMember(id)
	o.Registry.RemoveRoom(id, name)
	log.Info().Str("module", "orch").Str("user_id", string(id)).Str("room", string(name)).Msg("left room")

	if room.MemberCount() == 0 {
		o.Rooms.StopRoom(name)
		return true
	}
	if wasOwner {
		if next, ok := room.Successor(""); ok {
			room.SetOwner(next)
			o.Relay.BroadcastRoom(room.MemberIDs(), "", moderation(room))
		}
	}
	o.Relay.BroadcastRoom(room.MemberIDs(), "", membership(protocol.TypeUserLeftRoom, room, user))
	return true
}

func memberOf(room core.RoomService, id domain.UserID) domain.User {
	for _, u := range room.MembersSnapshot() {
		if u.ID == id {
			return u
		}
	}
	return domain.User{ID: id}
}

func roomJoined(room core.RoomService) protocol.RoomJoined {
	return protocol.RoomJoined{
		RoomName:     room.Room().Name,
		Users:        room.MembersSnapshot(),
		OwnerID:      room.Owner(),
		MutedUserIDs: room.MutedIDs(),
	}
}

func membership(kind string, room core.RoomService, user domain.User) protocol.RoomMembership {
	return protocol.RoomMembership{
		Kind:         kind,
		RoomName:     room.Room().Name,
		Users:        room.MembersSnapshot(),
		OwnerID:      room.Owner(),
		MutedUserIDs: room.MutedIDs(),
		UserID:       user.ID,
		Username:     user.Username,
	}
}

func moderation(room core.RoomService) protocol.ModerationUpdated {
	return protocol.ModerationUpdated{
		RoomName:     room.Room().Name,
		OwnerID:      room.Owner(),
		MutedUserIDs: room.MutedIDs(),
	}
}
