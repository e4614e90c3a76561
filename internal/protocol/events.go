package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/ghostchat/internal/domain"
)

// Event is an outbound payload; EventType names its envelope type.
type Event interface {
	EventType() string
}

type RoomJoined struct {
	RoomName     domain.RoomName `json:"roomName"`
	Users        []domain.User   `json:"users"`
	OwnerID      domain.UserID   `json:"ownerId"`
	MutedUserIDs []domain.UserID `json:"mutedUserIds"`
}

// RoomMembership is sent as user_joined_room or user_left_room.
type RoomMembership struct {
	Kind         string          `json:"-"`
	RoomName     domain.RoomName `json:"roomName"`
	Users        []domain.User   `json:"users"`
	OwnerID      domain.UserID   `json:"ownerId"`
	MutedUserIDs []domain.UserID `json:"mutedUserIds"`
	UserID       domain.UserID   `json:"userId"`
	Username     string          `json:"username"`
}

type NewMessage struct {
	RoomName domain.RoomName `json:"roomName"`
	Message  domain.Message  `json:"message"`
}

// UserTyping is sent as user_typing or user_stopped_typing.
type UserTyping struct {
	Kind     string          `json:"-"`
	UserID   domain.UserID   `json:"userId"`
	Username string          `json:"username"`
	RoomName domain.RoomName `json:"roomName"`
}

type ModerationUpdated struct {
	RoomName     domain.RoomName `json:"roomName"`
	OwnerID      domain.UserID   `json:"ownerId"`
	MutedUserIDs []domain.UserID `json:"mutedUserIds"`
}

type RemovedFromRoom struct {
	RoomName domain.RoomName `json:"roomName"`
}

type MutedInRoom struct {
	RoomName domain.RoomName `json:"roomName"`
}

type OnlineUsers []domain.User

// DirectMessage is sent as direct_message_received or direct_message_sent.
type DirectMessage struct {
	Kind string `json:"-"`
	domain.DirectMessage
}

type CallParticipants struct {
	RoomName     domain.RoomName `json:"roomName"`
	Participants []domain.User   `json:"participants"`
}

// CallMembership is sent as user_joined_call or user_left_call.
type CallMembership struct {
	Kind     string          `json:"-"`
	UserID   domain.UserID   `json:"userId"`
	RoomName domain.RoomName `json:"roomName"`
}

// RelayedSignal carries a WebRTC payload to its target unchanged.
type RelayedSignal struct {
	Kind     string          `json:"-"`
	From     domain.UserID   `json:"from"`
	RoomName domain.RoomName `json:"roomName"`
	Payload  json.RawMessage `json:"payload"`
}

type Error struct {
	Error string `json:"error"`
}

type Pong struct {
	TS int64 `json:"ts,omitempty"`
}

type Identity struct {
	UserID   domain.UserID     `json:"userId"`
	Username string            `json:"username"`
	Rooms    []domain.RoomName `json:"rooms"`
}

func (RoomJoined) EventType() string { return TypeRoomJoined }
func (e RoomMembership) EventType() string { return e.Kind }
func (NewMessage) EventType() string { return TypeNewMessage }
func (e UserTyping) EventType() string { return e.Kind }
func (ModerationUpdated) EventType() string { return TypeRoomModerationUpdated }
func (RemovedFromRoom) EventType() string { return TypeUserRemovedFromRoom }
func (MutedInRoom) EventType() string { return TypeUserMutedInRoom }
func (OnlineUsers) EventType() string { return TypeOnlineUsers }
func (e DirectMessage) EventType() string { return e.Kind }
func (CallParticipants) EventType() string { return TypeCallParticipants }
func (e CallMembership) EventType() string { return e.Kind }
func (e RelayedSignal) EventType() string { return e.Kind }
func (Error) EventType() string { return TypeError }
func (Pong) EventType() string { return TypePong }
func (Identity) EventType() string { return TypeWhoAmI }

// Encode wraps ev into an envelope ready to be written as one text frame.
func Encode(ev Event) ([]byte, error) {
	kind := ev.EventType()
	if kind == "" {
		return nil, fmt.Errorf("encode %T: empty event type", ev)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return json.Marshal(Envelope{Type: kind, Data: data})
}

// MustEncode is Encode for events whose fields always marshal.
func MustEncode(ev Event) []byte {
	b, err := Encode(ev)
	if err != nil {
		panic(err)
	}
	return b
}
