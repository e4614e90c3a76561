// Package protocol defines the JSON envelope exchanged over the websocket and
// the closed sets of inbound intents and outbound events.
package protocol

import "encoding/json"

// Inbound intent types.
const (
	TypeJoinRoom           = "join_room"
	TypeLeaveRoom          = "leave_room"
	TypeSendMessage        = "send_message"
	TypeSendDirectMessage  = "send_direct_message"
	TypeTypingStart        = "typing_start"
	TypeTypingStop         = "typing_stop"
	TypeMuteUserInRoom     = "mute_user_in_room"
	TypeRemoveUserFromRoom = "remove_user_from_room"
	TypeJoinCall           = "join_call"
	TypeLeaveCall          = "leave_call"
	TypeWebRTCOffer        = "webrtc_offer"
	TypeWebRTCAnswer       = "webrtc_answer"
	TypeWebRTCICECandidate = "webrtc_ice_candidate"
	TypeGetOnlineUsers     = "get_online_users"
	TypePing               = "ping"
	TypeWhoAmI             = "whoami"
)

// Outbound event types. The webrtc_* and whoami types are shared with intents.
const (
	TypeRoomJoined            = "room_joined"
	TypeUserJoinedRoom        = "user_joined_room"
	TypeUserLeftRoom          = "user_left_room"
	TypeNewMessage            = "new_message"
	TypeUserTyping            = "user_typing"
	TypeUserStoppedTyping     = "user_stopped_typing"
	TypeRoomModerationUpdated = "room_moderation_updated"
	TypeUserRemovedFromRoom   = "user_removed_from_room"
	TypeUserMutedInRoom       = "user_muted_in_room"
	TypeOnlineUsers           = "online_users"
	TypeDirectMessageReceived = "direct_message_received"
	TypeDirectMessageSent     = "direct_message_sent"
	TypeCallParticipants      = "call_participants"
	TypeUserJoinedCall        = "user_joined_call"
	TypeUserLeftCall          = "user_left_call"
	TypePong                  = "pong"
	TypeError                 = "error"
)

// Envelope is the JSON frame in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}
