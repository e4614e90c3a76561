package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/ghostchat/internal/domain"
)

var (
	ErrUnknownIntent   = errors.New("unknown intent")
	ErrMalformedIntent = errors.New("malformed intent")
)

// Intent is implemented only by the types in this file.
type Intent interface {
	IntentType() string
	validate() error
}

type JoinRoom struct {
	RoomName domain.RoomName `json:"roomName"`
}

type LeaveRoom struct {
	RoomName domain.RoomName `json:"roomName"`
}

type SendMessage struct {
	RoomName    domain.RoomName  `json:"roomName"`
	Message     string           `json:"message"`
	MessageType domain.MediaType `json:"messageType"`
}

type SendDirectMessage struct {
	TargetUserID domain.UserID    `json:"targetUserId"`
	Message      string           `json:"message"`
	MessageType  domain.MediaType `json:"messageType"`
}

// Typing covers typing_start and typing_stop.
type Typing struct {
	Kind     string          `json:"-"`
	RoomName domain.RoomName `json:"roomName"`
}

type MuteUser struct {
	RoomName     domain.RoomName `json:"roomName"`
	TargetUserID domain.UserID   `json:"targetUserId"`
	ShouldMute   *bool           `json:"shouldMute"`
}

type RemoveUser struct {
	RoomName     domain.RoomName `json:"roomName"`
	TargetUserID domain.UserID   `json:"targetUserId"`
}

// Call covers join_call and leave_call.
type Call struct {
	Kind     string          `json:"-"`
	RoomName domain.RoomName `json:"roomName"`
}

// Signal covers the three WebRTC negotiation categories. Payload is opaque.
type Signal struct {
	Kind         string          `json:"-"`
	TargetUserID domain.UserID   `json:"targetUserId"`
	RoomName     domain.RoomName `json:"roomName"`
	Payload      json.RawMessage `json:"payload"`
}

type GetOnlineUsers struct{}

type Ping struct {
	TS int64 `json:"ts,omitempty"`
}

type WhoAmI struct{}

func (JoinRoom) IntentType() string { return TypeJoinRoom }
func (LeaveRoom) IntentType() string { return TypeLeaveRoom }
func (SendMessage) IntentType() string { return TypeSendMessage }
func (SendDirectMessage) IntentType() string { return TypeSendDirectMessage }
func (t Typing) IntentType() string { return t.Kind }
func (MuteUser) IntentType() string { return TypeMuteUserInRoom }
func (RemoveUser) IntentType() string { return TypeRemoveUserFromRoom }
func (c Call) IntentType() string { return c.Kind }
func (s Signal) IntentType() string { return s.Kind }
func (GetOnlineUsers) IntentType() string { return TypeGetOnlineUsers }
func (Ping) IntentType() string { return TypePing }
func (WhoAmI) IntentType() string { return TypeWhoAmI }

func (i JoinRoom) validate() error { return validRoom(i.RoomName) }
func (i LeaveRoom) validate() error { return validRoom(i.RoomName) }
func (i Typing) validate() error { return validRoom(i.RoomName) }
func (i Call) validate() error { return validRoom(i.RoomName) }
func (GetOnlineUsers) validate() error { return nil }
func (Ping) validate() error { return nil }
func (WhoAmI) validate() error { return nil }

func (i *SendMessage) validateAndNormalize() error {
	if err := validRoom(i.RoomName); err != nil {
		return err
	}
	kind, err := validBody(i.Message, i.MessageType)
	if err != nil {
		return err
	}
	i.MessageType = kind
	return nil
}

func (i SendMessage) validate() error { return i.validateAndNormalize() }

func (i *SendDirectMessage) validateAndNormalize() error {
	if err := validTarget(i.TargetUserID); err != nil {
		return err
	}
	kind, err := validBody(i.Message, i.MessageType)
	if err != nil {
		return err
	}
	i.MessageType = kind
	return nil
}

func (i SendDirectMessage) validate() error { return i.validateAndNormalize() }

func (i MuteUser) validate() error {
	if err := validRoom(i.RoomName); err != nil {
		return err
	}
	if i.ShouldMute == nil {
		return fmt.Errorf("shouldMute is required")
	}
	return validTarget(i.TargetUserID)
}

func (i RemoveUser) validate() error {
	if err := validRoom(i.RoomName); err != nil {
		return err
	}
	return validTarget(i.TargetUserID)
}

func (i Signal) validate() error {
	if err := validRoom(i.RoomName); err != nil {
		return err
	}
	if err := validTarget(i.TargetUserID); err != nil {
		return err
	}
	p := bytes.TrimSpace(i.Payload)
	if len(p) == 0 || bytes.Equal(p, []byte("null")) {
		return fmt.Errorf("payload is required")
	}
	return nil
}

func validRoom(name domain.RoomName) error {
	if err := name.Validate(); err != nil {
		return fmt.Errorf("roomName: %w", err)
	}
	return nil
}

func validTarget(id domain.UserID) error {
	if !id.Valid() {
		return fmt.Errorf("targetUserId is required")
	}
	return nil
}

func validBody(body string, kind domain.MediaType) (domain.MediaType, error) {
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("message is required")
	}
	mt, err := domain.ParseMediaType(string(kind))
	if err != nil {
		return "", fmt.Errorf("messageType: %w", err)
	}
	return mt, nil
}

// DecodeIntent parses one inbound frame into its typed intent.
// Unknown types fail with ErrUnknownIntent; bad shapes with ErrMalformedIntent.
func DecodeIntent(data []byte) (Intent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIntent, err)
	}

	var in Intent
	switch env.Type {
	case TypeJoinRoom:
		var v JoinRoom
		if err := decodeData(env.Data, &v); err != nil {
			return nil, err
		}
		in = v
	case TypeLeaveRoom:
		var v LeaveRoom
		if err := decodeData(env.Data, &v); err != nil {
			return nil, err
		}
		in = v
	case TypeSendMessage:
		var v SendMessage
		if err := decodeData(env.Data, &v); err != nil {
			return nil, err
		}
		if err := v.validateAndNormalize(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedIntent, env.Type, err)
		}
		in = v
	case TypeSendDirectMessage:
		var v SendDirectMessage
		if err := decodeData(env.Data, &v); err != nil {
			return nil, err
		}
		if err := v.validateAndNormalize(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedIntent, env.Type, err)
		}
		in = v
	case TypeTypingStart, TypeTypingStop:
		v := Typing{Kind: env.Type}
		if err := decodeData(env.Data, &v); err != nil {
			return nil, err
		}
		in = v
	case TypeMuteUserInRoom:
		var v MuteUser
		if err := decodeData(env.Data, &v); err != nil {
			return nil, err
		}
		in = v
	case TypeRemoveUserFromRoom:
		var v RemoveUser
		if err := decodeData(env.Data, &v); err != nil {
			return nil, err
		}
		in = v
	case TypeJoinCall, TypeLeaveCall:
		v := Call{Kind: env.Type}
		if err := decodeData(env.Data, &v); err != nil {
			return nil, err
		}
		in = v
	case TypeWebRTCOffer, TypeWebRTCAnswer, TypeWebRTCICECandidate:
		v := Signal{Kind: env.Type}
		if err := decodeData(env.Data, &v); err != nil {
			return nil, err
		}
		in = v
	case TypeGetOnlineUsers:
		var v GetOnlineUsers
		if err := decodeData(env.Data, &v); err != nil {
			return nil, err
		}
		in = v
	case TypePing:
		var v Ping
		if err := decodeData(env.Data, &v); err != nil {
			return nil, err
		}
		in = v
	case TypeWhoAmI:
		var v WhoAmI
		if err := decodeData(env.Data, &v); err != nil {
			return nil, err
		}
		in = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, env.Type)
	}

	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedIntent, env.Type, err)
	}
	return in, nil
}

// decodeData rejects fields the intent does not define. Empty data decodes
// to the zero value so that validation reports the missing fields.
func decodeData(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedIntent, err)
	}
	return nil
}
