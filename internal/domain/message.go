package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrMediaTypeUnknown = errors.New("unknown message type")

type MediaType string

const (
	MediaText  MediaType = "text"
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
	MediaFile  MediaType = "file"
	MediaGIF   MediaType = "gif"
)

// ParseMediaType maps an empty kind to text.
func ParseMediaType(s string) (MediaType, error) {
	switch mt := MediaType(s); mt {
	case "":
		return MediaText, nil
	case MediaText, MediaImage, MediaVideo, MediaAudio, MediaFile, MediaGIF:
		return mt, nil
	default:
		return "", ErrMediaTypeUnknown
	}
}

// Message is a chat message as fanned out to a room. It is never stored.
type Message struct {
	ID             string    `json:"id"`
	SenderID       UserID    `json:"senderId"`
	SenderUsername string    `json:"senderUsername"`
	Message        string    `json:"message"`
	MessageType    MediaType `json:"messageType"`
	Timestamp      time.Time `json:"timestamp"`
}

// DirectMessage is a one-to-one message; delivery is attempted once.
type DirectMessage struct {
	ID             string    `json:"id"`
	SenderID       UserID    `json:"senderId"`
	SenderUsername string    `json:"senderUsername"`
	TargetUserID   UserID    `json:"targetUserId"`
	Message        string    `json:"message"`
	MessageType    MediaType `json:"messageType"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewMessage(sender User, body string, kind MediaType, now time.Time) Message {
	return Message{
		ID:             uuid.NewString(),
		SenderID:       sender.ID,
		SenderUsername: sender.Username,
		Message:        body,
		MessageType:    kind,
		Timestamp:      now.UTC(),
	}
}

func NewDirectMessage(sender User, target UserID, body string, kind MediaType, now time.Time) DirectMessage {
	return DirectMessage{
		ID:             uuid.NewString(),
		SenderID:       sender.ID,
		SenderUsername: sender.Username,
		TargetUserID:   target,
		Message:        body,
		MessageType:    kind,
		Timestamp:      now.UTC(),
	}
}
