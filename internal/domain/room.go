package domain

import (
	"errors"
	"regexp"
)

const (
	MinRoomNameLen = 3
	MaxRoomNameLen = 30
)

var (
	ErrRoomNameTooShort = errors.New("room name too short")
	ErrRoomNameTooLong  = errors.New("room name too long")
	ErrRoomNameInvalid  = errors.New("room name contains invalid characters")
)

var roomNamePattern = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

// RoomName is case-sensitive; "Lobby" and "lobby" are different rooms.
type RoomName string

func (n RoomName) Validate() error {
	switch {
	case len(n) < MinRoomNameLen:
		return ErrRoomNameTooShort
	case len(n) > MaxRoomNameLen:
		return ErrRoomNameTooLong
	case !roomNamePattern.MatchString(string(n)):
		return ErrRoomNameInvalid
	}
	return nil
}

type Room struct {
	Name RoomName
}
