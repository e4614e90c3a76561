package core

import (
	"github.com/dkeye/ghostchat/internal/domain"
)

// RoomService is the core-facing API of a room.
// It owns the membership, mute and call sets but never touches transport
// resources. Muted and call sets are always subsets of the member set.
type RoomService interface {
	Room() *domain.Room
	Owner() domain.UserID
	SetOwner(id domain.UserID) bool
	// Successor is the earliest-joined member other than except.
	Successor(except domain.UserID) (domain.UserID, bool)

	MemberCount() int
	IsMember(id domain.UserID) bool
	MembersSnapshot() []domain.User
	MemberIDs() []domain.UserID

	// AddMember reports false if the user is already a member.
	AddMember(user *domain.User) bool
	// RemoveMember also drops the user from the mute and call sets.
	RemoveMember(id domain.UserID) bool

	SetMuted(id domain.UserID, muted bool) bool
	IsMuted(id domain.UserID) bool
	MutedIDs() []domain.UserID

	JoinCall(id domain.UserID) bool
	LeaveCall(id domain.UserID) bool
	InCall(id domain.UserID) bool
	CallParticipants() []domain.User

	Info() RoomInfo
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"memberCount"`
	OwnerID     domain.UserID   `json:"ownerId"`
	InCall      int             `json:"inCall"`
}

type RoomManager interface {
	// GetOrCreate reports created=true when the name was absent.
	GetOrCreate(name domain.RoomName) (room RoomService, created bool)
	GetRoom(name domain.RoomName) (RoomService, bool)
	List() []RoomInfo
	Count() int
	StopRoom(name domain.RoomName)
}
