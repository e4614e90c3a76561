package domain

// Member represents user's participation meta for a room.
// Seq orders members by join time and breaks ownership ties.
type Member struct {
	User *User
	Seq  uint64
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User, seq uint64) *Member {
	return &Member{User: user, Seq: seq}
}
