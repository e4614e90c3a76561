package core

import (
	"sort"
	"sync"

	"github.com/dkeye/ghostchat/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	room *domain.Room

	mu      sync.RWMutex
	owner   domain.UserID
	members map[domain.UserID]*domain.Member
	muted   map[domain.UserID]struct{}
	call    map[domain.UserID]struct{}
	nextSeq uint64
}

func NewRoomService(room *domain.Room) RoomService {
	return &roomImpl{
		room:    room,
		members: make(map[domain.UserID]*domain.Member),
		muted:   make(map[domain.UserID]struct{}),
		call:    make(map[domain.UserID]struct{}),
	}
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) Owner() domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

func (r *roomImpl) SetOwner(id domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return false
	}
	r.owner = id
	log.Info().Str("module", "core.room").Str("room", string(r.room.Name)).Str("owner", string(id)).Msg("owner set")
	return true
}

func (r *roomImpl) Successor(except domain.UserID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		best  *domain.Member
		found bool
	)
	for id, m := range r.members {
		if id == except {
			continue
		}
		if !found || m.Seq < best.Seq {
			best, found = m, true
		}
	}
	if !found {
		return "", false
	}
	return best.User.ID, true
}

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *roomImpl) IsMember(id domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[id]
	return ok
}

func (r *roomImpl) AddMember(user *domain.User) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[user.ID]; ok {
		return false
	}
	r.nextSeq++
	r.members[user.ID] = domain.NewMember(user, r.nextSeq)
	if r.owner == "" {
		r.owner = user.ID
	}
	log.Info().Str("module", "core.room").Str("room", string(r.room.Name)).Str("user", string(user.ID)).Msg("member added")
	return true
}

func (r *roomImpl) RemoveMember(id domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return false
	}
	delete(r.members, id)
	delete(r.muted, id)
	delete(r.call, id)
	if r.owner == id {
		r.owner = ""
	}
	log.Info().Str("module", "core.room").Str("room", string(r.room.Name)).Str("user", string(id)).Msg("member removed")
	return true
}

func (r *roomImpl) SetMuted(id domain.UserID, muted bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return false
	}
	if muted {
		r.muted[id] = struct{}{}
	} else {
		delete(r.muted, id)
	}
	return true
}

func (r *roomImpl) IsMuted(id domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.muted[id]
	return ok
}

func (r *roomImpl) MutedIDs() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.idsLocked(r.muted)
}

func (r *roomImpl) JoinCall(id domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return false
	}
	if _, ok := r.call[id]; ok {
		return false
	}
	r.call[id] = struct{}{}
	return true
}

func (r *roomImpl) LeaveCall(id domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.call[id]; !ok {
		return false
	}
	delete(r.call, id)
	return true
}

func (r *roomImpl) InCall(id domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.call[id]
	return ok
}

func (r *roomImpl) CallParticipants() []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, 0, len(r.call))
	for _, m := range r.orderedLocked() {
		if _, ok := r.call[m.User.ID]; ok {
			out = append(out, *m.User)
		}
	}
	return out
}

func (r *roomImpl) MembersSnapshot() []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ordered := r.orderedLocked()
	out := make([]domain.User, 0, len(ordered))
	for _, m := range ordered {
		out = append(out, *m.User)
	}
	return out
}

func (r *roomImpl) MemberIDs() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ordered := r.orderedLocked()
	out := make([]domain.UserID, 0, len(ordered))
	for _, m := range ordered {
		out = append(out, m.User.ID)
	}
	return out
}

func (r *roomImpl) Info() RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RoomInfo{
		Name:        r.room.Name,
		MemberCount: len(r.members),
		OwnerID:     r.owner,
		InCall:      len(r.call),
	}
}

func (r *roomImpl) orderedLocked() []*domain.Member {
	out := make([]*domain.Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// idsLocked returns the members of set in join order.
func (r *roomImpl) idsLocked(set map[domain.UserID]struct{}) []domain.UserID {
	out := make([]domain.UserID, 0, len(set))
	for _, m := range r.orderedLocked() {
		if _, ok := set[m.User.ID]; ok {
			out = append(out, m.User.ID)
		}
	}
	return out
}
