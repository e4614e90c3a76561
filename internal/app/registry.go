package app

import (
	"context"
	"sort"
	"sync"

	"github.com/dkeye/ghostchat/internal/core"
	"github.com/dkeye/ghostchat/internal/domain"
	"github.com/rs/zerolog/log"
)

type presenceEntry struct {
	Session core.MemberSession
	Rooms   map[domain.RoomName]struct{}
	Cancel  context.CancelFunc
}

// Registry is the presence registry: one live session per user id and the
// set of rooms that user has joined.
type Registry struct {
	mu    sync.RWMutex
	users map[domain.UserID]*presenceEntry
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[domain.UserID]*presenceEntry)}
}

// Register stores or overwrites the live session for its user and resets the
// joined-room set. The overwritten session, if any, is returned.
func (r *Registry) Register(sess core.MemberSession, cancel context.CancelFunc) (core.MemberSession, bool) {
	id := sess.Meta().ID
	r.mu.Lock()
	defer r.mu.Unlock()
	var (
		prev     core.MemberSession
		replaced bool
	)
	if e, ok := r.users[id]; ok {
		prev, replaced = e.Session, true
	}
	r.users[id] = &presenceEntry{
		Session: sess,
		Rooms:   make(map[domain.RoomName]struct{}),
		Cancel:  cancel,
	}
	log.Info().Str("module", "app.registry").Str("user_id", string(id)).Bool("replaced", replaced).Msg("registered")
	return prev, replaced
}

// Unregister removes the entry only while conn is still the live handle.
func (r *Registry) Unregister(id domain.UserID, conn core.SignalConnection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.users[id]
	if !ok || e.Session.Signal() != conn {
		return false
	}
	delete(r.users, id)
	log.Info().Str("module", "app.registry").Str("user_id", string(id)).Msg("unregistered")
	return true
}

func (r *Registry) Lookup(id domain.UserID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.users[id]; ok {
		return e.Session, true
	}
	return nil, false
}

// IsLive reports whether conn is the registered handle for id.
func (r *Registry) IsLive(id domain.UserID, conn core.SignalConnection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.users[id]
	return ok && e.Session.Signal() == conn
}

// Snapshot lists registered users ordered by username then id.
// An empty exclude keeps everyone.
func (r *Registry) Snapshot(exclude domain.UserID) []domain.User {
	r.mu.RLock()
	out := make([]domain.User, 0, len(r.users))
	for id, e := range r.users {
		if exclude != "" && id == exclude {
			continue
		}
		out = append(out, *e.Session.Meta())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *Registry) SessionsSnapshot() []core.MemberSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.MemberSession, 0, len(r.users))
	for _, e := range r.users {
		out = append(out, e.Session)
	}
	return out
}

// JoinedRooms is sorted by name.
func (r *Registry) JoinedRooms(id domain.UserID) []domain.RoomName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.users[id]
	if !ok {
		return nil
	}
	out := make([]domain.RoomName, 0, len(e.Rooms))
	for name := range e.Rooms {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) AddRoom(id domain.UserID, name domain.RoomName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.users[id]
	if !ok {
		return false
	}
	e.Rooms[name] = struct{}{}
	log.Debug().Str("module", "app.registry").Str("user_id", string(id)).Str("room", string(name)).Msg("room added")
	return true
}

func (r *Registry) RemoveRoom(id domain.UserID, name domain.RoomName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.users[id]; ok {
		delete(e.Rooms, name)
		log.Debug().Str("module", "app.registry").Str("user_id", string(id)).Str("room", string(name)).Msg("room removed")
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Cancel stops the pumps of the registered session for id.
func (r *Registry) Cancel(id domain.UserID) bool {
	r.mu.RLock()
	e, ok := r.users[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("user_id", string(id)).Msg("canceled session")
	return true
}
