// Package orch is the room coordinator. Every exported operation runs under
// one lock, so each is atomic with respect to the presence registry and the
// room directory.
package orch

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/ghostchat/internal/app"
	"github.com/dkeye/ghostchat/internal/core"
	"github.com/dkeye/ghostchat/internal/domain"
	"github.com/dkeye/ghostchat/internal/protocol"
	"github.com/rs/zerolog/log"
)

type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Relay    *app.Dispatcher
	Now      func() time.Time

	mu sync.Mutex
}

func New(reg *app.Registry, rooms core.RoomManager, relay *app.Dispatcher) *Orchestrator {
	return &Orchestrator{Registry: reg, Rooms: rooms, Relay: relay, Now: time.Now}
}

// Connect registers sess as its user's live session. A previous session of the
// same user is torn down as a full disconnect first and then closed.
func (o *Orchestrator) Connect(sess core.MemberSession, cancel context.CancelFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := sess.Meta().ID
	if prev, ok := o.Registry.Lookup(id); ok && prev.Signal() != sess.Signal() {
		o.leaveAllLocked(id)
		o.Registry.Cancel(id)
		o.Registry.Unregister(id, prev.Signal())
		prev.Signal().Close()
		log.Info().Str("module", "orch").Str("user_id", string(id)).Msg("previous connection replaced")
	}
	o.Registry.Register(sess, cancel)
	log.Info().Str("module", "orch").Str("user_id", string(id)).Str("username", sess.Meta().Username).Msg("connected")
	o.broadcastOnlineLocked()
}

// Disconnect tears down the user only while conn is still its live handle,
// so the late close of a replaced connection is a no-op.
func (o *Orchestrator) Disconnect(id domain.UserID, conn core.SignalConnection) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.Registry.IsLive(id, conn) {
		log.Debug().Str("module", "orch").Str("user_id", string(id)).Msg("disconnect of stale connection ignored")
		return false
	}
	o.leaveAllLocked(id)
	o.Registry.Unregister(id, conn)
	log.Info().Str("module", "orch").Str("user_id", string(id)).Msg("disconnected")
	o.broadcastOnlineLocked()
	return true
}

// OnlineUsers answers the requester alone with every registered user.
func (o *Orchestrator) OnlineUsers(requester domain.UserID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Relay.Unicast(requester, protocol.OnlineUsers(o.Registry.Snapshot("")))
}

func (o *Orchestrator) WhoAmI(id domain.UserID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sess, ok := o.Registry.Lookup(id)
	if !ok {
		return
	}
	rooms := o.Registry.JoinedRooms(id)
	if rooms == nil {
		rooms = []domain.RoomName{}
	}
	o.Relay.Unicast(id, protocol.Identity{
		UserID:   id,
		Username: sess.Meta().Username,
		Rooms:    rooms,
	})
}

func (o *Orchestrator) leaveAllLocked(id domain.UserID) {
	for _, name := range o.Registry.JoinedRooms(id) {
		o.leaveLocked(id, name)
	}
}

func (o *Orchestrator) broadcastOnlineLocked() {
	o.Relay.BroadcastAll(protocol.OnlineUsers(o.Registry.Snapshot("")))
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}
