package app

import (
	"sort"
	"sync"

	"github.com/dkeye/ghostchat/internal/core"
	"github.com/dkeye/ghostchat/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomDirectory maps room names to active rooms. A room is present only
// while it has members; the coordinator stops it when the last one leaves.
type RoomDirectory struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]core.RoomService
}

func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{rooms: make(map[domain.RoomName]core.RoomService)}
}

var _ core.RoomManager = (*RoomDirectory)(nil)

func (d *RoomDirectory) GetOrCreate(name domain.RoomName) (core.RoomService, bool) {
	d.mu.RLock()
	room, ok := d.rooms[name]
	d.mu.RUnlock()
	if ok {
		return room, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if room, ok = d.rooms[name]; ok {
		return room, false
	}
	room = core.NewRoomService(&domain.Room{Name: name})
	d.rooms[name] = room
	log.Info().Str("module", "app.rooms").Str("room", string(name)).Msg("room created")
	return room, true
}

func (d *RoomDirectory) GetRoom(name domain.RoomName) (core.RoomService, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[name]
	return room, ok
}

// List is sorted by room name.
func (d *RoomDirectory) List() []core.RoomInfo {
	d.mu.RLock()
	out := make([]core.RoomInfo, 0, len(d.rooms))
	for _, r := range d.rooms {
		out = append(out, r.Info())
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (d *RoomDirectory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

func (d *RoomDirectory) StopRoom(name domain.RoomName) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rooms[name]; !ok {
		return
	}
	delete(d.rooms, name)
	log.Info().Str("module", "app.rooms").Str("room", string(name)).Msg("room deleted")
}
