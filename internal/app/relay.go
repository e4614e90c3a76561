package app

import (
	"github.com/dkeye/ghostchat/internal/core"
	"github.com/dkeye/ghostchat/internal/domain"
	"github.com/dkeye/ghostchat/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Dispatcher delivers encoded events. Every delivery is fire-and-forget:
// a failed send is handed to the policy and never retried.
type Dispatcher struct {
	Registry *Registry
	Policy   Policy
}

func NewDispatcher(reg *Registry, policy Policy) *Dispatcher {
	if policy == nil {
		policy = SimplePolicy{Action: DropFrame}
	}
	return &Dispatcher{Registry: reg, Policy: policy}
}

// Unicast reports whether the frame was queued for id.
func (d *Dispatcher) Unicast(id domain.UserID, ev protocol.Event) bool {
	sess, ok := d.Registry.Lookup(id)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("user_id", string(id)).Str("type", ev.EventType()).Msg("unicast target offline")
		return false
	}
	frame, ok := encode(ev)
	if !ok {
		return false
	}
	return d.deliver(sess, frame)
}

// BroadcastRoom sends ev to every id except one. Returns the number queued.
func (d *Dispatcher) BroadcastRoom(ids []domain.UserID, except domain.UserID, ev protocol.Event) int {
	frame, ok := encode(ev)
	if !ok {
		return 0
	}
	sent := 0
	for _, id := range ids {
		if except != "" && id == except {
			continue
		}
		sess, ok := d.Registry.Lookup(id)
		if !ok {
			continue
		}
		if d.deliver(sess, frame) {
			sent++
		}
	}
	log.Debug().Str("module", "app.relay").Str("type", ev.EventType()).Int("targets", len(ids)).Int("sent", sent).Msg("broadcast room")
	return sent
}

// BroadcastAll sends ev to every registered session.
func (d *Dispatcher) BroadcastAll(ev protocol.Event) int {
	frame, ok := encode(ev)
	if !ok {
		return 0
	}
	sent := 0
	for _, sess := range d.Registry.SessionsSnapshot() {
		if d.deliver(sess, frame) {
			sent++
		}
	}
	log.Debug().Str("module", "app.relay").Str("type", ev.EventType()).Int("sent", sent).Msg("broadcast all")
	return sent
}

func (d *Dispatcher) deliver(sess core.MemberSession, frame core.Frame) bool {
	err := sess.Signal().TrySend(frame)
	if err == nil {
		return true
	}
	id := string(sess.Meta().ID)
	switch d.Policy.OnBackPressure(sess) {
	case KickMember:
		log.Warn().Err(err).Str("module", "app.relay").Str("user_id", id).Msg("send failed, kicking")
		sess.Signal().Close()
	case DropFrame:
		log.Warn().Err(err).Str("module", "app.relay").Str("user_id", id).Msg("send failed, frame dropped")
	}
	return false
}

func encode(ev protocol.Event) (core.Frame, bool) {
	b, err := protocol.Encode(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("encode event")
		return nil, false
	}
	return core.Frame(b), true
}
