package app

import (
	"fmt"

	"github.com/dkeye/ghostchat/internal/core"
)

type BackpressureAction int

const (
	DropFrame BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a session whose outbound buffer is full.
type Policy interface {
	OnBackPressure(member core.MemberSession) BackpressureAction
}

type SimplePolicy struct {
	Action BackpressureAction
}

func (p SimplePolicy) OnBackPressure(core.MemberSession) BackpressureAction {
	return p.Action
}

// ParsePolicy accepts "drop" or "kick"; empty means drop.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return SimplePolicy{Action: DropFrame}, nil
	case "kick":
		return SimplePolicy{Action: KickMember}, nil
	default:
		return nil, fmt.Errorf("unknown backpressure policy %q", name)
	}
}
