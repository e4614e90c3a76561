package core

import "github.com/dkeye/ghostchat/internal/domain"

// MemberSession binds an authenticated user and its live transport endpoint.
// This is what the presence registry stores and the relay fans out to.
type MemberSession interface {
	Meta() *domain.User
	Signal() SignalConnection
}
