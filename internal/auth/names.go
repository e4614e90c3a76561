package auth

import (
	"errors"
	"sync"

	"github.com/dkeye/ghostchat/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrUsernameTaken = errors.New("username already taken")

// Names keeps every username handed out since the process started.
// Names are never released.
type Names struct {
	mu    sync.Mutex
	taken map[string]domain.UserID
}

func NewNames() *Names {
	return &Names{taken: make(map[string]domain.UserID)}
}

// Reserve validates username and mints a new user for it.
func (n *Names) Reserve(username string) (domain.User, error) {
	user, err := domain.NewUser(username)
	if err != nil {
		return domain.User{}, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.taken[user.Username]; ok {
		return domain.User{}, ErrUsernameTaken
	}
	n.taken[user.Username] = user.ID
	log.Info().Str("module", "auth").Str("user_id", string(user.ID)).Str("username", user.Username).Msg("username reserved")
	return *user, nil
}

func (n *Names) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.taken)
}
