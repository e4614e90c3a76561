// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxUserIDLen   = 64
	MinUsernameLen = 3
	MaxUsernameLen = 20
)

var (
	ErrUsernameEmpty    = errors.New("username empty")
	ErrUsernameTooShort = errors.New("username too short")
	ErrUsernameTooLong  = errors.New("username too long")
	ErrUsernameInvalid  = errors.New("username contains invalid characters")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

type UserID string

type User struct {
	ID       UserID `json:"userId"`
	Username string `json:"username"`
}

// NewUser validates username and mints a fresh id for it.
func NewUser(username string) (*User, error) {
	username, err := NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	return &User{ID: UserID(uuid.NewString()), Username: username}, nil
}

// NormalizeUsername trims surrounding whitespace and checks length and charset.
func NormalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return "", ErrUsernameEmpty
	case len(username) < MinUsernameLen:
		return "", ErrUsernameTooShort
	case len(username) > MaxUsernameLen:
		return "", ErrUsernameTooLong
	case !usernamePattern.MatchString(username):
		return "", ErrUsernameInvalid
	}
	return username, nil
}

func (id UserID) Valid() bool {
	return id != "" && len(id) <= MaxUserIDLen
}
