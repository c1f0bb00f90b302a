// Package store persists player accounts, ratings and finished games.
// Two implementations exist: Postgres for deployments and an in-memory
// store for development and tests.
package store

import (
	"context"
	"errors"
	"time"

	"chess-arena/internal/arena"
)

var (
	ErrUsernameTaken     = errors.New("username already taken")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrUserNotFound      = errors.New("user not found")
)

// User is one registered account with its rating ledger.
type User struct {
	ID        int64     `json:"user_id"`
	Username  string    `json:"username"`
	Rating    int       `json:"rating"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	Draws     int       `json:"draws"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the full persistence surface. RecordCompletedGame satisfies
// arena.Recorder: the game row and both rating updates commit together
// or not at all.
type Store interface {
	CreateUser(ctx context.Context, username, password string) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	RecordCompletedGame(ctx context.Context, rec *arena.GameRecord) error
	Close() error
}
