package store

import (
	"context"
	"sync"
	"time"

	"chess-arena/internal/arena"
	"chess-arena/internal/rating"
)

// Memory is a development-only in-memory Store used when no DB is
// configured.
type Memory struct {
	mu sync.RWMutex

	nextID int64

	usersByID   map[int64]*User
	usersByName map[string]*User
	passwords   map[int64]string
	games       []*arena.GameRecord
}

func NewMemory() *Memory {
	return &Memory{
		usersByID:   make(map[int64]*User),
		usersByName: make(map[string]*User),
		passwords:   make(map[int64]string),
	}
}

func (m *Memory) CreateUser(ctx context.Context, username, password string) (*User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.usersByName[username]; exists {
		return nil, ErrUsernameTaken
	}

	m.nextID++
	u := &User{
		ID:        m.nextID,
		Username:  username,
		Rating:    rating.InitialRating,
		CreatedAt: time.Now(),
	}
	m.usersByID[u.ID] = u
	m.usersByName[username] = u
	m.passwords[u.ID] = hash

	copy := *u
	return &copy, nil
}

func (m *Memory) Authenticate(ctx context.Context, username, password string) (*User, error) {
	// copy the row while the lock is held: rating updates mutate it in place
	m.mu.RLock()
	u, ok := m.usersByName[username]
	var copy User
	var hash string
	if ok {
		copy = *u
		hash = m.passwords[u.ID]
	}
	m.mu.RUnlock()

	if !ok || !checkPassword(hash, password) {
		return nil, ErrInvalidCredential
	}
	return &copy, nil
}

func (m *Memory) GetUser(ctx context.Context, id int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.usersByID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copy := *u
	return &copy, nil
}

func (m *Memory) RecordCompletedGame(ctx context.Context, rec *arena.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *rec
	stored.Moves = append([]string(nil), rec.Moves...)
	m.games = append(m.games, &stored)

	if rec.WhiteUserID == 0 || rec.BlackUserID == 0 {
		return nil
	}
	white, ok := m.usersByID[rec.WhiteUserID]
	if !ok {
		return ErrUserNotFound
	}
	black, ok := m.usersByID[rec.BlackUserID]
	if !ok {
		return ErrUserNotFound
	}

	ws := rating.Stats{Rating: white.Rating, Wins: white.Wins, Losses: white.Losses, Draws: white.Draws}
	bs := rating.Stats{Rating: black.Rating, Wins: black.Wins, Losses: black.Losses, Draws: black.Draws}
	ws, bs = rating.Apply(ws, bs, rec.Result)

	white.Rating, white.Wins, white.Losses, white.Draws = ws.Rating, ws.Wins, ws.Losses, ws.Draws
	black.Rating, black.Wins, black.Losses, black.Draws = bs.Rating, bs.Wins, bs.Losses, bs.Draws
	return nil
}

// Games returns a snapshot of the recorded games, oldest first.
func (m *Memory) Games() []*arena.GameRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*arena.GameRecord(nil), m.games...)
}

func (m *Memory) Close() error { return nil }
