// Package presence tracks which registered users currently hold at least
// one live connection, backed by Redis so every server instance sees the
// same online set.
package presence

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyOnline = "presence:online" // hash: user id -> username
	keyConns  = "presence:conns:" // per-user live connection counter

	pingTimeout = 5 * time.Second
)

// OnlineUser is one entry of the online roster.
type OnlineUser struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Tracker maintains the online roster. A user stays listed until the last
// of their connections disconnects.
type Tracker struct {
	rdb *redis.Client
}

func New(redisURL string) (*Tracker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Tracker{rdb: rdb}, nil
}

// NewWithClient wraps an existing client; tests use this with miniredis.
func NewWithClient(rdb *redis.Client) *Tracker {
	return &Tracker{rdb: rdb}
}

func (t *Tracker) Close() error {
	if t == nil || t.rdb == nil {
		return nil
	}
	return t.rdb.Close()
}

// Connect records one more live connection for the user.
func (t *Tracker) Connect(ctx context.Context, userID int64, username string) error {
	if userID == 0 {
		return nil
	}
	field := strconv.FormatInt(userID, 10)
	if err := t.rdb.Incr(ctx, keyConns+field).Err(); err != nil {
		return err
	}
	return t.rdb.HSet(ctx, keyOnline, field, username).Err()
}

// Disconnect drops one connection; the user leaves the roster only when
// no connections remain.
func (t *Tracker) Disconnect(ctx context.Context, userID int64) error {
	if userID == 0 {
		return nil
	}
	field := strconv.FormatInt(userID, 10)
	left, err := t.rdb.Decr(ctx, keyConns+field).Result()
	if err != nil {
		return err
	}
	if left > 0 {
		return nil
	}
	if err := t.rdb.Del(ctx, keyConns+field).Err(); err != nil {
		return err
	}
	return t.rdb.HDel(ctx, keyOnline, field).Err()
}

// Online returns the current roster.
func (t *Tracker) Online(ctx context.Context) ([]OnlineUser, error) {
	entries, err := t.rdb.HGetAll(ctx, keyOnline).Result()
	if err != nil {
		return nil, err
	}
	out := make([]OnlineUser, 0, len(entries))
	for field, username := range entries {
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, OnlineUser{UserID: id, Username: username})
	}
	return out, nil
}
