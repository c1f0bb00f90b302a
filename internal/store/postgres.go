package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"chess-arena/internal/arena"
	"chess-arena/internal/rating"
)

// Postgres backs the store with a lib/pq connection pool.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// InitSchema creates the tables if they do not exist yet.
func (p *Postgres) InitSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS users (
			id          BIGSERIAL PRIMARY KEY,
			username    TEXT NOT NULL UNIQUE,
			password    TEXT NOT NULL,
			rating      INTEGER NOT NULL DEFAULT 1200,
			wins        INTEGER NOT NULL DEFAULT 0,
			losses      INTEGER NOT NULL DEFAULT 0,
			draws       INTEGER NOT NULL DEFAULT 0,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS games (
			id             BIGSERIAL PRIMARY KEY,
			room_id        TEXT NOT NULL,
			white_user_id  BIGINT REFERENCES users(id),
			black_user_id  BIGINT REFERENCES users(id),
			result         TEXT NOT NULL,
			reason         TEXT NOT NULL,
			moves          JSONB NOT NULL,
			started_at     TIMESTAMPTZ NOT NULL,
			finished_at    TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS games_room_idx ON games (room_id);`
	_, err := p.db.ExecContext(ctx, ddl)
	return err
}

func (p *Postgres) CreateUser(ctx context.Context, username, password string) (*User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	const query = `
		INSERT INTO users (username, password, rating)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	u := &User{Username: username, Rating: rating.InitialRating}
	err = p.db.QueryRowContext(ctx, query, username, hash, rating.InitialRating).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (p *Postgres) Authenticate(ctx context.Context, username, password string) (*User, error) {
	const query = `
		SELECT id, username, password, rating, wins, losses, draws, created_at
		FROM users WHERE username = $1`

	var (
		u    User
		hash string
	)
	err := p.db.QueryRowContext(ctx, query, username).
		Scan(&u.ID, &u.Username, &hash, &u.Rating, &u.Wins, &u.Losses, &u.Draws, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredential
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	if !checkPassword(hash, password) {
		return nil, ErrInvalidCredential
	}
	return &u, nil
}

func (p *Postgres) GetUser(ctx context.Context, id int64) (*User, error) {
	const query = `
		SELECT id, username, rating, wins, losses, draws, created_at
		FROM users WHERE id = $1`

	var u User
	err := p.db.QueryRowContext(ctx, query, id).
		Scan(&u.ID, &u.Username, &u.Rating, &u.Wins, &u.Losses, &u.Draws, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

// RecordCompletedGame writes the game row and, when both seats belong to
// accounts, the rating updates inside one transaction.
func (p *Postgres) RecordCompletedGame(ctx context.Context, rec *arena.GameRecord) error {
	if rec == nil {
		return fmt.Errorf("nil game record")
	}
	moves, err := json.Marshal(rec.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const insert = `
		INSERT INTO games (room_id, white_user_id, black_user_id, result, reason, moves, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)`
	_, err = tx.ExecContext(ctx, insert,
		rec.RoomID,
		nullID(rec.WhiteUserID), nullID(rec.BlackUserID),
		string(rec.Result), string(rec.Reason),
		moves,
		rec.CreatedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}

	// ratings move only when both seats were claimed by accounts
	if rec.WhiteUserID != 0 && rec.BlackUserID != 0 {
		white, err := lockStats(ctx, tx, rec.WhiteUserID)
		if err != nil {
			return err
		}
		black, err := lockStats(ctx, tx, rec.BlackUserID)
		if err != nil {
			return err
		}
		newWhite, newBlack := rating.Apply(white, black, rec.Result)
		if err := writeStats(ctx, tx, rec.WhiteUserID, newWhite); err != nil {
			return err
		}
		if err := writeStats(ctx, tx, rec.BlackUserID, newBlack); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit game record: %w", err)
	}
	return nil
}

func lockStats(ctx context.Context, tx *sql.Tx, id int64) (rating.Stats, error) {
	const query = `SELECT rating, wins, losses, draws FROM users WHERE id = $1 FOR UPDATE`
	var s rating.Stats
	err := tx.QueryRowContext(ctx, query, id).Scan(&s.Rating, &s.Wins, &s.Losses, &s.Draws)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrUserNotFound
	}
	if err != nil {
		return s, fmt.Errorf("lock user %d: %w", id, err)
	}
	return s, nil
}

func writeStats(ctx context.Context, tx *sql.Tx, id int64, s rating.Stats) error {
	const query = `UPDATE users SET rating = $2, wins = $3, losses = $4, draws = $5 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id, s.Rating, s.Wins, s.Losses, s.Draws); err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}
	return nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
