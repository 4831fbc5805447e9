package game

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Repository archives finished games in Postgres, one row per session keyed
// by the session UUID. User and channel identifiers are hashed the same way
// as the stats keys.
type Repository struct {
	db *sql.DB
}

func NewRepository(dsn string) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	r := &Repository{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS aki_games (
    session_id   UUID        PRIMARY KEY,
    user_hash    TEXT        NOT NULL,
    channel_hash TEXT        NOT NULL,
    outcome      TEXT        NOT NULL,
    steps        INTEGER     NOT NULL,
    progression  DOUBLE PRECISION NOT NULL,
    guess_name   TEXT        NOT NULL DEFAULT '',
    started_at   TIMESTAMPTZ NOT NULL,
    finished_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS aki_games_user_idx ON aki_games (user_hash, finished_at DESC);`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveGame upserts on the session UUID, so a game recorded by two racing
// finishers still ends up as one row.
func (r *Repository) SaveGame(ctx context.Context, rec *GameRecord) error {
	const q = `
INSERT INTO aki_games (session_id, user_hash, channel_hash, outcome, steps, progression, guess_name, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (session_id) DO UPDATE SET
    outcome     = EXCLUDED.outcome,
    steps       = EXCLUDED.steps,
    progression = EXCLUDED.progression,
    guess_name  = EXCLUDED.guess_name,
    finished_at = EXCLUDED.finished_at`
	_, err := r.db.ExecContext(ctx, q,
		rec.SessionID,
		hashID(rec.UserID),
		hashID(rec.ChannelID),
		string(rec.Outcome),
		rec.Steps,
		rec.Progression,
		rec.GuessName,
		rec.StartedAt,
		rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert game: %w", err)
	}
	return nil
}

// RecentGames lists a user's latest archived games, newest first. Channel
// identifiers come back as the stored hashes.
func (r *Repository) RecentGames(ctx context.Context, userID string, limit int) ([]*GameRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
SELECT session_id, channel_hash, outcome, steps, progression, guess_name, started_at, finished_at
FROM aki_games WHERE user_hash = $1 ORDER BY finished_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, hashID(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var out []*GameRecord
	for rows.Next() {
		rec := &GameRecord{UserID: userID}
		var outcome string
		if err := rows.Scan(&rec.SessionID, &rec.ChannelID, &outcome, &rec.Steps, &rec.Progression, &rec.GuessName, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		rec.Outcome = Outcome(outcome)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repository) Close() error { return r.db.Close() }
