package game

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statsKeyPrefix = "aki:stats:"
	statsTTL       = 30 * 24 * time.Hour
)

// StatsStore keeps per-user play counters in Redis hashes. User identifiers
// are hashed before use as key material.
type StatsStore struct {
	rdb *redis.Client
}

func NewStatsStore(rdb *redis.Client) *StatsStore {
	return &StatsStore{rdb: rdb}
}

// NewStatsStoreFromURL connects and pings before returning, so a bad Redis
// config fails at startup rather than on the first game.
func NewStatsStoreFromURL(url string) (*StatsStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &StatsStore{rdb: rdb}, nil
}

func (s *StatsStore) Close() error { return s.rdb.Close() }

// PlayStats is one user's lifetime counters within the retention window.
type PlayStats struct {
	Games     int64
	Victories int64
	Defeats   int64
	Timeouts  int64
}

// hashID anonymizes chat identifiers (users, channels) before they reach
// key material or archive rows.
func hashID(id string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(id)))
	return hex.EncodeToString(sum[:16])
}

func statsKey(userID string) string {
	return statsKeyPrefix + hashID(userID)
}

func (s *StatsStore) RecordStart(ctx context.Context, userID string) error {
	key := statsKey(userID)
	pipe := s.rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, "games", 1)
	pipe.Expire(ctx, key, statsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record start: %w", err)
	}
	return nil
}

func (s *StatsStore) RecordOutcome(ctx context.Context, userID string, outcome Outcome) error {
	var field string
	switch outcome {
	case OutcomeVictory:
		field = "victories"
	case OutcomeDefeat:
		field = "defeats"
	case OutcomeTimeout:
		field = "timeouts"
	default:
		return fmt.Errorf("unknown outcome: %s", outcome)
	}
	key := statsKey(userID)
	pipe := s.rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, field, 1)
	pipe.Expire(ctx, key, statsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// Snapshot reads the user's counters. Missing keys yield zeroes.
func (s *StatsStore) Snapshot(ctx context.Context, userID string) (*PlayStats, error) {
	vals, err := s.rdb.HGetAll(ctx, statsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}
	ps := &PlayStats{}
	for field, raw := range vals {
		var n int64
		if _, err := fmt.Sscan(raw, &n); err != nil {
			continue
		}
		switch field {
		case "games":
			ps.Games = n
		case "victories":
			ps.Victories = n
		case "defeats":
			ps.Defeats = n
		case "timeouts":
			ps.Timeouts = n
		}
	}
	return ps, nil
}
