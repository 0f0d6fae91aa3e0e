package game

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-engine/internal/quiz"
	"github.com/gokatarajesh/trivia-engine/internal/stats"
	"github.com/gokatarajesh/trivia-engine/internal/testmode"
)

// Session modes.
const (
	ModeQuiz = stats.ModeQuiz
	ModeTest = stats.ModeTest
)

// Snapshot is the read-only projection of a session published after every
// mutation. Exactly one of Quiz and Test is set.
type Snapshot struct {
	SessionID uuid.UUID         `json:"session_id"`
	Mode      string            `json:"mode"`
	PackageID string            `json:"package_id"`
	Quiz      *quiz.Session     `json:"quiz,omitempty"`
	Test      *testmode.Session `json:"test,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Ended reports whether the snapshot shows a finished session.
func (s Snapshot) Ended() bool {
	switch {
	case s.Quiz != nil:
		return s.Quiz.Ended
	case s.Test != nil:
		return s.Test.Ended
	}
	return false
}

const defaultSnapshotTTL = 2 * time.Hour

// RedisSnapshots keeps the latest snapshot of each session in Redis so results
// stay readable after the in-memory session is closed.
type RedisSnapshots struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRedisSnapshots(redis *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisSnapshots {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &RedisSnapshots{
		redis:  redis,
		ttl:    ttl,
		logger: logger.With().Str("component", "session_snapshots").Logger(),
	}
}

func (s *RedisSnapshots) key(id uuid.UUID) string {
	return fmt.Sprintf("session:snapshot:%s", id.String())
}

// Save overwrites the stored snapshot and refreshes its TTL.
func (s *RedisSnapshots) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.redis.Set(ctx, s.key(snap.SessionID), data, s.ttl).Err()
}

// Load returns nil, nil when no snapshot is stored.
func (s *RedisSnapshots) Load(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn().Err(err).Str("session_id", id.String()).Msg("discarding corrupt snapshot")
		return nil, nil
	}
	return &snap, nil
}
