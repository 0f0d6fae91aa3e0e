package stats

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Session modes.
const (
	ModeQuiz = "quiz"
	ModeTest = "test"
)

// Record is the outcome of one finished session.
type Record struct {
	PackageID string
	SessionID string
	Mode      string
	Reason    string
	Correct   int
	Total     int
}

// Accuracy is Correct/Total, or 0 for an empty session.
func (r Record) Accuracy() float64 {
	if r.Total <= 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// Entry is one of the best finished sessions of a package.
type Entry struct {
	SessionID string  `json:"session_id"`
	Accuracy  float64 `json:"accuracy"`
}

// Summary aggregates every recorded session of a package.
type Summary struct {
	PackageID string  `json:"package_id"`
	Games     int     `json:"games"`
	Quizzes   int     `json:"quizzes"`
	Tests     int     `json:"tests"`
	Completed int     `json:"completed"`
	Correct   int     `json:"correct"`
	Asked     int     `json:"asked"`
	Accuracy  float64 `json:"accuracy"`
	Best      []Entry `json:"best"`
}

// ServiceOptions configures key layout and retention.
type ServiceOptions struct {
	TopN           int
	RedisKeyPrefix string
}

// Service keeps per-package play statistics in Redis.
type Service struct {
	redis  *redis.Client
	logger zerolog.Logger
	topN   int
	prefix string
}

func NewService(redis *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 10
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "stats"
	}
	return &Service{
		redis:  redis,
		logger: logger.With().Str("component", "stats").Logger(),
		topN:   topN,
		prefix: prefix,
	}
}

// Record adds a finished session to its package aggregates.
func (s *Service) Record(ctx context.Context, rec Record) error {
	if rec.PackageID == "" {
		return nil
	}
	countersKey := s.countersKey(rec.PackageID)
	bestKey := s.bestKey(rec.PackageID)

	pipe := s.redis.TxPipeline()
	pipe.HIncrBy(ctx, countersKey, "games", 1)
	pipe.HIncrBy(ctx, countersKey, modeField(rec.Mode), 1)
	pipe.HIncrBy(ctx, countersKey, "correct", int64(rec.Correct))
	pipe.HIncrBy(ctx, countersKey, "asked", int64(rec.Total))
	if rec.Reason == "completed" {
		pipe.HIncrBy(ctx, countersKey, "completed", 1)
	}
	if rec.SessionID != "" && rec.Total > 0 {
		pipe.ZAdd(ctx, bestKey, redis.Z{Score: rec.Accuracy(), Member: rec.SessionID})
		pipe.ZRemRangeByRank(ctx, bestKey, 0, int64(-s.topN-1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record stats for %s: %w", rec.PackageID, err)
	}
	s.logger.Debug().
		Str("package_id", rec.PackageID).
		Str("mode", rec.Mode).
		Int("correct", rec.Correct).
		Int("total", rec.Total).
		Msg("session stats recorded")
	return nil
}

// Summary reads the aggregates of a package. Unknown packages yield zeros.
func (s *Service) Summary(ctx context.Context, packageID string) (Summary, error) {
	fields, err := s.redis.HGetAll(ctx, s.countersKey(packageID)).Result()
	if err != nil {
		return Summary{}, fmt.Errorf("read stats: %w", err)
	}
	sum := summaryFromHash(packageID, fields)

	best, err := s.redis.ZRevRangeWithScores(ctx, s.bestKey(packageID), 0, int64(s.topN-1)).Result()
	if err != nil {
		return Summary{}, fmt.Errorf("read best sessions: %w", err)
	}
	sum.Best = make([]Entry, 0, len(best))
	for _, z := range best {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		sum.Best = append(sum.Best, Entry{SessionID: member, Accuracy: z.Score})
	}
	return sum, nil
}

func (s *Service) countersKey(packageID string) string {
	return fmt.Sprintf("%s:%s:counters", s.prefix, packageID)
}

func (s *Service) bestKey(packageID string) string {
	return fmt.Sprintf("%s:%s:best", s.prefix, packageID)
}

func modeField(mode string) string {
	if mode == ModeTest {
		return "tests"
	}
	return "quizzes"
}

func summaryFromHash(packageID string, fields map[string]string) Summary {
	sum := Summary{
		PackageID: packageID,
		Games:     parseInt(fields["games"]),
		Quizzes:   parseInt(fields["quizzes"]),
		Tests:     parseInt(fields["tests"]),
		Completed: parseInt(fields["completed"]),
		Correct:   parseInt(fields["correct"]),
		Asked:     parseInt(fields["asked"]),
	}
	if sum.Asked > 0 {
		sum.Accuracy = float64(sum.Correct) / float64(sum.Asked)
	}
	return sum
}

func parseInt(val string) int {
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}
