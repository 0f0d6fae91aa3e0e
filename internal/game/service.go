// Package game hosts live quiz and test sessions: it owns their runners,
// fans state out to WebSocket viewers and persists results in the background.
package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
	"github.com/gokatarajesh/trivia-engine/internal/metrics"
	"github.com/gokatarajesh/trivia-engine/internal/quiz"
	"github.com/gokatarajesh/trivia-engine/internal/sampler"
	"github.com/gokatarajesh/trivia-engine/internal/schedule"
	"github.com/gokatarajesh/trivia-engine/internal/stats"
	"github.com/gokatarajesh/trivia-engine/internal/testmode"
	"github.com/gokatarajesh/trivia-engine/internal/weights"
	"github.com/gokatarajesh/trivia-engine/pkg/http/ws"
)

// PackageSource loads packages and stores adjusted item weights.
type PackageSource interface {
	Package(ctx context.Context, id string) (*catalog.Package, error)
	UpdateWeights(ctx context.Context, packageID string, items []catalog.Item) error
}

// Publisher delivers messages to the viewers of a session.
type Publisher interface {
	Broadcast(sessionID uuid.UUID, msg ws.Message) error
	CloseSession(sessionID uuid.UUID)
}

type SnapshotStore interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, id uuid.UUID) (*Snapshot, error)
}

type StatsRecorder interface {
	Record(ctx context.Context, rec stats.Record) error
}

type TokenIssuer interface {
	Issue(sessionID uuid.UUID, mode, packageID string) (string, error)
}

// ServiceOptions configures the session service. Zero values fall back to defaults.
type ServiceOptions struct {
	Scheduler     schedule.Scheduler
	Clock         clock.Clock
	Cooldown      time.Duration // grading pause between quiz questions
	MaxSessions   int           // default: 1000
	IdleTimeout   time.Duration // default: 30 minutes without player input
	SweepInterval time.Duration // default: 1 minute
	JobTimeout    time.Duration // default: 5 seconds per background write
	Sampler       *sampler.Sampler
	Adjuster      *weights.Adjuster
	Metrics       *metrics.Metrics
}

// Started is returned when a session is created. The token authorizes the
// WebSocket connection for this session only.
type Started struct {
	Snapshot
	Token string `json:"token"`
}

type session struct {
	id        uuid.UUID
	mode      string
	packageID string
	quiz      *quiz.Runner
	test      *testmode.Runner
	touched   atomic.Int64
}

func (e *session) touch(now time.Time) { e.touched.Store(now.UnixNano()) }

func (e *session) idleSince() time.Time { return time.Unix(0, e.touched.Load()) }

func (e *session) snapshot(now time.Time) Snapshot {
	snap := Snapshot{SessionID: e.id, Mode: e.mode, PackageID: e.packageID, UpdatedAt: now}
	switch e.mode {
	case ModeQuiz:
		s := e.quiz.Session()
		snap.Quiz = &s
	case ModeTest:
		s := e.test.Session()
		snap.Test = &s
	}
	return snap
}

func (e *session) close() {
	if e.quiz != nil {
		e.quiz.Close()
	}
	if e.test != nil {
		e.test.Close()
	}
}

type job func(ctx context.Context)

// Service owns every live session.
type Service struct {
	packages  PackageSource
	publisher Publisher
	snapshots SnapshotStore
	stats     StatsRecorder
	tokens    TokenIssuer

	quizMachine *quiz.Machine
	testMachine *testmode.Machine
	scheduler   schedule.Scheduler
	clock       clock.Clock
	metrics     *metrics.Metrics

	maxSessions   int
	idleTimeout   time.Duration
	sweepInterval time.Duration
	jobTimeout    time.Duration

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session

	// Background writes. Observers append under queueMu and never wait on
	// Run. A session has at most one queued snapshot save, which writes its
	// latest state.
	queueMu sync.Mutex
	queue   []job
	unsaved map[uuid.UUID]Snapshot
	stopped bool
	wake    chan struct{}

	logger zerolog.Logger
}

// NewService creates the session service. publisher, snapshots and stats may
// be nil, which disables that output.
func NewService(
	packages PackageSource,
	publisher Publisher,
	snapshots SnapshotStore,
	recorder StatsRecorder,
	tokens TokenIssuer,
	opts ServiceOptions,
	logger zerolog.Logger,
) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = schedule.New(opts.Clock)
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 1000
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 5 * time.Second
	}

	return &Service{
		packages:  packages,
		publisher: publisher,
		snapshots: snapshots,
		stats:     recorder,
		tokens:    tokens,
		quizMachine: quiz.NewMachine(quiz.Options{
			Cooldown: opts.Cooldown,
			Sampler:  opts.Sampler,
			Adjuster: opts.Adjuster,
		}),
		testMachine:   testmode.NewMachine(testmode.Options{}),
		scheduler:     opts.Scheduler,
		clock:         opts.Clock,
		metrics:       opts.Metrics,
		maxSessions:   opts.MaxSessions,
		idleTimeout:   opts.IdleTimeout,
		sweepInterval: opts.SweepInterval,
		jobTimeout:    opts.JobTimeout,
		sessions:      make(map[uuid.UUID]*session),
		unsaved:       make(map[uuid.UUID]Snapshot),
		wake:          make(chan struct{}, 1),
		logger:        logger.With().Str("component", "game_service").Logger(),
	}
}

// InitializeQuiz starts a quiz over the package named in settings.
func (s *Service) InitializeQuiz(ctx context.Context, settings quiz.Settings) (Started, error) {
	pkg, err := s.packages.Package(ctx, settings.PackageID)
	if err != nil {
		return Started{}, fmt.Errorf("load package: %w", err)
	}
	settings.PackageID = pkg.ID

	e := &session{id: uuid.New(), mode: ModeQuiz, packageID: pkg.ID}
	e.quiz = quiz.NewRunner(s.quizMachine, s.scheduler, s.quizObserver(e))
	if err := s.register(e); err != nil {
		return Started{}, err
	}

	if _, err := e.quiz.Dispatch(quiz.Initialize{Package: *pkg, Settings: settings}); err != nil {
		s.discard(e)
		return Started{}, fmt.Errorf("initialize quiz: %w", err)
	}
	s.metrics.SessionStarted(ModeQuiz)
	return s.started(ctx, e)
}

// InitializeTest starts a discovery test over the package named in settings.
func (s *Service) InitializeTest(ctx context.Context, settings testmode.Settings) (Started, error) {
	pkg, err := s.packages.Package(ctx, settings.PackageID)
	if err != nil {
		return Started{}, fmt.Errorf("load package: %w", err)
	}
	settings.PackageID = pkg.ID

	e := &session{id: uuid.New(), mode: ModeTest, packageID: pkg.ID}
	e.test = testmode.NewRunner(s.testMachine, s.scheduler, s.testObserver(e))
	if err := s.register(e); err != nil {
		return Started{}, err
	}

	if _, err := e.test.Dispatch(testmode.Initialize{Package: *pkg, Settings: settings}); err != nil {
		s.discard(e)
		return Started{}, fmt.Errorf("initialize test: %w", err)
	}
	s.metrics.SessionStarted(ModeTest)
	return s.started(ctx, e)
}

func (s *Service) SubmitQuizAnswer(ctx context.Context, id uuid.UUID, input string) (Snapshot, error) {
	return s.dispatchQuiz(id, quiz.Submit{Input: input})
}

func (s *Service) PauseQuiz(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	return s.dispatchQuiz(id, quiz.Pause{})
}

func (s *Service) ResumeQuiz(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	return s.dispatchQuiz(id, quiz.Resume{})
}

func (s *Service) EndQuiz(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	return s.dispatchQuiz(id, quiz.End{})
}

// QuickRestartQuiz draws a new round with the same settings.
func (s *Service) QuickRestartQuiz(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	snap, err := s.dispatchQuiz(id, quiz.QuickRestart{})
	if err == nil {
		s.metrics.SessionStarted(ModeQuiz)
	}
	return snap, err
}

func (s *Service) SubmitNameGuess(ctx context.Context, id uuid.UUID, input string) (Snapshot, error) {
	return s.dispatchTest(id, testmode.NameGuess{Input: input})
}

func (s *Service) SubmitAttributeAnswer(ctx context.Context, id uuid.UUID, itemName, attrName, input string) (Snapshot, error) {
	return s.dispatchTest(id, testmode.AttributeAnswer{ItemName: itemName, AttributeName: attrName, Input: input})
}

func (s *Service) SetTestView(ctx context.Context, id uuid.UUID, view testmode.View) (Snapshot, error) {
	return s.dispatchTest(id, testmode.SetView{View: view})
}

func (s *Service) PauseTest(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	return s.dispatchTest(id, testmode.Pause{})
}

func (s *Service) ResumeTest(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	return s.dispatchTest(id, testmode.Resume{})
}

func (s *Service) EndTest(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	return s.dispatchTest(id, testmode.End{})
}

// QuickRestartTest clears all progress and restarts the countdown.
func (s *Service) QuickRestartTest(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	snap, err := s.dispatchTest(id, testmode.QuickRestart{})
	if err == nil {
		s.metrics.SessionStarted(ModeTest)
	}
	return snap, err
}

// Get returns the live session, or the last stored snapshot once the session
// has been closed.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return e.snapshot(s.clock.Now()), nil
	}

	if s.snapshots == nil {
		return Snapshot{}, ErrSessionNotFound
	}
	snap, err := s.snapshots.Load(ctx, id)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		return Snapshot{}, ErrSessionNotFound
	}
	return *snap, nil
}

// Mode reports the mode of a live session.
func (s *Service) Mode(id uuid.UUID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok {
		return "", ErrSessionNotFound
	}
	return e.mode, nil
}

// CloseSession stops the session timers, disconnects its viewers and drops it
// from memory. The stored snapshot stays readable until it expires.
func (s *Service) CloseSession(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	e.close()
	s.metrics.SessionClosed(e.mode)
	if s.publisher != nil {
		s.publisher.CloseSession(id)
	}
	s.logger.Info().Str("session_id", id.String()).Str("mode", e.mode).Msg("session closed")
	return nil
}

// Active returns the number of live sessions.
func (s *Service) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Run processes background writes in order and evicts idle sessions until ctx
// is cancelled. Queued writes are flushed before it returns.
func (s *Service) Run(ctx context.Context) error {
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		s.sweep(ctx)
	}()
	defer func() { <-sweepDone }()

	for {
		select {
		case <-ctx.Done():
			s.drain(ctx)
			return nil
		case <-s.wake:
			for j, ok := s.next(); ok; j, ok = s.next() {
				s.runJob(ctx, j)
			}
		}
	}
}

func (s *Service) register(e *session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) >= s.maxSessions {
		return ErrTooManySessions
	}
	e.touch(s.clock.Now())
	s.sessions[e.id] = e
	s.metrics.SessionOpened(e.mode)
	return nil
}

func (s *Service) discard(e *session) {
	s.mu.Lock()
	delete(s.sessions, e.id)
	s.mu.Unlock()
	e.close()
	s.metrics.SessionClosed(e.mode)
}

func (s *Service) started(ctx context.Context, e *session) (Started, error) {
	token, err := s.tokens.Issue(e.id, e.mode, e.packageID)
	if err != nil {
		_ = s.CloseSession(ctx, e.id)
		return Started{}, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info().
		Str("session_id", e.id.String()).
		Str("mode", e.mode).
		Str("package_id", e.packageID).
		Msg("session started")
	return Started{Snapshot: e.snapshot(s.clock.Now()), Token: token}, nil
}

func (s *Service) lookup(id uuid.UUID, mode string) (*session, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if e.mode != mode {
		return nil, ErrModeMismatch
	}
	e.touch(s.clock.Now())
	return e, nil
}

func (s *Service) dispatchQuiz(id uuid.UUID, ev quiz.Event) (Snapshot, error) {
	e, err := s.lookup(id, ModeQuiz)
	if err != nil {
		return Snapshot{}, err
	}
	sess, err := e.quiz.Dispatch(ev)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{SessionID: id, Mode: ModeQuiz, PackageID: e.packageID, Quiz: &sess, UpdatedAt: s.clock.Now()}, nil
}

func (s *Service) dispatchTest(id uuid.UUID, ev testmode.Event) (Snapshot, error) {
	e, err := s.lookup(id, ModeTest)
	if err != nil {
		return Snapshot{}, err
	}
	sess, err := e.test.Dispatch(ev)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{SessionID: id, Mode: ModeTest, PackageID: e.packageID, Test: &sess, UpdatedAt: s.clock.Now()}, nil
}

// quizObserver runs under the runner lock; it only publishes and enqueues.
func (s *Service) quizObserver(e *session) quiz.Observer {
	return func(sess quiz.Session, effects []quiz.Effect) {
		var finished string
		for _, eff := range effects {
			switch ef := eff.(type) {
			case quiz.Graded:
				s.metrics.Submission(ModeQuiz, outcome(ef.Correct))
				s.broadcast(e.id, ws.TypeFeedback, ws.FeedbackPayload{
					SessionID: e.id.String(),
					Index:     ef.Index,
					Input:     ef.Input,
					Correct:   ef.Correct,
				})
			case quiz.PersistWeights:
				s.persistWeights(ef.PackageID, ef.Items)
			case quiz.Finished:
				finished = ef.Reason
				s.finish(e, ef.Reason, sess.Points, len(sess.Results))
			}
		}
		snap := Snapshot{SessionID: e.id, Mode: ModeQuiz, PackageID: e.packageID, Quiz: &sess, UpdatedAt: s.clock.Now()}
		s.publishState(ws.TypeQuizState, snap, finished)
	}
}

func (s *Service) testObserver(e *session) testmode.Observer {
	var last *testmode.Feedback
	return func(sess testmode.Session, effects []testmode.Effect) {
		if sess.Feedback != nil && sess.Feedback != last {
			s.metrics.Submission(ModeTest, string(sess.Feedback.Kind))
		}
		last = sess.Feedback

		var finished string
		for _, eff := range effects {
			if ef, ok := eff.(testmode.Finished); ok {
				finished = ef.Reason
				s.finish(e, ef.Reason, sess.PointsEarned, sess.TotalPoints)
			}
		}
		snap := Snapshot{SessionID: e.id, Mode: ModeTest, PackageID: e.packageID, Test: &sess, UpdatedAt: s.clock.Now()}
		s.publishState(ws.TypeTestState, snap, finished)
	}
}

func outcome(correct bool) string {
	if correct {
		return "correct"
	}
	return "wrong"
}

func (s *Service) finish(e *session, reason string, correct, total int) {
	rec := stats.Record{
		PackageID: e.packageID,
		SessionID: e.id.String(),
		Mode:      e.mode,
		Reason:    reason,
		Correct:   correct,
		Total:     total,
	}
	s.metrics.SessionFinished(e.mode, reason, rec.Accuracy())
	s.logger.Info().
		Str("session_id", rec.SessionID).
		Str("mode", rec.Mode).
		Str("reason", reason).
		Int("correct", correct).
		Int("total", total).
		Msg("session finished")

	if s.stats == nil {
		return
	}
	s.enqueue(func(ctx context.Context) {
		if err := s.stats.Record(ctx, rec); err != nil {
			s.logger.Error().Err(err).Str("session_id", rec.SessionID).Msg("failed to record stats")
		}
	})
}

func (s *Service) persistWeights(packageID string, items []catalog.Item) {
	if len(items) == 0 {
		return
	}
	s.enqueue(func(ctx context.Context) {
		if err := s.packages.UpdateWeights(ctx, packageID, items); err != nil {
			s.logger.Error().Err(err).Str("package_id", packageID).Int("items", len(items)).Msg("failed to persist weights")
		}
	})
}

func (s *Service) publishState(msgType string, snap Snapshot, finished string) {
	var state json.RawMessage
	var err error
	if snap.Quiz != nil {
		state, err = json.Marshal(snap.Quiz)
	} else {
		state, err = json.Marshal(snap.Test)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", snap.SessionID.String()).Msg("failed to encode state")
		return
	}
	s.broadcast(snap.SessionID, msgType, ws.StatePayload{
		SessionID: snap.SessionID.String(),
		Finished:  finished,
		State:     state,
	})

	if s.snapshots == nil {
		return
	}
	s.saveSnapshot(snap)
}

// saveSnapshot records snap as the latest state of its session and queues a
// save unless one is already waiting.
func (s *Service) saveSnapshot(snap Snapshot) {
	id := snap.SessionID

	s.queueMu.Lock()
	if s.stopped {
		s.queueMu.Unlock()
		return
	}
	_, queued := s.unsaved[id]
	s.unsaved[id] = snap
	if !queued {
		s.queue = append(s.queue, func(ctx context.Context) {
			s.queueMu.Lock()
			latest, ok := s.unsaved[id]
			delete(s.unsaved, id)
			s.queueMu.Unlock()
			if !ok {
				return
			}
			if err := s.snapshots.Save(ctx, latest); err != nil {
				s.logger.Warn().Err(err).Str("session_id", id.String()).Msg("failed to save snapshot")
			}
		})
	}
	s.queueMu.Unlock()
	s.signal()
}

func (s *Service) broadcast(id uuid.UUID, msgType string, payload any) {
	if s.publisher == nil {
		return
	}
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("type", msgType).Msg("failed to encode message")
		return
	}
	if err := s.publisher.Broadcast(id, msg); err != nil {
		s.logger.Debug().Err(err).Str("session_id", id.String()).Msg("broadcast incomplete")
	}
}

// enqueue hands a write to Run without waiting. After Run has returned the
// job is dropped.
func (s *Service) enqueue(j job) {
	s.queueMu.Lock()
	if s.stopped {
		s.queueMu.Unlock()
		return
	}
	s.queue = append(s.queue, j)
	s.queueMu.Unlock()
	s.signal()
}

func (s *Service) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) next() (job, bool) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	j := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return j, true
}

// pending returns the number of queued writes.
func (s *Service) pending() int {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return len(s.queue)
}

func (s *Service) runJob(ctx context.Context, j job) {
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.jobTimeout)
	defer cancel()
	j(jobCtx)
}

// drain runs what is queued and then stops accepting writes.
func (s *Service) drain(ctx context.Context) {
	for {
		j, ok := s.next()
		if !ok {
			s.queueMu.Lock()
			if len(s.queue) == 0 {
				s.stopped = true
				s.queueMu.Unlock()
				return
			}
			s.queueMu.Unlock()
			continue
		}
		s.runJob(ctx, j)
	}
}

func (s *Service) sweep(ctx context.Context) {
	ticker := s.clock.Ticker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictIdle(ctx)
		}
	}
}

// evictIdle closes sessions without player input for longer than the idle
// timeout and returns how many were closed.
func (s *Service) evictIdle(ctx context.Context) int {
	cutoff := s.clock.Now().Add(-s.idleTimeout)

	s.mu.RLock()
	var idle []uuid.UUID
	for id, e := range s.sessions {
		if e.idleSince().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	s.mu.RUnlock()

	evicted := 0
	for _, id := range idle {
		if err := s.CloseSession(ctx, id); err == nil {
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Info().Int("evicted", evicted).Msg("closed idle sessions")
	}
	return evicted
}
