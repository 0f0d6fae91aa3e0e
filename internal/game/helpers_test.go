package game

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
	"github.com/gokatarajesh/trivia-engine/internal/schedule"
	"github.com/gokatarajesh/trivia-engine/internal/stats"
	"github.com/gokatarajesh/trivia-engine/pkg/http/ws"
)

const testCooldown = 2 * time.Second

func countries() catalog.Package {
	return catalog.Package{
		ID:       "countries",
		Name:     "countries",
		Title:    "Countries",
		TestTime: 300,
		Attributes: []catalog.Attribute{
			{Name: catalog.NameAttr, Title: "Name", Type: catalog.TypeString, Question: true, Answer: true},
			{Name: "capital", Title: "Capital", Type: catalog.TypeString, Question: true, Answer: true},
		},
		Items: []catalog.Item{
			{Name: "France", Attrs: map[string]catalog.Value{"capital": catalog.StringValue("Paris")}},
			{Name: "Japan", Attrs: map[string]catalog.Value{"capital": catalog.StringValue("Tokyo")}},
			{Name: "Peru", Attrs: map[string]catalog.Value{"capital": catalog.StringValue("Lima")}},
		},
	}
}

type fakePackages struct {
	mu      sync.Mutex
	pkgs    map[string]catalog.Package
	updates map[string][]catalog.Item
}

func newFakePackages(pkgs ...catalog.Package) *fakePackages {
	f := &fakePackages{pkgs: make(map[string]catalog.Package), updates: make(map[string][]catalog.Item)}
	for _, p := range pkgs {
		f.pkgs[p.ID] = p
	}
	return f
}

func (f *fakePackages) Package(_ context.Context, id string) (*catalog.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pkgs[id]
	if !ok {
		return nil, catalog.ErrPackageNotFound
	}
	return &p, nil
}

func (f *fakePackages) List(_ context.Context) ([]catalog.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]catalog.Summary, 0, len(f.pkgs))
	for _, p := range f.pkgs {
		out = append(out, p.Summarize())
	}
	return out, nil
}

func (f *fakePackages) UpdateWeights(_ context.Context, packageID string, items []catalog.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[packageID] = append(f.updates[packageID], items...)
	return nil
}

func (f *fakePackages) updated(packageID string) []catalog.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.Item(nil), f.updates[packageID]...)
}

type fakePublisher struct {
	mu       sync.Mutex
	messages map[uuid.UUID][]ws.Message
	closed   []uuid.UUID
}

func (f *fakePublisher) Broadcast(id uuid.UUID, msg ws.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messages == nil {
		f.messages = make(map[uuid.UUID][]ws.Message)
	}
	f.messages[id] = append(f.messages[id], msg)
	return nil
}

func (f *fakePublisher) CloseSession(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, id)
}

func (f *fakePublisher) ofType(id uuid.UUID, msgType string) []ws.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ws.Message
	for _, m := range f.messages[id] {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakePublisher) wasClosed(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.closed {
		if c == id {
			return true
		}
	}
	return false
}

type memSnapshots struct {
	mu   sync.Mutex
	data map[uuid.UUID]Snapshot
}

func (m *memSnapshots) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[uuid.UUID]Snapshot)
	}
	m.data[snap.SessionID] = snap
	return nil
}

func (m *memSnapshots) Load(_ context.Context, id uuid.UUID) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.data[id]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *memSnapshots) has(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[id]
	return ok
}

type fakeStats struct {
	mu      sync.Mutex
	records []stats.Record
}

func (f *fakeStats) Record(_ context.Context, rec stats.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeStats) Summary(_ context.Context, packageID string) (stats.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := stats.Summary{PackageID: packageID}
	for _, r := range f.records {
		if r.PackageID == packageID {
			sum.Games++
		}
	}
	return sum, nil
}

func (f *fakeStats) all() []stats.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stats.Record(nil), f.records...)
}

type fakeTokens struct {
	err error
}

func (f fakeTokens) Issue(sessionID uuid.UUID, mode, packageID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-" + sessionID.String(), nil
}

var errSigning = errors.New("signing failed")

type fixture struct {
	svc       *Service
	clock     *clock.Mock
	packages  *fakePackages
	publisher *fakePublisher
	snapshots *memSnapshots
	stats     *fakeStats
}

// newFixture builds a service on a mock clock. When run is set the
// background loop is started and stopped with the test.
func newFixture(t *testing.T, run bool, mutate func(*ServiceOptions)) *fixture {
	t.Helper()
	mock := clock.NewMock()
	f := &fixture{
		clock:     mock,
		packages:  newFakePackages(countries()),
		publisher: &fakePublisher{},
		snapshots: &memSnapshots{},
		stats:     &fakeStats{},
	}
	opts := ServiceOptions{
		Clock:     mock,
		Scheduler: schedule.New(mock),
		Cooldown:  testCooldown,
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.svc = NewService(f.packages, f.publisher, f.snapshots, f.stats, fakeTokens{}, opts, zerolog.Nop())

	if run {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = f.svc.Run(ctx)
		}()
		t.Cleanup(func() {
			cancel()
			<-done
		})
	}
	return f
}

// stalledSnapshots blocks every Save until released, then keeps the latest.
type stalledSnapshots struct {
	memSnapshots
	release chan struct{}
	calls   atomic.Int32
}

func newStalledSnapshots() *stalledSnapshots {
	return &stalledSnapshots{release: make(chan struct{})}
}

func (s *stalledSnapshots) Save(ctx context.Context, snap Snapshot) error {
	s.calls.Add(1)
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.memSnapshots.Save(ctx, snap)
}

func (s *stalledSnapshots) latest(id uuid.UUID) (Snapshot, bool) {
	snap, _ := s.memSnapshots.Load(context.Background(), id)
	if snap == nil {
		return Snapshot{}, false
	}
	return *snap, true
}
