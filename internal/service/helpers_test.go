package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chronos/internal/model"
	redisstore "chronos/pkg/store/redis"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memoryStore in-memory DatasetStore
type memoryStore struct {
	mu      sync.Mutex
	ds      *model.Dataset
	loadErr error
	saveErr error
	loads   int
	saves   int
}

func (m *memoryStore) Load(ctx context.Context) (*model.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	ds := m.ds.Clone()
	ds.ResolveReferences()
	return ds, nil
}

func (m *memoryStore) Save(ctx context.Context, ds *model.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.ds = ds.Clone()
	m.ds.Warnings = nil
	return nil
}

func (m *memoryStore) snapshot() *model.Dataset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ds.Clone()
}

// mockAudit mock for interfaces.AuditRecorder
type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) RecordEvent(ctx context.Context, event *model.ChangeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockAudit) ListEvents(ctx context.Context, limit int) ([]*model.ChangeEvent, error) {
	args := m.Called(ctx, limit)
	if events, ok := args.Get(0).([]*model.ChangeEvent); ok {
		return events, args.Error(1)
	}
	return nil, args.Error(1)
}

// mockPublisher mock for interfaces.EventPublisher
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event *model.ChangeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

// busyLock a write lock always held by someone else
type busyLock struct{}

func (busyLock) TryLock(ctx context.Context) (bool, error) { return false, nil }
func (busyLock) Unlock(ctx context.Context) error          { return nil }

// fixedNow is 2024-06-01 09:00 in Bangkok.
var fixedNow = time.Date(2024, time.June, 1, 2, 0, 0, 0, time.UTC)

var bangkok = time.FixedZone("ICT", 7*3600)

func score(v int) *int { return &v }

// seedDataset two employees, two projects and four rows evaluated on 2024-06-01.
func seedDataset() *model.Dataset {
	return &model.Dataset{
		Employees: []model.Employee{{ID: "e-ann", Name: "Ann"}, {ID: "e-bob", Name: "Bob"}},
		Projects:  []model.Project{{ID: "p-apollo", Name: "Apollo"}, {ID: "p-gemini", Name: "Gemini"}},
		Rows: []model.TaskRow{
			{ID: "r1", Employee: "Ann", MainTask: "Apollo", SubTask: "Design", StartDate: d(2024, 1, 1), EndDate: d(2024, 1, 10), Progress: 100, Dependency: model.NoDependency},
			{ID: "r2", Employee: "Bob", MainTask: "Apollo", SubTask: "Build", StartDate: d(2024, 1, 11), EndDate: d(2024, 2, 10), Progress: 40, Dependency: "Design"},
			{ID: "r3", Employee: "Ann", MainTask: "Gemini", SubTask: "Survey", StartDate: d(2024, 5, 25), EndDate: d(2024, 6, 5), Progress: 50, Issue: "- [25/05] started"},
			{ID: "r4", Employee: "Bob", MainTask: "Gemini", SubTask: "Report", StartDate: d(2024, 6, 10), EndDate: d(2024, 6, 20), Progress: 0},
		},
	}
}

func newTestTracker(t *testing.T) (*TrackerService, *memoryStore) {
	t.Helper()
	store := &memoryStore{ds: seedDataset()}
	tracker := NewTrackerService(store, redisstore.NewSnapshotCache(time.Minute), bangkok).
		WithClock(func() time.Time { return fixedNow })
	return tracker, store
}

func requireDataset(t *testing.T, tracker *TrackerService) *model.Dataset {
	t.Helper()
	ds, err := tracker.Dataset(context.Background())
	require.NoError(t, err)
	return ds
}

var errBoom = errors.New("boom")
