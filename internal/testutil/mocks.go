package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/saintber/extensions/internal/domain/counter"
	domainErrors "github.com/saintber/extensions/internal/domain/errors"
	"github.com/saintber/extensions/pkg/transactions"
)

// --- Counter Repository Mock ---

// MockCounterRepository is a mock implementation of counter.Repository.
type MockCounterRepository struct {
	mu       sync.Mutex
	counters map[string]*counter.Counter

	GetFunc    func(ctx context.Context, name string) (*counter.Counter, error)
	ListFunc   func(ctx context.Context) ([]*counter.Counter, error)
	SaveFunc   func(ctx context.Context, c *counter.Counter) error
	DeleteFunc func(ctx context.Context, name string) error
}

func NewMockCounterRepository() *MockCounterRepository {
	return &MockCounterRepository{
		counters: make(map[string]*counter.Counter),
	}
}

func (m *MockCounterRepository) Get(ctx context.Context, name string) (*counter.Counter, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[name]
	if !ok {
		return nil, domainErrors.ErrCounterNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCounterRepository) List(ctx context.Context) ([]*counter.Counter, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*counter.Counter, 0, len(m.counters))
	for _, c := range m.counters {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockCounterRepository) Save(ctx context.Context, c *counter.Counter) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.counters[c.Name]; ok && existing.Version != c.Version-1 {
		return domainErrors.ErrOptimisticLockFailed
	}
	cp := *c
	m.counters[c.Name] = &cp
	return nil
}

func (m *MockCounterRepository) Delete(ctx context.Context, name string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.counters[name]; !ok {
		return domainErrors.ErrCounterNotFound
	}
	delete(m.counters, name)
	return nil
}

// AddCounter is a helper to add a counter directly to the mock store.
func (m *MockCounterRepository) AddCounter(c *counter.Counter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[c.Name] = c
}

// --- Transaction Driver Fake ---

// FakeTxDriver is a transactions.Driver that records begin, commit and
// rollback calls instead of talking to a database.
type FakeTxDriver struct {
	mu     sync.Mutex
	events []string

	BeginErr  error
	CommitErr error
}

func NewFakeTxDriver() *FakeTxDriver {
	return &FakeTxDriver{}
}

func (d *FakeTxDriver) Begin(ctx context.Context, isolation transactions.IsolationLevel) (transactions.Tx, error) {
	if d.BeginErr != nil {
		return nil, d.BeginErr
	}
	d.record("begin:" + isolation.String())
	return &fakeTx{driver: d}, nil
}

// Events returns the recorded calls in order.
func (d *FakeTxDriver) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.events))
	copy(out, d.events)
	return out
}

// Count returns how many times event was recorded.
func (d *FakeTxDriver) Count(event string) int {
	n := 0
	for _, e := range d.Events() {
		if e == event {
			n++
		}
	}
	return n
}

func (d *FakeTxDriver) record(event string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

type fakeTx struct {
	driver *FakeTxDriver
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.driver.CommitErr != nil {
		return t.driver.CommitErr
	}
	t.driver.record("commit")
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.driver.record("rollback")
	return nil
}
