package renewal_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/pkg/distlock"
	"github.com/ignite/lgl-sync/internal/service/renewal"
)

type memMembers struct {
	mu       sync.Mutex
	members  []domain.Member
	states   map[string]domain.MemberRenewalState
	saves    int
	saveErr  error
	listErr  error
	renewals map[string]time.Time
}

func newMemMembers(members ...domain.Member) *memMembers {
	return &memMembers{
		members:  members,
		states:   make(map[string]domain.MemberRenewalState),
		renewals: make(map[string]time.Time),
	}
}

func (m *memMembers) ListMembers(_ context.Context) ([]domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Member, len(m.members))
	copy(out, m.members)
	return out, nil
}

func (m *memMembers) GetState(_ context.Context, memberID string) (*domain.MemberRenewalState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[memberID]
	if !ok {
		return nil, renewal.ErrNotFound
	}
	return &s, nil
}

func (m *memMembers) SaveState(_ context.Context, state *domain.MemberRenewalState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.states[state.MemberID] = *state
	return nil
}

func (m *memMembers) SetRenewalDate(_ context.Context, memberID string, renewal time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renewals[memberID] = renewal
	return nil
}

func (m *memMembers) state(id string) (domain.MemberRenewalState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[id]
	return s, ok
}

type fakeIntegration struct {
	active bool
	subs   map[string]bool
	err    error
}

func (f *fakeIntegration) IsActive() bool { return f.active }

func (f *fakeIntegration) HasActiveSubscription(_ context.Context, memberID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.subs[memberID], nil
}

type memMarker struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func newMemMarker() *memMarker { return &memMarker{claimed: make(map[string]bool)} }

func (m *memMarker) Claim(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed[key] {
		return false, nil
	}
	m.claimed[key] = true
	return true, nil
}

func (m *memMarker) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, key)
	return nil
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []domain.EmailMessage
	blocked bool
	err     error
}

func (f *fakeSender) Send(_ context.Context, msg domain.EmailMessage) (domain.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.SendResult{}, f.err
	}
	f.sent = append(f.sent, msg)
	return domain.SendResult{Success: !f.blocked, Blocked: f.blocked}, nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// memLocks is an in-process distlock backend.
type memLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocks() *memLocks { return &memLocks{held: make(map[string]bool)} }

func (l *memLocks) factory() distlock.Factory {
	return func(key string) distlock.DistLock { return &memLock{locks: l, key: key} }
}

func (l *memLocks) hold(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = true
}

type memLock struct {
	locks *memLocks
	key   string
}

func (m *memLock) Acquire(_ context.Context) (bool, error) {
	m.locks.mu.Lock()
	defer m.locks.mu.Unlock()
	if m.locks.held[m.key] {
		return false, nil
	}
	m.locks.held[m.key] = true
	return true, nil
}

func (m *memLock) Release(_ context.Context) error {
	m.locks.mu.Lock()
	defer m.locks.mu.Unlock()
	delete(m.locks.held, m.key)
	return nil
}

var errBoom = errors.New("boom")

func date(y int, mo time.Month, d int) time.Time {
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func ptrTime(t time.Time) *time.Time { return &t }
func ptrInt(i int) *int              { return &i }
