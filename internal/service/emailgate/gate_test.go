package emailgate_test

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/pkg/ringlog"
	"github.com/ignite/lgl-sync/internal/service/emailgate"
)

type memSettings struct {
	mu        sync.Mutex
	force     bool
	pause     *time.Time
	whitelist map[string]bool
}

func newMemSettings() *memSettings { return &memSettings{whitelist: map[string]bool{}} }

func (s *memSettings) ForceBlocking(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.force, nil
}

func (s *memSettings) SetForceBlocking(_ context.Context, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.force = on
	return nil
}

func (s *memSettings) PauseUntil(context.Context) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pause, nil
}

func (s *memSettings) SetPause(_ context.Context, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pause = &until
	return nil
}

func (s *memSettings) ClearPause(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pause = nil
	return nil
}

func (s *memSettings) IsWhitelisted(_ context.Context, addr string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.whitelist[addr], nil
}

func (s *memSettings) Whitelist(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.whitelist))
	for a := range s.whitelist {
		out = append(out, a)
	}
	return out, nil
}

func (s *memSettings) ReplaceWhitelist(_ context.Context, addrs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whitelist = map[string]bool{}
	for _, a := range addrs {
		s.whitelist[a] = true
	}
	return nil
}

type memLog struct {
	mu   sync.Mutex
	ring *ringlog.Ring[domain.BlockedEmailEntry]
}

func newMemLog(capacity int) *memLog {
	return &memLog{ring: ringlog.New[domain.BlockedEmailEntry](capacity)}
}

func (l *memLog) Append(_ context.Context, e domain.BlockedEmailEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ring.Push(e)
	return nil
}

func (l *memLog) Entries(context.Context) ([]domain.BlockedEmailEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ring.Items(), nil
}

func (l *memLog) Clear(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ring.Clear()
	return nil
}

type gateFixture struct {
	gate     *emailgate.Gate
	settings *memSettings
	log      *memLog
	now      time.Time
}

func setupGate(t *testing.T, signals emailgate.EnvironmentSignals) *gateFixture {
	t.Helper()
	f := &gateFixture{
		settings: newMemSettings(),
		log:      newMemLog(50),
		now:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	f.gate = emailgate.NewGate(f.settings, f.log, "Admin@Example.org", signals,
		emailgate.WithClock(func() time.Time { return f.now }))
	return f
}

var (
	production  = emailgate.EnvironmentSignals{Environment: "production"}
	development = emailgate.EnvironmentSignals{Environment: "development"}
)

func TestShouldBlock_AdminWinsOverForce(t *testing.T) {
	f := setupGate(t, production)
	ctx := context.Background()
	require.NoError(t, f.gate.SetForceBlocking(ctx, true))

	block, err := f.gate.ShouldBlock(ctx, "admin@example.org")
	require.NoError(t, err)
	assert.False(t, block)

	block, err = f.gate.ShouldBlock(ctx, "Site Admin <ADMIN@example.org>")
	require.NoError(t, err)
	assert.False(t, block)

	block, err = f.gate.ShouldBlock(ctx, "member@example.org")
	require.NoError(t, err)
	assert.True(t, block)
}

func TestShouldBlock_WhitelistWinsInDevelopment(t *testing.T) {
	f := setupGate(t, development)
	ctx := context.Background()
	_, err := f.gate.ImportWhitelist(ctx, "qa@example.org")
	require.NoError(t, err)

	block, err := f.gate.ShouldBlock(ctx, "QA@example.org")
	require.NoError(t, err)
	assert.False(t, block)

	block, err = f.gate.ShouldBlock(ctx, "member@example.org")
	require.NoError(t, err)
	assert.True(t, block)
}

func TestShouldBlock_PauseWindowExpires(t *testing.T) {
	f := setupGate(t, development)
	ctx := context.Background()

	_, err := f.gate.Pause(ctx, 5*time.Minute)
	require.NoError(t, err)

	block, err := f.gate.ShouldBlock(ctx, "member@example.org")
	require.NoError(t, err)
	assert.False(t, block, "paused")

	f.now = f.now.Add(5*time.Minute + time.Second)
	block, err = f.gate.ShouldBlock(ctx, "member@example.org")
	require.NoError(t, err)
	assert.True(t, block, "pause expired without an explicit resume")
}

func TestShouldBlock_PauseOverridesForce(t *testing.T) {
	f := setupGate(t, production)
	ctx := context.Background()
	require.NoError(t, f.gate.SetForceBlocking(ctx, true))
	_, err := f.gate.Pause(ctx, time.Minute)
	require.NoError(t, err)

	block, err := f.gate.ShouldBlock(ctx, "member@example.org")
	require.NoError(t, err)
	assert.False(t, block)

	require.NoError(t, f.gate.Resume(ctx))
	block, err = f.gate.ShouldBlock(ctx, "member@example.org")
	require.NoError(t, err)
	assert.True(t, block)
}

func TestShouldBlock_Environment(t *testing.T) {
	ctx := context.Background()

	block, err := setupGate(t, production).gate.ShouldBlock(ctx, "member@example.org")
	require.NoError(t, err)
	assert.False(t, block)

	block, err = setupGate(t, development).gate.ShouldBlock(ctx, "member@example.org")
	require.NoError(t, err)
	assert.True(t, block)

	block, err = setupGate(t, emailgate.EnvironmentSignals{}).gate.ShouldBlock(ctx, "member@example.org")
	require.NoError(t, err)
	assert.True(t, block, "no signal counts as development")
}

func TestPause_Invalid(t *testing.T) {
	f := setupGate(t, production)
	_, err := f.gate.Pause(context.Background(), 0)
	assert.ErrorIs(t, err, emailgate.ErrInvalidPause)

	_, err = f.gate.Pause(context.Background(), emailgate.MaxPause+time.Minute)
	assert.ErrorIs(t, err, emailgate.ErrInvalidPause)
}

func TestPauseMinutes(t *testing.T) {
	d, err := emailgate.PauseMinutes(15)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, d)

	d, err = emailgate.PauseMinutes(7 * 24 * 60)
	require.NoError(t, err)
	assert.Equal(t, emailgate.MaxPause, d)

	for _, m := range []int{0, -5, 7*24*60 + 1, math.MaxInt64 / 1000} {
		_, err := emailgate.PauseMinutes(m)
		assert.ErrorIs(t, err, emailgate.ErrInvalidPause, "minutes=%d", m)
	}
}

func TestStatus(t *testing.T) {
	f := setupGate(t, development)
	ctx := context.Background()

	st, err := f.gate.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.IsDevelopment)
	assert.False(t, st.IsForceBlocking)
	assert.False(t, st.IsTemporarilyPaused)
	assert.Nil(t, st.PauseUntil)
	assert.True(t, st.IsActivelyBlocking)

	until, err := f.gate.Pause(ctx, 10*time.Minute)
	require.NoError(t, err)
	st, err = f.gate.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.IsTemporarilyPaused)
	require.NotNil(t, st.PauseUntil)
	assert.Equal(t, until, *st.PauseUntil)
	assert.False(t, st.IsActivelyBlocking)
}

func TestRecordAndLog(t *testing.T) {
	f := setupGate(t, development)
	ctx := context.Background()

	for i := 0; i < 55; i++ {
		f.now = f.now.Add(time.Second)
		require.NoError(t, f.gate.Record(ctx, domain.EmailMessage{
			To:        fmt.Sprintf("m%d@example.org", i),
			FromName:  "Members",
			FromEmail: "members@example.org",
			Subject:   fmt.Sprintf("msg %d", i),
			HTMLBody:  "<p>Hello</p>",
		}))
	}

	entries, err := f.gate.Log(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 50)
	assert.Equal(t, "msg 54", entries[0].Subject, "newest first")
	assert.Equal(t, "msg 5", entries[49].Subject)
	assert.Equal(t, "Hello", entries[0].MessagePreview)
	assert.Equal(t, "Members <members@example.org>", entries[0].Headers["From"])

	require.NoError(t, f.gate.ClearLog(ctx))
	entries, err = f.gate.Log(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("é", 250)
	got := emailgate.Preview(domain.EmailMessage{HTMLBody: "<div>" + long + "</div>"})
	assert.Equal(t, 200, len([]rune(got)))

	got = emailgate.Preview(domain.EmailMessage{
		HTMLBody: "<p>ignored</p>",
		TextBody: "  plain\n\n text ",
	})
	assert.Equal(t, "plain text", got)

	got = emailgate.Preview(domain.EmailMessage{HTMLBody: "<p>Hi <b>Pat</b>,</p><p>Renew</p>"})
	assert.Equal(t, "Hi Pat , Renew", got)
}
