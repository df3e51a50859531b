package renewal_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/service/renewal"
)

type runnerFixture struct {
	runner      *renewal.Runner
	members     *memMembers
	sender      *fakeSender
	marker      *memMarker
	locks       *memLocks
	integration *fakeIntegration
	now         time.Time
}

func setupRunner(t *testing.T, members ...domain.Member) *runnerFixture {
	t.Helper()
	f := &runnerFixture{
		members:     newMemMembers(members...),
		sender:      &fakeSender{},
		marker:      newMemMarker(),
		locks:       newMemLocks(),
		integration: &fakeIntegration{subs: map[string]bool{}},
		now:         time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	composer, err := renewal.NewComposer("Members", "members@example.org", "https://example.org/renew", nil)
	require.NoError(t, err)

	strategy := renewal.NewStrategyManager(f.integration, f.members)
	f.runner = renewal.NewRunner(f.members, strategy, composer, f.sender, f.marker, f.locks.factory(),
		renewal.WithRunnerClock(func() time.Time { return f.now }))
	return f
}

func member(id string, renewalDate *time.Time) domain.Member {
	return domain.Member{
		ID:          id,
		Email:       id + "@example.org",
		FirstName:   "Pat",
		LastName:    "Member",
		RenewalDate: renewalDate,
	}
}

func TestRun_SendsDueReminderOnce(t *testing.T) {
	f := setupRunner(t)
	f.members.members = []domain.Member{member("m1", ptrTime(date(2026, 4, 9)))}
	ctx := context.Background()

	report, err := f.runner.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Sent, 1)
	assert.Equal(t, 30, report.Sent[0].Interval)
	assert.Equal(t, 1, f.sender.count())
	assert.Equal(t, "m1@example.org", f.sender.sent[0].To)

	state, ok := f.members.state("m1")
	require.True(t, ok)
	require.NotNil(t, state.LastReminderIntervalSent)
	assert.Equal(t, 30, *state.LastReminderIntervalSent)
	assert.Equal(t, domain.ManagedByPlugin, state.ManagedBy)
	assert.Equal(t, "Pat Member", state.Name)

	// Same day, second pass: nothing new.
	report, err = f.runner.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Sent)
	assert.Equal(t, 1, report.NotDue)
	assert.Equal(t, 1, f.sender.count())
}

func TestRun_ProgressesThroughIntervals(t *testing.T) {
	f := setupRunner(t, member("m1", ptrTime(date(2026, 4, 9))))
	ctx := context.Background()

	_, err := f.runner.Run(ctx)
	require.NoError(t, err)

	f.now = f.now.AddDate(0, 0, 16) // 14 days out
	report, err := f.runner.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Sent, 1)
	assert.Equal(t, 14, report.Sent[0].Interval)

	f.now = f.now.AddDate(0, 0, 60) // 46 days overdue
	report, err = f.runner.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Sent, 1)
	assert.Equal(t, -30, report.Sent[0].Interval)

	f.now = f.now.AddDate(0, 0, 1)
	report, err = f.runner.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Sent, "terminal reminder ends the cycle")
	assert.Equal(t, 3, f.sender.count())
}

func TestRun_OverdueMemberGetsSingleReminder(t *testing.T) {
	f := setupRunner(t, member("m1", ptrTime(date(2026, 2, 3))))

	report, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Sent, 1)
	assert.Equal(t, -30, report.Sent[0].Interval)
	assert.Equal(t, 1, f.sender.count())
}

func TestRun_Skips(t *testing.T) {
	f := setupRunner(t,
		member("nodate", nil),
		member("host", ptrTime(date(2026, 4, 9))),
		member("busy", ptrTime(date(2026, 4, 9))),
	)
	f.integration.active = true
	f.integration.subs["host"] = true
	f.locks.hold("renewal:member:busy")

	report, err := f.runner.Run(context.Background())
	require.NoError(t, err)

	reasons := map[string]string{}
	for _, s := range report.Skipped {
		reasons[s.MemberID] = s.Reason
	}
	assert.Equal(t, renewal.SkipMissingRenewalDate, reasons["nodate"])
	assert.Equal(t, renewal.SkipHostManaged, reasons["host"])
	assert.Equal(t, renewal.SkipLocked, reasons["busy"])
	assert.Equal(t, 0, f.sender.count())
	assert.Empty(t, report.Errors)
}

func TestRun_InactiveIntegrationManagesEveryone(t *testing.T) {
	f := setupRunner(t, member("m1", ptrTime(date(2026, 4, 9))))
	f.integration.active = false
	f.integration.subs["m1"] = true

	report, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Sent, 1)
}

func TestRun_SendFailureIsRetried(t *testing.T) {
	f := setupRunner(t, member("m1", ptrTime(date(2026, 4, 9))))
	ctx := context.Background()
	f.sender.err = errBoom

	report, err := f.runner.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Error, "boom")
	_, saved := f.members.state("m1")
	assert.False(t, saved)

	f.sender.err = nil
	report, err = f.runner.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Sent, 1)
}

func TestRun_ClaimedMarkerRecordsWithoutResending(t *testing.T) {
	f := setupRunner(t, member("m1", ptrTime(date(2026, 4, 9))))
	ctx := context.Background()

	// A previous pass sent the reminder but failed to save state.
	f.members.saveErr = errBoom
	report, err := f.runner.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 1, f.sender.count())

	f.members.saveErr = nil
	report, err = f.runner.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Sent)
	assert.Equal(t, 1, f.sender.count())

	state, ok := f.members.state("m1")
	require.True(t, ok)
	assert.Equal(t, 30, *state.LastReminderIntervalSent)
}

func TestRun_BlockedSendCountsAsDispatched(t *testing.T) {
	f := setupRunner(t, member("m1", ptrTime(date(2026, 4, 9))))
	f.sender.blocked = true

	report, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Sent, 1)
	assert.True(t, report.Sent[0].Blocked)

	state, _ := f.members.state("m1")
	assert.Equal(t, 30, *state.LastReminderIntervalSent)
}

func TestRun_ClassificationErrorIsPerMember(t *testing.T) {
	f := setupRunner(t, member("m1", ptrTime(date(2026, 4, 9))))
	f.integration.active = true
	f.integration.err = errBoom

	report, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Errors, 1)
	assert.Equal(t, 0, f.sender.count())
}

func TestRun_ListFailureAborts(t *testing.T) {
	f := setupRunner(t)
	f.members.listErr = errBoom

	_, err := f.runner.Run(context.Background())
	assert.ErrorIs(t, err, errBoom)
}

func TestRun_ConcurrentPassesSendOncePerMember(t *testing.T) {
	f := setupRunner(t)
	const n = 50
	for i := 0; i < n; i++ {
		f.members.members = append(f.members.members, member(fmt.Sprintf("m%02d", i), ptrTime(date(2026, 4, 9))))
	}

	strategy := renewal.NewStrategyManager(f.integration, f.members)
	runners := make([]*renewal.Runner, 4)
	for i := range runners {
		composer, err := renewal.NewComposer("Members", "members@example.org", "https://example.org/renew", nil)
		require.NoError(t, err)
		runners[i] = renewal.NewRunner(f.members, strategy, composer, f.sender, f.marker, f.locks.factory(),
			renewal.WithRunnerClock(func() time.Time { return f.now }))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(runners))
	for _, r := range runners {
		wg.Add(1)
		go func(r *renewal.Runner) {
			defer wg.Done()
			_, err := r.Run(context.Background())
			errs <- err
		}(r)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, n, f.sender.count())
	seen := make(map[string]int)
	for _, msg := range f.sender.sent {
		seen[msg.To]++
	}
	assert.Len(t, seen, n)
	for to, c := range seen {
		assert.Equal(t, 1, c, to)
	}

	// A later pass on the same day finds nothing new.
	report, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Sent)
	assert.Equal(t, n, f.sender.count())
}
