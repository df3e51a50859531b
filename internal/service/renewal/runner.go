package renewal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/metrics"
	"github.com/ignite/lgl-sync/internal/pkg/distlock"
	"github.com/ignite/lgl-sync/internal/pkg/logger"
)

// Skip reasons reported in PassReport.
const (
	SkipMissingRenewalDate = "missing_renewal_date"
	SkipHostManaged        = "host_managed"
	SkipLocked             = "locked"
)

// Dispatch is one reminder handed to the sender during a pass.
type Dispatch struct {
	MemberID string `json:"member_id"`
	Interval int    `json:"interval"`
	Blocked  bool   `json:"blocked"`
}

// Skip is a member the pass did not evaluate.
type Skip struct {
	MemberID string `json:"member_id"`
	Reason   string `json:"reason"`
}

// MemberError is a per-member failure. The pass continues past it.
type MemberError struct {
	MemberID string `json:"member_id"`
	Error    string `json:"error"`
}

// PassReport summarizes one scheduling pass.
type PassReport struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Evaluated  int           `json:"evaluated"`
	NotDue     int           `json:"not_due"`
	Sent       []Dispatch    `json:"sent"`
	Skipped    []Skip        `json:"skipped"`
	Errors     []MemberError `json:"errors"`
}

// Runner executes scheduling passes over all members.
type Runner struct {
	members   MemberRepository
	strategy  *StrategyManager
	composer  *Composer
	sender    Sender
	marker    SendMarker
	locks     distlock.Factory
	graceDays int
	now       func() time.Time
	log       *logger.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerClock overrides time.Now.
func WithRunnerClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithGraceDays sets the grace period used by IsActive reporting.
func WithGraceDays(days int) RunnerOption {
	return func(r *Runner) { r.graceDays = days }
}

// NewRunner creates a Runner.
func NewRunner(members MemberRepository, strategy *StrategyManager, composer *Composer, sender Sender, marker SendMarker, locks distlock.Factory, opts ...RunnerOption) *Runner {
	r := &Runner{
		members:   members,
		strategy:  strategy,
		composer:  composer,
		sender:    sender,
		marker:    marker,
		locks:     locks,
		graceDays: 30,
		now:       time.Now,
		log:       logger.With("component", "renewal_runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run evaluates every member once. Listing failures abort the pass; all
// other failures are recorded per member.
func (r *Runner) Run(ctx context.Context) (*PassReport, error) {
	report := &PassReport{StartedAt: r.now()}

	members, err := r.members.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	for _, member := range members {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		r.evaluate(ctx, member, report)
	}

	report.FinishedAt = r.now()
	r.log.Info("renewal pass complete",
		"members", len(members),
		"evaluated", report.Evaluated,
		"sent", len(report.Sent),
		"skipped", len(report.Skipped),
		"errors", len(report.Errors))
	return report, nil
}

func (r *Runner) skip(report *PassReport, memberID, reason string) {
	report.Skipped = append(report.Skipped, Skip{MemberID: memberID, Reason: reason})
	metrics.RenewalSkips.WithLabelValues(reason).Inc()
}

func (r *Runner) fail(report *PassReport, memberID string, err error) {
	report.Errors = append(report.Errors, MemberError{MemberID: memberID, Error: err.Error()})
	r.log.Error("renewal evaluation failed", "member_id", memberID, "error", err)
}

func (r *Runner) evaluate(ctx context.Context, member domain.Member, report *PassReport) {
	if member.RenewalDate == nil {
		r.skip(report, member.ID, SkipMissingRenewalDate)
		return
	}

	managedBy, err := r.strategy.Classify(ctx, member)
	if err != nil {
		r.fail(report, member.ID, err)
		return
	}
	if managedBy == domain.ManagedByHost {
		r.skip(report, member.ID, SkipHostManaged)
		return
	}

	lock := r.locks("renewal:member:" + member.ID)
	err = distlock.WithLock(ctx, lock, func(ctx context.Context) error {
		return r.evaluateLocked(ctx, member, report)
	})
	switch {
	case errors.Is(err, distlock.ErrNotAcquired):
		r.skip(report, member.ID, SkipLocked)
	case err != nil:
		r.fail(report, member.ID, err)
	}
}

func (r *Runner) evaluateLocked(ctx context.Context, member domain.Member, report *PassReport) error {
	now := r.now()
	report.Evaluated++

	state, err := r.members.GetState(ctx, member.ID)
	if errors.Is(err, ErrNotFound) {
		state = &domain.MemberRenewalState{MemberID: member.ID}
	} else if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	state.Email = member.Email
	state.Name = fullName(member)
	state.RenewalDate = member.RenewalDate
	state.ManagedBy = domain.ManagedByPlugin
	reset := ResetCycle(state)

	interval, due := DueInterval(*state, now)
	if !due {
		report.NotDue++
		if reset {
			return r.save(ctx, state, now)
		}
		return nil
	}

	key := markerKey(member.ID, *state.CycleRenewalDate, interval)
	claimed, err := r.marker.Claim(ctx, key)
	if err != nil {
		return fmt.Errorf("claim send marker: %w", err)
	}

	dispatch := Dispatch{MemberID: member.ID, Interval: interval}
	if claimed {
		msg, err := r.composer.Compose(*state, interval, now)
		if err != nil {
			r.release(key)
			return fmt.Errorf("compose reminder: %w", err)
		}
		result, err := r.sender.Send(ctx, msg)
		if err != nil {
			r.release(key)
			return fmt.Errorf("send reminder: %w", err)
		}
		dispatch.Blocked = result.Blocked
		report.Sent = append(report.Sent, dispatch)
		metrics.RenewalReminders.WithLabelValues(strconv.Itoa(interval)).Inc()
		r.log.Info("renewal reminder sent",
			"member_id", member.ID, "to", member.Email,
			"interval", interval, "blocked", result.Blocked)
	} else {
		// An earlier pass sent this reminder but did not record it.
		r.log.Warn("send marker already claimed, recording interval",
			"member_id", member.ID, "interval", interval)
	}

	state.LastReminderIntervalSent = &interval
	return r.save(ctx, state, now)
}

func (r *Runner) save(ctx context.Context, state *domain.MemberRenewalState, now time.Time) error {
	state.UpdatedAt = now
	if err := r.members.SaveState(ctx, state); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (r *Runner) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.marker.Release(ctx, key); err != nil {
		r.log.Warn("failed to release send marker", "key", key, "error", err)
	}
}

// markerKey identifies one reminder in one renewal cycle.
func markerKey(memberID string, cycle time.Time, interval int) string {
	return fmt.Sprintf("%s:%s:%d", memberID, cycle.UTC().Format("2006-01-02"), interval)
}

func fullName(m domain.Member) string {
	switch {
	case m.FirstName != "" && m.LastName != "":
		return m.FirstName + " " + m.LastName
	case m.FirstName != "":
		return m.FirstName
	default:
		return m.LastName
	}
}
