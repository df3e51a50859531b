package renewal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/lgl-sync/internal/domain"
)

// MemberStatus is the renewal view of a single member.
type MemberStatus struct {
	MemberID                 string           `json:"member_id"`
	ManagedBy                domain.ManagedBy `json:"managed_by"`
	RenewalDate              *time.Time       `json:"renewal_date"`
	DaysUntil                *int             `json:"days_until,omitempty"`
	Active                   bool             `json:"active"`
	LastReminderIntervalSent *int             `json:"last_reminder_interval_sent,omitempty"`
	NextInterval             *int             `json:"next_interval,omitempty"`
}

// Service is the entry point used by the API and CLI.
type Service struct {
	members   MemberRepository
	strategy  *StrategyManager
	runner    *Runner
	graceDays int
	now       func() time.Time
}

// NewService creates a renewal service.
func NewService(members MemberRepository, strategy *StrategyManager, runner *Runner, graceDays int) *Service {
	return &Service{
		members:   members,
		strategy:  strategy,
		runner:    runner,
		graceDays: graceDays,
		now:       time.Now,
	}
}

// Statistics returns the managed-by breakdown over all members.
func (s *Service) Statistics(ctx context.Context) (domain.RenewalStatistics, error) {
	return s.strategy.Statistics(ctx)
}

// RunPass runs one scheduling pass immediately.
func (s *Service) RunPass(ctx context.Context) (*PassReport, error) {
	return s.runner.Run(ctx)
}

// Status reports the renewal position of one member.
func (s *Service) Status(ctx context.Context, member domain.Member) (*MemberStatus, error) {
	managedBy, err := s.strategy.Classify(ctx, member)
	if err != nil {
		return nil, err
	}

	state, err := s.members.GetState(ctx, member.ID)
	if errors.Is(err, ErrNotFound) {
		state = &domain.MemberRenewalState{MemberID: member.ID}
	} else if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	state.RenewalDate = member.RenewalDate
	ResetCycle(state)

	now := s.now()
	out := &MemberStatus{
		MemberID:                 member.ID,
		ManagedBy:                managedBy,
		RenewalDate:              member.RenewalDate,
		Active:                   IsActive(*state, now, s.graceDays),
		LastReminderIntervalSent: state.LastReminderIntervalSent,
	}
	if member.RenewalDate != nil {
		d := DaysUntil(*member.RenewalDate, now)
		out.DaysUntil = &d
	}
	if managedBy == domain.ManagedByPlugin {
		if interval, ok := DueInterval(*state, now); ok {
			out.NextInterval = &interval
		}
	}
	return out, nil
}

// NextRenewalDate returns the renewal date after a membership payment made
// at paidAt: one year from the later of paidAt and the current renewal date.
func NextRenewalDate(current *time.Time, paidAt time.Time) time.Time {
	base := civilDay(paidAt)
	if current != nil && civilDay(*current).After(base) {
		base = civilDay(*current)
	}
	return base.AddDate(1, 0, 0)
}

// RecordMembershipPayment extends a plugin-managed member's renewal date
// after a paid membership order. Host-managed members are left to the
// subscription system.
func (s *Service) RecordMembershipPayment(ctx context.Context, member domain.Member, paidAt time.Time) (time.Time, error) {
	managedBy, err := s.strategy.Classify(ctx, member)
	if err != nil {
		return time.Time{}, err
	}
	if managedBy == domain.ManagedByHost {
		return time.Time{}, nil
	}
	next := NextRenewalDate(member.RenewalDate, paidAt)
	if err := s.members.SetRenewalDate(ctx, member.ID, next); err != nil {
		return time.Time{}, fmt.Errorf("set renewal date: %w", err)
	}
	return next, nil
}
