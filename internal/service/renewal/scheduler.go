package renewal

import (
	"time"

	"github.com/ignite/lgl-sync/internal/domain"
)

// Intervals are the reminder offsets in days relative to the renewal date,
// most-future first. Positive values are days before renewal, negative
// values days overdue.
var Intervals = []int{30, 14, 7, 0, -7, -30}

// TerminalInterval ends a renewal cycle: after it is sent the membership is
// inactive and no reminder follows until the renewal date moves.
const TerminalInterval = -30

// IsInterval reports whether days is one of Intervals.
func IsInterval(days int) bool {
	for _, i := range Intervals {
		if i == days {
			return true
		}
	}
	return false
}

// civilDay truncates t to midnight UTC of its calendar date.
func civilDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntil returns the whole calendar days from now until renewal, negative
// when overdue.
func DaysUntil(renewal, now time.Time) int {
	return int(civilDay(renewal).Sub(civilDay(now)).Hours() / 24)
}

// sameDay reports whether a and b are set and fall on the same calendar day.
func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return false
	}
	return civilDay(*a).Equal(civilDay(*b))
}

// lastSentThisCycle returns LastReminderIntervalSent if it belongs to the
// member's current renewal date, nil otherwise.
func lastSentThisCycle(state domain.MemberRenewalState) *int {
	if state.LastReminderIntervalSent == nil {
		return nil
	}
	if !sameDay(state.RenewalDate, state.CycleRenewalDate) {
		return nil
	}
	return state.LastReminderIntervalSent
}

// ResetCycle clears reminder bookkeeping left over from an earlier renewal
// date. It reports whether anything changed.
func ResetCycle(state *domain.MemberRenewalState) bool {
	if state.RenewalDate == nil {
		return false
	}
	if sameDay(state.RenewalDate, state.CycleRenewalDate) {
		return false
	}
	changed := state.LastReminderIntervalSent != nil || state.CycleRenewalDate != nil
	state.LastReminderIntervalSent = nil
	d := civilDay(*state.RenewalDate)
	state.CycleRenewalDate = &d
	return changed
}

// DueInterval returns the reminder interval due for the member at now.
//
// An interval is crossed once DaysUntil(renewal, now) <= interval. Of the
// crossed intervals the most overdue one wins, so a scheduler that missed
// several days sends a single, most relevant reminder. It is due only if it
// is more overdue than the interval already sent this cycle; the scheduler
// never moves back toward a less-overdue reminder.
//
// DueInterval is pure: it does not touch state, and calling it again with the
// same inputs yields the same answer until the caller records the send.
func DueInterval(state domain.MemberRenewalState, now time.Time) (int, bool) {
	if state.RenewalDate == nil {
		return 0, false
	}
	days := DaysUntil(*state.RenewalDate, now)

	due, found := 0, false
	for _, i := range Intervals {
		if days <= i {
			due, found = i, true
		}
	}
	if !found {
		return 0, false
	}

	if last := lastSentThisCycle(state); last != nil && due >= *last {
		return 0, false
	}
	return due, true
}

// IsActive reports whether the membership is current: the renewal date has
// not passed by more than graceDays and the terminal reminder has not been
// sent for this cycle.
func IsActive(state domain.MemberRenewalState, now time.Time, graceDays int) bool {
	if state.RenewalDate == nil {
		return false
	}
	if last := lastSentThisCycle(state); last != nil && *last == TerminalInterval {
		return false
	}
	return DaysUntil(*state.RenewalDate, now) >= -graceDays
}
