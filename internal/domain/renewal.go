package domain

import "time"

// ManagedBy says which system owns renewal tracking for a member.
type ManagedBy string

const (
	ManagedByHost   ManagedBy = "host_subscription"
	ManagedByPlugin ManagedBy = "plugin"
)

// Member is a store customer holding a membership.
type Member struct {
	ID          string     `json:"id" db:"member_id"`
	Email       string     `json:"email" db:"email"`
	FirstName   string     `json:"first_name" db:"first_name"`
	LastName    string     `json:"last_name" db:"last_name"`
	RenewalDate *time.Time `json:"renewal_date" db:"renewal_date"`
}

// MemberRenewalState is the persisted reminder bookkeeping for a member.
// CycleRenewalDate is the renewal date LastReminderIntervalSent belongs to;
// when RenewalDate moves past it the cycle starts over.
type MemberRenewalState struct {
	MemberID                 string     `json:"member_id" db:"member_id"`
	Email                    string     `json:"email" db:"email"`
	Name                     string     `json:"name" db:"name"`
	RenewalDate              *time.Time `json:"renewal_date" db:"renewal_date"`
	ManagedBy                ManagedBy  `json:"managed_by" db:"managed_by"`
	LastReminderIntervalSent *int       `json:"last_reminder_interval_sent" db:"last_reminder_interval_sent"`
	CycleRenewalDate         *time.Time `json:"cycle_renewal_date" db:"cycle_renewal_date"`
	UpdatedAt                time.Time  `json:"updated_at" db:"updated_at"`
}

// RenewalStatistics is the aggregate shown on the renewal settings page.
type RenewalStatistics struct {
	Total         int `json:"total"`
	HostManaged   int `json:"host_managed"`
	PluginManaged int `json:"plugin_managed"`
}
