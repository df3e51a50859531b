package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/service/renewal"
)

// MemberRepo implements renewal.MemberRepository. Members come from the
// store's customer table; reminder state lives in lgl_member_renewals.
type MemberRepo struct{ db *sql.DB }

// NewMemberRepo creates a Postgres-backed member repository.
func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{db: db} }

func (r *MemberRepo) ListMembers(ctx context.Context) ([]domain.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, first_name, last_name, membership_renewal_date
		FROM store_members
		WHERE has_membership = true
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		var m domain.Member
		var renewalDate sql.NullTime
		if err := rows.Scan(&m.ID, &m.Email, &m.FirstName, &m.LastName, &renewalDate); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.RenewalDate = timePtr(renewalDate)
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMember loads a single member by store customer id.
func (r *MemberRepo) GetMember(ctx context.Context, memberID string) (*domain.Member, error) {
	var m domain.Member
	var renewalDate sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, membership_renewal_date
		FROM store_members WHERE id = $1
	`, memberID).Scan(&m.ID, &m.Email, &m.FirstName, &m.LastName, &renewalDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, renewal.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	m.RenewalDate = timePtr(renewalDate)
	return &m, nil
}

func (r *MemberRepo) GetState(ctx context.Context, memberID string) (*domain.MemberRenewalState, error) {
	var (
		s                         domain.MemberRenewalState
		managedBy                 string
		renewalDate, cycleRenewal sql.NullTime
		lastSent                  sql.NullInt32
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT member_id, email, name, renewal_date, managed_by,
		       last_reminder_interval_sent, cycle_renewal_date, updated_at
		FROM lgl_member_renewals WHERE member_id = $1
	`, memberID).Scan(&s.MemberID, &s.Email, &s.Name, &renewalDate, &managedBy,
		&lastSent, &cycleRenewal, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, renewal.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get renewal state: %w", err)
	}
	s.ManagedBy = domain.ManagedBy(managedBy)
	s.RenewalDate = timePtr(renewalDate)
	s.CycleRenewalDate = timePtr(cycleRenewal)
	if lastSent.Valid {
		v := int(lastSent.Int32)
		s.LastReminderIntervalSent = &v
	}
	return &s, nil
}

func (r *MemberRepo) SaveState(ctx context.Context, s *domain.MemberRenewalState) error {
	var lastSent sql.NullInt32
	if s.LastReminderIntervalSent != nil {
		lastSent = sql.NullInt32{Int32: int32(*s.LastReminderIntervalSent), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lgl_member_renewals
			(member_id, email, name, renewal_date, managed_by,
			 last_reminder_interval_sent, cycle_renewal_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (member_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			renewal_date = EXCLUDED.renewal_date,
			managed_by = EXCLUDED.managed_by,
			last_reminder_interval_sent = EXCLUDED.last_reminder_interval_sent,
			cycle_renewal_date = EXCLUDED.cycle_renewal_date,
			updated_at = EXCLUDED.updated_at
	`, s.MemberID, s.Email, s.Name, nullTime(s.RenewalDate), string(s.ManagedBy),
		lastSent, nullTime(s.CycleRenewalDate), s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save renewal state: %w", err)
	}
	return nil
}

func (r *MemberRepo) SetRenewalDate(ctx context.Context, memberID string, renewalDate time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE store_members SET membership_renewal_date = $2, has_membership = true WHERE id = $1`,
		memberID, renewalDate)
	if err != nil {
		return fmt.Errorf("set renewal date: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return renewal.ErrNotFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
