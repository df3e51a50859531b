package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/service/syncstatus"
)

// SyncRecordRepo implements syncstatus.Repository against PostgreSQL.
type SyncRecordRepo struct{ db *sql.DB }

// NewSyncRecordRepo creates a Postgres-backed sync record repository.
func NewSyncRecordRepo(db *sql.DB) *SyncRecordRepo { return &SyncRecordRepo{db: db} }

const syncRecordColumns = `order_id, status, constituent_id, match_method, matched_email,
	payment_id, constituent_response_raw, payment_response_raw, synced_at`

func (r *SyncRecordRepo) Upsert(ctx context.Context, rec *domain.SyncRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lgl_sync_records (`+syncRecordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (order_id) DO UPDATE SET
			status = EXCLUDED.status,
			constituent_id = EXCLUDED.constituent_id,
			match_method = EXCLUDED.match_method,
			matched_email = EXCLUDED.matched_email,
			payment_id = EXCLUDED.payment_id,
			constituent_response_raw = EXCLUDED.constituent_response_raw,
			payment_response_raw = EXCLUDED.payment_response_raw,
			synced_at = EXCLUDED.synced_at
	`,
		rec.OrderID, string(rec.Status), nullString(rec.ConstituentID), string(rec.MatchMethod),
		nullString(rec.MatchedEmail), nullString(rec.PaymentID),
		rec.ConstituentResponseRaw, rec.PaymentResponseRaw, rec.SyncedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert sync record: %w", err)
	}
	return nil
}

func (r *SyncRecordRepo) Get(ctx context.Context, orderID string) (*domain.SyncRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+syncRecordColumns+` FROM lgl_sync_records WHERE order_id = $1`, orderID)
	rec, err := scanSyncRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, syncstatus.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sync record: %w", err)
	}
	return rec, nil
}

func (r *SyncRecordRepo) List(ctx context.Context, f syncstatus.ListFilter) ([]domain.SyncRecord, int, error) {
	where, args := "", []interface{}{}
	if f.Status != "" {
		where = " WHERE status = $1"
		args = append(args, string(f.Status))
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lgl_sync_records`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sync records: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = total
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM lgl_sync_records%s ORDER BY synced_at DESC LIMIT $%d OFFSET $%d`,
		syncRecordColumns, where, n+1, n+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sync records: %w", err)
	}
	defer rows.Close()

	var out []domain.SyncRecord
	for rows.Next() {
		rec, err := scanSyncRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan sync record: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list sync records: %w", err)
	}
	return out, total, nil
}

func (r *SyncRecordRepo) CountByStatus(ctx context.Context) (map[domain.SyncStatus]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM lgl_sync_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count sync records by status: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.SyncStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[domain.SyncStatus(status)] = n
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSyncRecord(s rowScanner) (*domain.SyncRecord, error) {
	var (
		rec                                  domain.SyncRecord
		status, method                       string
		constituentID, matchedEmail, payment sql.NullString
	)
	if err := s.Scan(&rec.OrderID, &status, &constituentID, &method, &matchedEmail,
		&payment, &rec.ConstituentResponseRaw, &rec.PaymentResponseRaw, &rec.SyncedAt); err != nil {
		return nil, err
	}
	rec.Status = domain.SyncStatus(status)
	rec.MatchMethod = domain.MatchMethod(method)
	rec.ConstituentID = stringPtr(constituentID)
	rec.MatchedEmail = stringPtr(matchedEmail)
	rec.PaymentID = stringPtr(payment)
	return &rec, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
