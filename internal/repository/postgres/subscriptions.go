package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// SubscriptionRepo implements renewal.SubscriptionIntegration over the
// store's subscription table.
type SubscriptionRepo struct {
	db      *sql.DB
	enabled bool
}

// NewSubscriptionRepo creates the integration. enabled mirrors whether the
// store has its subscription extension installed.
func NewSubscriptionRepo(db *sql.DB, enabled bool) *SubscriptionRepo {
	return &SubscriptionRepo{db: db, enabled: enabled}
}

func (r *SubscriptionRepo) IsActive() bool { return r.enabled }

// HasActiveSubscription reports whether any subscription record exists for
// the member, whatever its status.
func (r *SubscriptionRepo) HasActiveSubscription(ctx context.Context, memberID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM store_subscriptions WHERE customer_id = $1)`,
		memberID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check subscriptions: %w", err)
	}
	return exists, nil
}
