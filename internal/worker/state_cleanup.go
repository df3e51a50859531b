package worker

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/lgl-sync/internal/pkg/logger"
)

const (
	// DefaultCleanupInterval is how often the cleanup cycle runs.
	DefaultCleanupInterval = 24 * time.Hour

	// cleanupBatchSize limits each DELETE to avoid long row locks.
	cleanupBatchSize = 1000
)

// staleStateQuery removes reminder state for members that left the store or
// no longer hold a membership, once it has been untouched for 30 days. A
// member who buys a membership again starts a fresh cycle.
const staleStateQuery = `
	DELETE FROM lgl_member_renewals
	WHERE member_id IN (
		SELECT r.member_id FROM lgl_member_renewals r
		LEFT JOIN store_members m ON m.id = r.member_id
		WHERE (m.id IS NULL OR m.has_membership = false)
		  AND r.updated_at < NOW() - INTERVAL '30 days'
		LIMIT $1
	)`

// StateCleanupWorker prunes orphaned renewal reminder state.
type StateCleanupWorker struct {
	db         *sql.DB
	interval   time.Duration
	batchPause time.Duration
	log        *logger.Logger
}

// NewStateCleanupWorker creates a cleanup worker with default settings.
func NewStateCleanupWorker(db *sql.DB) *StateCleanupWorker {
	return &StateCleanupWorker{
		db:         db,
		interval:   DefaultCleanupInterval,
		batchPause: 100 * time.Millisecond,
		log:        logger.With("component", "state_cleanup"),
	}
}

// Start runs a cleanup immediately and then on every tick. It blocks until
// ctx is cancelled.
func (w *StateCleanupWorker) Start(ctx context.Context) {
	w.log.Info("state cleanup started", "interval", w.interval.String(), "batch_size", cleanupBatchSize)
	w.Cleanup(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("state cleanup stopping")
			return
		case <-ticker.C:
			w.Cleanup(ctx)
		}
	}
}

// Cleanup deletes stale rows in batches until none are left and returns the
// number removed.
func (w *StateCleanupWorker) Cleanup(ctx context.Context) int64 {
	start := time.Now()
	var total int64
	for {
		if ctx.Err() != nil {
			return total
		}

		queryCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		res, err := w.db.ExecContext(queryCtx, staleStateQuery, cleanupBatchSize)
		cancel()
		if err != nil {
			if isUndefinedTable(err) {
				w.log.Warn("renewal tables missing, skipping cleanup")
			} else {
				w.log.Error("state cleanup failed", "error", err)
			}
			return total
		}

		affected, _ := res.RowsAffected()
		total += affected
		if affected < cleanupBatchSize {
			break
		}
		time.Sleep(w.batchPause)
	}
	if total > 0 {
		w.log.Info("stale renewal state removed", "rows", total, "took", time.Since(start).Round(time.Millisecond).String())
	}
	return total
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42P01"
}
