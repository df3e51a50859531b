package syncstatus

import (
	"context"

	"github.com/ignite/lgl-sync/internal/domain"
)

// Repository defines the data access contract for sync records.
type Repository interface {
	// Upsert stores rec, replacing any existing record for the same order.
	Upsert(ctx context.Context, rec *domain.SyncRecord) error

	// Get returns the record for an order or ErrNotFound.
	Get(ctx context.Context, orderID string) (*domain.SyncRecord, error)

	// List returns records matching the filter, newest first, plus the
	// total number of matches before pagination.
	List(ctx context.Context, filter ListFilter) ([]domain.SyncRecord, int, error)

	// CountByStatus returns the number of records per status.
	CountByStatus(ctx context.Context) (map[domain.SyncStatus]int, error)
}

// Archiver keeps a copy of the raw CRM responses outside the record store.
type Archiver interface {
	ArchiveSync(ctx context.Context, rec domain.SyncRecord) error
}

// ListFilter controls pagination and filtering for sync record lists.
type ListFilter struct {
	Status domain.SyncStatus
	Limit  int
	Offset int
}
