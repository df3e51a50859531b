package syncstatus

import (
	"context"
	"strings"

	"github.com/ignite/lgl-sync/internal/domain"
)

// Service exposes read access to sync records for the log and diagnostics
// pages. It is safe for concurrent use if the repository is.
type Service struct {
	repo Repository
}

// NewService creates a sync status service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the sync record for an order, or ErrNotFound.
func (s *Service) Get(ctx context.Context, orderID string) (*domain.SyncRecord, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	return s.repo.Get(ctx, orderID)
}

// List returns records filtered by status (empty means all), newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.SyncRecord, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, f)
}

// Stats returns record counts by status.
func (s *Service) Stats(ctx context.Context) (*domain.SyncStats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.SyncStats{
		Synced:   counts[domain.SyncSynced],
		Partial:  counts[domain.SyncPartial],
		Unsynced: counts[domain.SyncUnsynced],
	}
	stats.Total = stats.Synced + stats.Partial + stats.Unsynced
	return stats, nil
}
