package api

import (
	"context"
	"time"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/pkg/logger"
	"github.com/ignite/lgl-sync/internal/service/renewal"
	"github.com/ignite/lgl-sync/internal/service/syncstatus"
	"github.com/ignite/lgl-sync/internal/worker"
)

// OrderEventHandler processes store order events.
type OrderEventHandler interface {
	Handle(ctx context.Context, evt domain.OrderEvent) (worker.Outcome, error)
}

// SyncReader is the read side of the sync record store.
type SyncReader interface {
	Get(ctx context.Context, orderID string) (*domain.SyncRecord, error)
	List(ctx context.Context, f syncstatus.ListFilter) ([]domain.SyncRecord, int, error)
	Stats(ctx context.Context) (*domain.SyncStats, error)
}

// RenewalService exposes renewal statistics and manual passes.
type RenewalService interface {
	Statistics(ctx context.Context) (domain.RenewalStatistics, error)
	RunPass(ctx context.Context) (*renewal.PassReport, error)
}

// BlockingControl is the administrative surface of the email gate.
type BlockingControl interface {
	Status(ctx context.Context) (domain.BlockingStatus, error)
	Pause(ctx context.Context, d time.Duration) (time.Time, error)
	Resume(ctx context.Context) error
	SetForceBlocking(ctx context.Context, on bool) error
	Log(ctx context.Context) ([]domain.BlockedEmailEntry, error)
	ClearLog(ctx context.Context) error
	ImportWhitelist(ctx context.Context, text string) (int, error)
	ExportWhitelist(ctx context.Context) (string, error)
}

// Handlers holds the services behind the HTTP API. Any service may be nil;
// its routes then answer 503.
type Handlers struct {
	orders        OrderEventHandler
	sync          SyncReader
	renewals      RenewalService
	blocking      BlockingControl
	webhookSecret string
	log           *logger.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(orders OrderEventHandler, sync SyncReader, renewals RenewalService, blocking BlockingControl) *Handlers {
	return &Handlers{
		orders:   orders,
		sync:     sync,
		renewals: renewals,
		blocking: blocking,
		log:      logger.With("component", "api"),
	}
}

// WithWebhookSecret requires order events to carry the X-Webhook-Secret header.
func (h *Handlers) WithWebhookSecret(secret string) *Handlers {
	h.webhookSecret = secret
	return h
}
