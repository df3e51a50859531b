package syncstatus

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/metrics"
	"github.com/ignite/lgl-sync/internal/pkg/logger"
)

// emptyResponse is stored when a step produced no payload at all, so the
// audit trail shows the absence explicitly instead of a blank column.
const emptyResponse = `{"error":"empty response"}`

const binaryPrefix = "base64:"

// Derive computes the sync record for one attempt. It is pure: the same
// inputs always yield the same record.
func Derive(orderID string, c domain.ConstituentResult, p domain.PaymentResult, now time.Time) domain.SyncRecord {
	rec := domain.SyncRecord{
		OrderID:                orderID,
		MatchMethod:            domain.MatchNone,
		ConstituentResponseRaw: rawString(c.Raw),
		PaymentResponseRaw:     rawString(p.Raw),
		SyncedAt:               now.UTC(),
	}

	// A "success" without an id is a malformed response and counts as failure.
	constituentOK := c.Success && strings.TrimSpace(c.ConstituentID) != ""
	paymentOK := p.Success && strings.TrimSpace(p.PaymentID) != ""

	if constituentOK {
		id := c.ConstituentID
		rec.ConstituentID = &id
		rec.MatchMethod = c.MatchMethod
		if rec.MatchMethod == "" {
			rec.MatchMethod = domain.MatchNone
		}
		if c.MatchedEmail != "" {
			email := c.MatchedEmail
			rec.MatchedEmail = &email
		}
	}
	if paymentOK {
		id := p.PaymentID
		rec.PaymentID = &id
	}

	switch {
	case constituentOK && paymentOK:
		rec.Status = domain.SyncSynced
	case constituentOK || paymentOK:
		rec.Status = domain.SyncPartial
	default:
		rec.Status = domain.SyncUnsynced
	}
	return rec
}

// rawString keeps payloads verbatim. Payloads that are not valid UTF-8
// cannot live in a text column, so they are stored base64-encoded behind
// binaryPrefix and remain recoverable byte for byte.
func rawString(raw []byte) string {
	if len(raw) == 0 {
		return emptyResponse
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	return binaryPrefix + base64.StdEncoding.EncodeToString(raw)
}

// DecodeRaw reverses rawString for a stored payload.
func DecodeRaw(stored string) []byte {
	if strings.HasPrefix(stored, binaryPrefix) {
		if b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, binaryPrefix)); err == nil {
			return b
		}
	}
	return []byte(stored)
}

// Reconciler derives and persists sync records.
type Reconciler struct {
	repo     Repository
	archiver Archiver
	now      func() time.Time
	log      *logger.Logger
}

// ReconcilerOption customizes a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithArchiver copies every reconciled record to an audit archive.
func WithArchiver(a Archiver) ReconcilerOption {
	return func(r *Reconciler) { r.archiver = a }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) { r.now = now }
}

// NewReconciler creates a reconciler backed by the given repository.
func NewReconciler(repo Repository, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		repo: repo,
		now:  time.Now,
		log:  logger.With("component", "reconciler"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile records the outcome of a sync attempt for orderID, overwriting
// any earlier record. The only error it returns is a persistence failure;
// CRM failures are folded into the record's status.
func (r *Reconciler) Reconcile(ctx context.Context, orderID string, c domain.ConstituentResult, p domain.PaymentResult) (domain.SyncRecord, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.SyncRecord{}, ErrInvalidOrderID
	}

	rec := Derive(orderID, c, p, r.now())
	if err := r.repo.Upsert(ctx, &rec); err != nil {
		return rec, fmt.Errorf("upsert sync record %s: %w", orderID, err)
	}
	metrics.SyncRecords.WithLabelValues(string(rec.Status)).Inc()

	if r.archiver != nil {
		if err := r.archiver.ArchiveSync(ctx, rec); err != nil {
			r.log.Warn("archive sync record failed", "order_id", orderID, "error", err)
		}
	}

	if rec.Status != domain.SyncSynced {
		r.log.Warn("order not fully synced", "order_id", orderID, "status", rec.Status,
			"constituent_ok", rec.ConstituentID != nil, "payment_ok", rec.PaymentID != nil)
	} else {
		r.log.Info("order synced", "order_id", orderID, "match_method", rec.MatchMethod)
	}
	return rec, nil
}
