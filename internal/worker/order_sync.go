package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/metrics"
	"github.com/ignite/lgl-sync/internal/pkg/logger"
)

// Errors returned by OrderSyncer.Handle for events that can never succeed.
var (
	ErrInvalidEvent = errors.New("order event has no order id")
	ErrUnknownEvent = errors.New("unknown order event type")
)

// CRM is the constituent and payment side of the LGL client.
type CRM interface {
	SyncConstituent(ctx context.Context, order domain.Order) domain.ConstituentResult
	CreatePayment(ctx context.Context, constituentID string, order domain.Order) domain.PaymentResult
}

// Reconciler persists the outcome of a sync attempt.
type Reconciler interface {
	Reconcile(ctx context.Context, orderID string, c domain.ConstituentResult, p domain.PaymentResult) (domain.SyncRecord, error)
}

// MemberLookup resolves a store customer to a member.
type MemberLookup interface {
	GetMember(ctx context.Context, memberID string) (*domain.Member, error)
}

// MembershipRecorder moves renewal dates after membership purchases.
type MembershipRecorder interface {
	RecordMembershipPayment(ctx context.Context, member domain.Member, paidAt time.Time) (time.Time, error)
}

// OrderMarker remembers which orders already extended a membership. Claim
// returns false when the order was claimed before.
type OrderMarker interface {
	Claim(ctx context.Context, orderID string) (bool, error)
	Release(ctx context.Context, orderID string) error
}

// Outcome actions.
const (
	ActionSynced       = "synced"
	ActionSkipped      = "skipped"
	ActionAcknowledged = "acknowledged"
)

// Outcome reports what OrderSyncer did with an event.
type Outcome struct {
	Action string             `json:"action"`
	Record *domain.SyncRecord `json:"record,omitempty"`
	// RenewalDate is set when a membership purchase moved the member's
	// renewal date.
	RenewalDate *time.Time `json:"renewal_date,omitempty"`
}

// OrderSyncer reacts to store order lifecycle events by syncing paid orders
// to the CRM and recording the result.
type OrderSyncer struct {
	crm        CRM
	reconciler Reconciler
	members    MemberLookup
	renewals   MembershipRecorder
	applied    OrderMarker
	log        *logger.Logger
}

// NewOrderSyncer creates an order syncer.
func NewOrderSyncer(crm CRM, reconciler Reconciler) *OrderSyncer {
	return &OrderSyncer{
		crm:        crm,
		reconciler: reconciler,
		log:        logger.With("component", "order_syncer"),
	}
}

// WithMemberships enables renewal date updates for membership purchases.
// applied makes the update happen once per order, however often the order
// is delivered.
func (s *OrderSyncer) WithMemberships(members MemberLookup, renewals MembershipRecorder, applied OrderMarker) *OrderSyncer {
	s.members = members
	s.renewals = renewals
	s.applied = applied
	return s
}

// Handle processes one event. Paid orders are synced; created orders only
// when the store already marks them paid; cancelled orders are acknowledged
// without contacting the CRM. The returned error is non-nil only for
// invalid events and persistence failures.
func (s *OrderSyncer) Handle(ctx context.Context, evt domain.OrderEvent) (Outcome, error) {
	evt.Order.ID = strings.TrimSpace(evt.Order.ID)
	if evt.Order.ID == "" {
		metrics.OrderEvents.WithLabelValues(string(evt.Type), "invalid").Inc()
		return Outcome{}, ErrInvalidEvent
	}
	log := s.log.With("order_id", evt.Order.ID, "event", string(evt.Type))

	switch evt.Type {
	case domain.OrderPaid:
		if !evt.Order.IsPaid() {
			at := evt.OccurredAt
			if at.IsZero() {
				at = time.Now()
			}
			evt.Order.PaidAt = &at
		}
	case domain.OrderCreated:
		if !evt.Order.IsPaid() {
			log.Debug("order not paid yet, waiting for payment")
			metrics.OrderEvents.WithLabelValues(string(evt.Type), ActionSkipped).Inc()
			return Outcome{Action: ActionSkipped}, nil
		}
	case domain.OrderCancelled:
		log.Info("order cancelled, nothing to sync")
		metrics.OrderEvents.WithLabelValues(string(evt.Type), ActionAcknowledged).Inc()
		return Outcome{Action: ActionAcknowledged}, nil
	default:
		metrics.OrderEvents.WithLabelValues(string(evt.Type), "invalid").Inc()
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownEvent, evt.Type)
	}

	rec, err := s.sync(ctx, evt.Order)
	if err != nil {
		metrics.OrderEvents.WithLabelValues(string(evt.Type), "error").Inc()
		return Outcome{}, err
	}
	metrics.OrderEvents.WithLabelValues(string(evt.Type), ActionSynced).Inc()

	out := Outcome{Action: ActionSynced, Record: &rec}
	if next := s.recordMembership(ctx, evt.Order); next != nil {
		out.RenewalDate = next
	}
	return out, nil
}

func (s *OrderSyncer) sync(ctx context.Context, order domain.Order) (domain.SyncRecord, error) {
	c := s.crm.SyncConstituent(ctx, order)

	var p domain.PaymentResult
	if c.Success && c.ConstituentID != "" {
		p = s.crm.CreatePayment(ctx, c.ConstituentID, order)
	} else {
		p = domain.PaymentResult{Raw: skippedPayment()}
	}

	rec, err := s.reconciler.Reconcile(ctx, order.ID, c, p)
	if err != nil {
		return domain.SyncRecord{}, fmt.Errorf("reconcile order %s: %w", order.ID, err)
	}
	return rec, nil
}

func skippedPayment() []byte {
	b, _ := json.Marshal(map[string]string{"error": "payment not attempted: constituent sync failed"})
	return b
}

func hasMembership(order domain.Order) bool {
	for _, it := range order.Items {
		if it.Membership {
			return true
		}
	}
	return false
}

// recordMembership extends the buyer's renewal date once per order. Failures
// are logged; the CRM sync has already been recorded and must not be
// repeated for them.
func (s *OrderSyncer) recordMembership(ctx context.Context, order domain.Order) *time.Time {
	if s.members == nil || s.renewals == nil || s.applied == nil || order.CustomerID == "" || !hasMembership(order) {
		return nil
	}
	log := s.log.With("order_id", order.ID, "customer_id", order.CustomerID)

	first, err := s.applied.Claim(ctx, order.ID)
	if err != nil {
		log.Error("membership claim failed", "error", err)
		return nil
	}
	if !first {
		log.Debug("membership already applied for order")
		return nil
	}

	next, err := s.applyMembership(ctx, order)
	if err != nil {
		log.Error("renewal date update failed", "error", err)
		if err := s.applied.Release(ctx, order.ID); err != nil {
			log.Warn("membership claim release failed", "error", err)
		}
		return nil
	}
	if next.IsZero() {
		return nil
	}
	log.Info("membership renewal date updated", "renewal_date", next.Format("2006-01-02"))
	return &next
}

func (s *OrderSyncer) applyMembership(ctx context.Context, order domain.Order) (time.Time, error) {
	member, err := s.members.GetMember(ctx, order.CustomerID)
	if err != nil {
		return time.Time{}, fmt.Errorf("membership lookup: %w", err)
	}
	return s.renewals.RecordMembershipPayment(ctx, *member, *order.PaidAt)
}
