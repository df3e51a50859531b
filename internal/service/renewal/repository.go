package renewal

import (
	"context"
	"time"

	"github.com/ignite/lgl-sync/internal/domain"
)

// MemberRepository is the data access contract for members and their
// reminder bookkeeping.
type MemberRepository interface {
	// ListMembers returns every member holding a membership, including those
	// whose renewal date is unknown.
	ListMembers(ctx context.Context) ([]domain.Member, error)

	// GetState returns the persisted reminder state or ErrNotFound.
	GetState(ctx context.Context, memberID string) (*domain.MemberRenewalState, error)

	// SaveState inserts or replaces the reminder state for a member.
	SaveState(ctx context.Context, state *domain.MemberRenewalState) error

	// SetRenewalDate moves a member's renewal date.
	SetRenewalDate(ctx context.Context, memberID string, renewal time.Time) error
}

// SubscriptionIntegration is the store's own subscription system.
type SubscriptionIntegration interface {
	// IsActive reports whether the integration is installed at all.
	IsActive() bool
	// HasActiveSubscription reports whether the member's account has at
	// least one subscription record.
	HasActiveSubscription(ctx context.Context, memberID string) (bool, error)
}

// SendMarker makes reminder dispatch idempotent. Claim returns false when
// the key was already claimed by an earlier dispatch.
type SendMarker interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Sender delivers a composed reminder.
type Sender interface {
	Send(ctx context.Context, msg domain.EmailMessage) (domain.SendResult, error)
}
