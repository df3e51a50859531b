package emailgate

import (
	"context"
	"time"

	"github.com/ignite/lgl-sync/internal/domain"
)

// Settings is the persisted, operator-controlled half of the blocking state.
type Settings interface {
	ForceBlocking(ctx context.Context) (bool, error)
	SetForceBlocking(ctx context.Context, on bool) error

	// PauseUntil returns the pause deadline, or nil when no pause is set.
	// Stores expire the pause on their own once the deadline passes.
	PauseUntil(ctx context.Context) (*time.Time, error)
	SetPause(ctx context.Context, until time.Time) error
	ClearPause(ctx context.Context) error

	IsWhitelisted(ctx context.Context, addr string) (bool, error)
	Whitelist(ctx context.Context) ([]string, error)
	ReplaceWhitelist(ctx context.Context, addrs []string) error
}

// BlockedLog is the bounded log of suppressed messages.
type BlockedLog interface {
	// Append adds an entry, evicting the oldest one at capacity. Concurrent
	// appends must not lose entries.
	Append(ctx context.Context, entry domain.BlockedEmailEntry) error
	// Entries returns the log oldest first.
	Entries(ctx context.Context) ([]domain.BlockedEmailEntry, error)
	Clear(ctx context.Context) error
}

// Mailer delivers a message.
type Mailer interface {
	Send(ctx context.Context, msg domain.EmailMessage) (domain.SendResult, error)
}
