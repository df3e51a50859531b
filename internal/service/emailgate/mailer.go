package emailgate

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/metrics"
)

// GatedMailer runs every message past a Gate before handing it to the
// underlying Mailer.
type GatedMailer struct {
	gate *Gate
	next Mailer
}

// NewGatedMailer wraps next.
func NewGatedMailer(gate *Gate, next Mailer) *GatedMailer {
	return &GatedMailer{gate: gate, next: next}
}

// Send blocks the message if any recipient is blocked. A blocked message is
// recorded and reported as SendResult{Blocked: true} with no error.
func (m *GatedMailer) Send(ctx context.Context, msg domain.EmailMessage) (domain.SendResult, error) {
	for _, to := range splitRecipients(msg.To) {
		block, err := m.gate.ShouldBlock(ctx, to)
		if err != nil {
			return domain.SendResult{}, fmt.Errorf("blocking decision: %w", err)
		}
		if !block {
			continue
		}
		if err := m.gate.Record(ctx, msg); err != nil {
			return domain.SendResult{}, err
		}
		metrics.EmailsBlocked.Inc()
		return domain.SendResult{Blocked: true, SentAt: m.gate.now().UTC()}, nil
	}
	return m.next.Send(ctx, msg)
}

func splitRecipients(to string) []string {
	parts := strings.Split(to, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = append(out, to)
	}
	return out
}
