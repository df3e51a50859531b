package emailgate

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/pkg/logger"
)

// PreviewLength is the number of characters kept in a blocked entry preview.
const PreviewLength = 200

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Gate decides whether outgoing email is suppressed.
type Gate struct {
	settings   Settings
	log        BlockedLog
	adminEmail string
	signals    EnvironmentSignals
	now        func() time.Time
	logger     *logger.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate creates a gate. adminEmail is always allowed through.
func NewGate(settings Settings, log BlockedLog, adminEmail string, signals EnvironmentSignals, opts ...Option) *Gate {
	admin, err := NormalizeAddress(adminEmail)
	if err != nil {
		admin = ""
	}
	g := &Gate{
		settings:   settings,
		log:        log,
		adminEmail: admin,
		signals:    signals,
		now:        time.Now,
		logger:     logger.With("component", "email_gate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsDevelopment reports the environment classification for this call.
func (g *Gate) IsDevelopment() bool {
	return DetectDevelopment(g.signals)
}

// activePause returns the pause deadline if it has not passed yet.
func (g *Gate) activePause(ctx context.Context) (*time.Time, error) {
	until, err := g.settings.PauseUntil(ctx)
	if err != nil {
		return nil, fmt.Errorf("read pause: %w", err)
	}
	if until == nil || !until.After(g.now()) {
		return nil, nil
	}
	return until, nil
}

// ShouldBlock applies the decision order to one recipient. An address that
// cannot be parsed is matched against the allow-list as given.
func (g *Gate) ShouldBlock(ctx context.Context, to string) (bool, error) {
	addr, err := NormalizeAddress(to)
	if err != nil {
		addr = strings.ToLower(strings.TrimSpace(to))
	}

	if g.adminEmail != "" && addr == g.adminEmail {
		return false, nil
	}
	listed, err := g.settings.IsWhitelisted(ctx, addr)
	if err != nil {
		return false, fmt.Errorf("read whitelist: %w", err)
	}
	if listed {
		return false, nil
	}

	pause, err := g.activePause(ctx)
	if err != nil {
		return false, err
	}
	if pause != nil {
		return false, nil
	}

	force, err := g.settings.ForceBlocking(ctx)
	if err != nil {
		return false, fmt.Errorf("read force flag: %w", err)
	}
	if force {
		return true, nil
	}

	return g.IsDevelopment(), nil
}

// Record appends a suppressed message to the blocked log.
func (g *Gate) Record(ctx context.Context, msg domain.EmailMessage) error {
	entry := domain.BlockedEmailEntry{
		Timestamp:      g.now().UTC(),
		To:             msg.To,
		Subject:        msg.Subject,
		MessagePreview: Preview(msg),
		Headers:        entryHeaders(msg),
	}
	if err := g.log.Append(ctx, entry); err != nil {
		return fmt.Errorf("append blocked log: %w", err)
	}
	g.logger.Info("email blocked", "to", msg.To, "subject", msg.Subject)
	return nil
}

// Status returns a read-only snapshot of the blocking state.
func (g *Gate) Status(ctx context.Context) (domain.BlockingStatus, error) {
	force, err := g.settings.ForceBlocking(ctx)
	if err != nil {
		return domain.BlockingStatus{}, fmt.Errorf("read force flag: %w", err)
	}
	pause, err := g.activePause(ctx)
	if err != nil {
		return domain.BlockingStatus{}, err
	}
	dev := g.IsDevelopment()
	paused := pause != nil
	return domain.BlockingStatus{
		IsDevelopment:       dev,
		IsForceBlocking:     force,
		IsTemporarilyPaused: paused,
		PauseUntil:          pause,
		IsActivelyBlocking:  !paused && (force || dev),
	}, nil
}

// MaxPause is the longest a pause may run.
const MaxPause = 7 * 24 * time.Hour

// PauseMinutes converts a user supplied minute count, rejecting values
// outside (0, MaxPause] before they can overflow a time.Duration.
func PauseMinutes(minutes int) (time.Duration, error) {
	if minutes <= 0 || minutes > int(MaxPause/time.Minute) {
		return 0, ErrInvalidPause
	}
	return time.Duration(minutes) * time.Minute, nil
}

// Pause allows all email for d. It returns the deadline.
func (g *Gate) Pause(ctx context.Context, d time.Duration) (time.Time, error) {
	if d <= 0 || d > MaxPause {
		return time.Time{}, ErrInvalidPause
	}
	until := g.now().Add(d).UTC()
	if err := g.settings.SetPause(ctx, until); err != nil {
		return time.Time{}, fmt.Errorf("set pause: %w", err)
	}
	g.logger.Warn("email blocking paused", "until", until.Format(time.RFC3339))
	return until, nil
}

// Resume ends a pause immediately.
func (g *Gate) Resume(ctx context.Context) error {
	if err := g.settings.ClearPause(ctx); err != nil {
		return fmt.Errorf("clear pause: %w", err)
	}
	g.logger.Info("email blocking resumed")
	return nil
}

// SetForceBlocking sets the manual override.
func (g *Gate) SetForceBlocking(ctx context.Context, on bool) error {
	if err := g.settings.SetForceBlocking(ctx, on); err != nil {
		return fmt.Errorf("set force flag: %w", err)
	}
	g.logger.Info("force blocking changed", "enabled", on)
	return nil
}

// Log returns the blocked log newest first.
func (g *Gate) Log(ctx context.Context) ([]domain.BlockedEmailEntry, error) {
	entries, err := g.log.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("read blocked log: %w", err)
	}
	out := make([]domain.BlockedEmailEntry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out, nil
}

// ClearLog empties the blocked log.
func (g *Gate) ClearLog(ctx context.Context) error {
	if err := g.log.Clear(ctx); err != nil {
		return fmt.Errorf("clear blocked log: %w", err)
	}
	return nil
}

// ImportWhitelist replaces the whitelist with the addresses in text and
// returns how many were stored.
func (g *Gate) ImportWhitelist(ctx context.Context, text string) (int, error) {
	addrs, err := ParseWhitelist(text)
	if err != nil {
		return 0, err
	}
	if err := g.settings.ReplaceWhitelist(ctx, addrs); err != nil {
		return 0, fmt.Errorf("replace whitelist: %w", err)
	}
	return len(addrs), nil
}

// ExportWhitelist renders the whitelist for ImportWhitelist.
func (g *Gate) ExportWhitelist(ctx context.Context) (string, error) {
	addrs, err := g.settings.Whitelist(ctx)
	if err != nil {
		return "", fmt.Errorf("read whitelist: %w", err)
	}
	return FormatWhitelist(addrs), nil
}

// Preview returns the first PreviewLength characters of the message text
// with markup removed.
func Preview(msg domain.EmailMessage) string {
	body := msg.TextBody
	if strings.TrimSpace(body) == "" {
		body = msg.HTMLBody
	}
	body = tagPattern.ReplaceAllString(body, " ")
	body = strings.TrimSpace(whitespacePattern.ReplaceAllString(body, " "))
	if utf8.RuneCountInString(body) <= PreviewLength {
		return body
	}
	runes := []rune(body)
	return string(runes[:PreviewLength])
}

func entryHeaders(msg domain.EmailMessage) map[string]string {
	h := make(map[string]string, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		h[k] = v
	}
	if msg.FromEmail != "" {
		from := msg.FromEmail
		if msg.FromName != "" {
			from = fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail)
		}
		h["From"] = from
	}
	if msg.ReplyTo != "" {
		h["Reply-To"] = msg.ReplyTo
	}
	return h
}
