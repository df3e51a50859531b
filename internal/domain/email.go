package domain

import "time"

// EmailMessage is a fully composed outbound email.
type EmailMessage struct {
	To        string            `json:"to"`
	FromName  string            `json:"from_name"`
	FromEmail string            `json:"from_email"`
	ReplyTo   string            `json:"reply_to,omitempty"`
	Subject   string            `json:"subject"`
	HTMLBody  string            `json:"html_body"`
	TextBody  string            `json:"text_body,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// SendResult is returned by a mailer after attempting delivery.
type SendResult struct {
	Success   bool      `json:"success"`
	Blocked   bool      `json:"blocked"`
	MessageID string    `json:"message_id,omitempty"`
	SentAt    time.Time `json:"sent_at"`
	Error     string    `json:"error,omitempty"`
}

// BlockedEmailEntry is one row of the blocked-email log.
type BlockedEmailEntry struct {
	Timestamp      time.Time         `json:"timestamp"`
	To             string            `json:"to"`
	Subject        string            `json:"subject"`
	MessagePreview string            `json:"message_preview"`
	Headers        map[string]string `json:"headers,omitempty"`
}

// BlockingStatus is a read-only snapshot of the email blocking state.
type BlockingStatus struct {
	IsDevelopment       bool       `json:"is_development"`
	IsForceBlocking     bool       `json:"is_force_blocking"`
	IsTemporarilyPaused bool       `json:"is_temporarily_paused"`
	PauseUntil          *time.Time `json:"pause_until,omitempty"`
	IsActivelyBlocking  bool       `json:"is_actively_blocking"`
}
