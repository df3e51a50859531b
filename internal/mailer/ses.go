// Package mailer delivers email. SESMailer sends through AWS SES v2;
// LogMailer only logs and is used when SES is disabled.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/pkg/logger"
)

// ErrNotConfigured is returned when a mailer has no client.
var ErrNotConfigured = errors.New("mailer not configured")

// SESAPI is the subset of the SES v2 client used by SESMailer.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer sends emails via AWS SES using the SDK v2.
type SESMailer struct {
	client SESAPI
	now    func() time.Time
	log    *logger.Logger
}

// NewSESMailer creates a mailer around an SES client.
func NewSESMailer(client SESAPI) *SESMailer {
	return &SESMailer{client: client, now: time.Now, log: logger.With("component", "ses_mailer")}
}

// NewSESMailerFromConfig builds the SES client from an AWS config.
func NewSESMailerFromConfig(cfg aws.Config) *SESMailer {
	return NewSESMailer(sesv2.NewFromConfig(cfg))
}

func fromAddress(msg domain.EmailMessage) string {
	if msg.FromName == "" {
		return msg.FromEmail
	}
	return fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail)
}

// Send delivers a single email. Delivery failures are returned as errors and
// also described in the result.
func (m *SESMailer) Send(ctx context.Context, msg domain.EmailMessage) (domain.SendResult, error) {
	if m.client == nil {
		return domain.SendResult{}, ErrNotConfigured
	}

	utf8 := aws.String("UTF-8")
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress(msg)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: utf8},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTMLBody), Charset: utf8},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("source"), Value: aws.String("lgl-sync")},
		},
	}
	if msg.TextBody != "" {
		input.Content.Simple.Body.Text = &types.Content{Data: aws.String(msg.TextBody), Charset: utf8}
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	out, err := m.client.SendEmail(ctx, input)
	if err != nil {
		m.log.Error("send failed", "to", msg.To, "error", err)
		return domain.SendResult{Error: err.Error()}, fmt.Errorf("ses send: %w", err)
	}

	res := domain.SendResult{
		Success:   true,
		MessageID: aws.ToString(out.MessageId),
		SentAt:    m.now().UTC(),
	}
	m.log.Info("email sent", "to", msg.To, "message_id", res.MessageID)
	return res, nil
}

// LogMailer accepts every message and logs it without delivering.
type LogMailer struct {
	log *logger.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer() *LogMailer {
	return &LogMailer{log: logger.With("component", "log_mailer")}
}

func (m *LogMailer) Send(_ context.Context, msg domain.EmailMessage) (domain.SendResult, error) {
	m.log.Info("email not sent, SES disabled", "to", msg.To, "subject", msg.Subject)
	return domain.SendResult{Success: true, SentAt: time.Now().UTC()}, nil
}
