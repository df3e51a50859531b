package emailgate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/service/emailgate"
)

type recordingMailer struct {
	sent []domain.EmailMessage
}

func (m *recordingMailer) Send(_ context.Context, msg domain.EmailMessage) (domain.SendResult, error) {
	m.sent = append(m.sent, msg)
	return domain.SendResult{Success: true, MessageID: "msg-1"}, nil
}

func TestGatedMailer_Blocks(t *testing.T) {
	f := setupGate(t, development)
	next := &recordingMailer{}
	m := emailgate.NewGatedMailer(f.gate, next)

	res, err := m.Send(context.Background(), domain.EmailMessage{To: "member@example.org", Subject: "Renew"})
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	assert.False(t, res.Success)
	assert.Empty(t, next.sent)

	entries, err := f.gate.Log(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Renew", entries[0].Subject)
}

func TestGatedMailer_Allows(t *testing.T) {
	f := setupGate(t, production)
	next := &recordingMailer{}
	m := emailgate.NewGatedMailer(f.gate, next)

	res, err := m.Send(context.Background(), domain.EmailMessage{To: "member@example.org"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "msg-1", res.MessageID)
	assert.Len(t, next.sent, 1)
}

func TestGatedMailer_AnyBlockedRecipientBlocks(t *testing.T) {
	f := setupGate(t, development)
	next := &recordingMailer{}
	m := emailgate.NewGatedMailer(f.gate, next)

	res, err := m.Send(context.Background(), domain.EmailMessage{To: "admin@example.org, member@example.org"})
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	assert.Empty(t, next.sent)
}
