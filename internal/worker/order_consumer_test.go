package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lgl-sync/internal/domain"
)

type fakeSQS struct {
	mu         sync.Mutex
	messages   []types.Message
	receiveErr error
	deleted    []string
	lastInput  *sqs.ReceiveMessageInput
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastInput = in
	if f.receiveErr != nil {
		return nil, f.receiveErr
	}
	msgs := f.messages
	f.messages = nil
	return &sqs.ReceiveMessageOutput{Messages: msgs}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type scriptedHandler struct {
	mu     sync.Mutex
	errs   map[string]error
	orders []string
}

func (h *scriptedHandler) Handle(_ context.Context, evt domain.OrderEvent) (Outcome, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.orders = append(h.orders, evt.Order.ID)
	if err := h.errs[evt.Order.ID]; err != nil {
		return Outcome{}, err
	}
	return Outcome{Action: ActionSynced}, nil
}

func message(handle, body string) types.Message {
	return types.Message{MessageId: aws.String("m-" + handle), ReceiptHandle: aws.String(handle), Body: aws.String(body)}
}

func TestOrderConsumer_DeletesHandledAndPoisonMessages(t *testing.T) {
	q := &fakeSQS{messages: []types.Message{
		message("ok", `{"type":"paid","order":{"id":"1"}}`),
		message("garbage", `{not json`),
		message("invalid", `{"type":"paid","order":{"id":"2"}}`),
		message("retry", `{"type":"paid","order":{"id":"3"}}`),
	}}
	h := &scriptedHandler{errs: map[string]error{
		"2": ErrInvalidEvent,
		"3": errors.New("db down"),
	}}
	c := NewOrderConsumer(q, "https://sqs.local/orders", h)

	require.NoError(t, c.pollOnce(context.Background()))

	assert.Equal(t, []string{"1", "2", "3"}, h.orders)
	assert.ElementsMatch(t, []string{"ok", "garbage", "invalid"}, q.deleted)
	assert.Equal(t, "https://sqs.local/orders", aws.ToString(q.lastInput.QueueUrl))
	assert.Equal(t, int32(10), q.lastInput.MaxNumberOfMessages)
	assert.Equal(t, int32(20), q.lastInput.WaitTimeSeconds)
}

func TestOrderConsumer_ReceiveError(t *testing.T) {
	q := &fakeSQS{receiveErr: errors.New("throttled")}
	c := NewOrderConsumer(q, "q", &scriptedHandler{})
	assert.EqualError(t, c.pollOnce(context.Background()), "throttled")
}

func TestOrderConsumer_StartStopsOnCancel(t *testing.T) {
	q := &fakeSQS{receiveErr: errors.New("throttled")}
	c := NewOrderConsumer(q, "q", &scriptedHandler{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()
	cancel()
	<-done
}
