package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/pkg/logger"
)

// SQSAPI is the subset of the SQS client used by OrderConsumer.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// EventHandler processes a decoded order event.
type EventHandler interface {
	Handle(ctx context.Context, evt domain.OrderEvent) (Outcome, error)
}

// OrderConsumer long-polls an SQS queue of store order events. Messages are
// deleted once handled or when they can never be handled (undecodable body,
// invalid event); anything else is left for redelivery.
type OrderConsumer struct {
	client     SQSAPI
	queueURL   string
	handler    EventHandler
	errorPause time.Duration
	log        *logger.Logger
}

// NewOrderConsumer creates a consumer.
func NewOrderConsumer(client SQSAPI, queueURL string, handler EventHandler) *OrderConsumer {
	return &OrderConsumer{
		client:     client,
		queueURL:   queueURL,
		handler:    handler,
		errorPause: 5 * time.Second,
		log:        logger.With("component", "order_consumer", "queue", queueURL),
	}
}

// Start polls until ctx is cancelled.
func (c *OrderConsumer) Start(ctx context.Context) {
	c.log.Info("order consumer started")
	for {
		if ctx.Err() != nil {
			c.log.Info("order consumer stopping")
			return
		}
		if err := c.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error("receive failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.errorPause):
			}
		}
	}
}

func (c *OrderConsumer) pollOnce(ctx context.Context) error {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
	})
	if err != nil {
		return err
	}
	for _, msg := range out.Messages {
		c.handleMessage(ctx, msg)
	}
	return nil
}

func (c *OrderConsumer) handleMessage(ctx context.Context, msg types.Message) {
	var evt domain.OrderEvent
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &evt); err != nil {
		c.log.Warn("dropping undecodable message", "message_id", aws.ToString(msg.MessageId), "error", err)
		c.deleteMessage(ctx, msg.ReceiptHandle)
		return
	}

	outcome, err := c.handler.Handle(ctx, evt)
	switch {
	case errors.Is(err, ErrInvalidEvent), errors.Is(err, ErrUnknownEvent):
		c.log.Warn("dropping invalid event", "message_id", aws.ToString(msg.MessageId), "error", err)
	case err != nil:
		c.log.Error("event failed, leaving for redelivery", "order_id", evt.Order.ID, "error", err)
		return
	default:
		c.log.Debug("event handled", "order_id", evt.Order.ID, "action", outcome.Action)
	}
	c.deleteMessage(ctx, msg.ReceiptHandle)
}

func (c *OrderConsumer) deleteMessage(ctx context.Context, handle *string) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: handle,
	})
	if err != nil {
		c.log.Warn("delete message failed", "error", err)
	}
}
