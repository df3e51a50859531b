package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/pkg/ringlog"
)

// DefaultLogCapacity is the number of blocked messages kept.
const DefaultLogCapacity = 50

// BlockedLog implements emailgate.BlockedLog as a JSON ring under one key.
// Appends are optimistic transactions: WATCH the key, rebuild the ring,
// write it back in MULTI/EXEC, and retry with backoff if another writer got
// there first.
type BlockedLog struct {
	client   *redis.Client
	key      string
	capacity int
	maxTries uint
}

// NewBlockedLog creates the log.
func NewBlockedLog(client *redis.Client, prefix string, capacity int) *BlockedLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &BlockedLog{
		client:   client,
		key:      key(prefix, "blocking:log"),
		capacity: capacity,
		maxTries: 20,
	}
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (l *BlockedLog) load(ctx context.Context, c getter) (*ringlog.Ring[domain.BlockedEmailEntry], error) {
	ring := ringlog.New[domain.BlockedEmailEntry](l.capacity)
	data, err := c.Get(ctx, l.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ring, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, ring); err != nil {
		return nil, fmt.Errorf("decode blocked log: %w", err)
	}
	return ring, nil
}

func (l *BlockedLog) Append(ctx context.Context, entry domain.BlockedEmailEntry) error {
	txf := func(tx *redis.Tx) error {
		ring, err := l.load(ctx, tx)
		if err != nil {
			return err
		}
		ring.Push(entry)
		data, err := json.Marshal(ring)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, l.key, data, 0)
			return nil
		})
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := l.client.Watch(ctx, txf, l.key)
		if err == nil || errors.Is(err, redis.TxFailedErr) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(l.maxTries))
	if err != nil {
		return fmt.Errorf("append blocked log: %w", err)
	}
	return nil
}

func (l *BlockedLog) Entries(ctx context.Context) ([]domain.BlockedEmailEntry, error) {
	ring, err := l.load(ctx, l.client)
	if err != nil {
		return nil, err
	}
	return ring.Items(), nil
}

func (l *BlockedLog) Clear(ctx context.Context) error {
	return l.client.Del(ctx, l.key).Err()
}
