package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultMarkerTTL outlives a full renewal cycle.
const DefaultMarkerTTL = 400 * 24 * time.Hour

// SendMarker implements renewal.SendMarker with SET NX.
type SendMarker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSendMarker creates the marker store.
func NewSendMarker(client *redis.Client, prefix string, ttl time.Duration) *SendMarker {
	if ttl <= 0 {
		ttl = DefaultMarkerTTL
	}
	return &SendMarker{client: client, prefix: key(prefix, "renewal:sent:"), ttl: ttl}
}

// NewOrderMarker creates the store recording which orders already extended a
// membership. It shares SendMarker's SET NX semantics under its own keys.
func NewOrderMarker(client *redis.Client, prefix string, ttl time.Duration) *SendMarker {
	if ttl <= 0 {
		ttl = DefaultMarkerTTL
	}
	return &SendMarker{client: client, prefix: key(prefix, "renewal:order:"), ttl: ttl}
}

func (m *SendMarker) Claim(ctx context.Context, marker string) (bool, error) {
	return m.client.SetNX(ctx, m.prefix+marker, time.Now().UTC().Format(time.RFC3339), m.ttl).Result()
}

func (m *SendMarker) Release(ctx context.Context, marker string) error {
	return m.client.Del(ctx, m.prefix+marker).Err()
}
