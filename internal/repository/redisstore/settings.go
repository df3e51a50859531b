package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Settings implements emailgate.Settings.
type Settings struct {
	client       *redis.Client
	forceKey     string
	pauseKey     string
	whitelistKey string
	defaultForce bool
	now          func() time.Time
}

// NewSettings creates the store. defaultForce is reported until an operator
// sets the flag explicitly.
func NewSettings(client *redis.Client, prefix string, defaultForce bool) *Settings {
	return &Settings{
		client:       client,
		forceKey:     key(prefix, "blocking:force"),
		pauseKey:     key(prefix, "blocking:pause_until"),
		whitelistKey: key(prefix, "blocking:whitelist"),
		defaultForce: defaultForce,
		now:          time.Now,
	}
}

func (s *Settings) ForceBlocking(ctx context.Context) (bool, error) {
	v, err := s.client.Get(ctx, s.forceKey).Result()
	if errors.Is(err, redis.Nil) {
		return s.defaultForce, nil
	}
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

func (s *Settings) SetForceBlocking(ctx context.Context, on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	return s.client.Set(ctx, s.forceKey, v, 0).Err()
}

// PauseUntil returns the stored deadline. The key carries a TTL matching the
// deadline, so Redis drops it when the pause ends.
func (s *Settings) PauseUntil(ctx context.Context) (*time.Time, error) {
	v, err := s.client.Get(ctx, s.pauseKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	until, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, fmt.Errorf("parse pause deadline %q: %w", v, err)
	}
	return &until, nil
}

func (s *Settings) SetPause(ctx context.Context, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return s.ClearPause(ctx)
	}
	return s.client.Set(ctx, s.pauseKey, until.UTC().Format(time.RFC3339Nano), ttl).Err()
}

func (s *Settings) ClearPause(ctx context.Context) error {
	return s.client.Del(ctx, s.pauseKey).Err()
}

func (s *Settings) IsWhitelisted(ctx context.Context, addr string) (bool, error) {
	return s.client.SIsMember(ctx, s.whitelistKey, addr).Result()
}

func (s *Settings) Whitelist(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, s.whitelistKey).Result()
}

// ReplaceWhitelist swaps the whole set in one transaction.
func (s *Settings) ReplaceWhitelist(ctx context.Context, addrs []string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.whitelistKey)
		if len(addrs) > 0 {
			members := make([]interface{}, len(addrs))
			for i, a := range addrs {
				members[i] = a
			}
			pipe.SAdd(ctx, s.whitelistKey, members...)
		}
		return nil
	})
	return err
}

// SeedWhitelist adds addresses without removing existing ones. It is used at
// startup to merge the configured whitelist.
func (s *Settings) SeedWhitelist(ctx context.Context, addrs []string) error {
	if len(addrs) == 0 {
		return nil
	}
	members := make([]interface{}, len(addrs))
	for i, a := range addrs {
		members[i] = a
	}
	return s.client.SAdd(ctx, s.whitelistKey, members...).Err()
}
