package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/plunoo/biskakenauto-sub000/pkg/redis"
)

var (
	errNoConsumer = errors.New("consumer name is required")
	errNoKey      = errors.New("delivery key is required")
)

// Guard remembers which deliveries a consumer already handled. It is a fast
// path only: a lost Redis key must be caught by the consumer's own durable
// record, so callers treat Guard errors as "not seen".
//
// Keys live under <prefix>:idempotency:delivery:<consumer>:<key> and hold
// the time the delivery was first claimed.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	now   func() time.Time
}

// NewGuard returns a Guard whose claims expire after ttl. A zero ttl keeps
// claims until they are released.
func NewGuard(store redis.IdempotencyStore, ttl time.Duration) (*Guard, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl, now: time.Now}, nil
}

// Claim reports whether this call is the first to see key for consumer.
// A false result with a nil error means the delivery is a duplicate.
func (g *Guard) Claim(ctx context.Context, consumer, key string) (bool, error) {
	full, err := g.key(consumer, key)
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, full, g.now().UTC().Format(time.RFC3339Nano), g.ttl)
}

// Release drops a claim so a redelivery is processed again.
func (g *Guard) Release(ctx context.Context, consumer, key string) error {
	full, err := g.key(consumer, key)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, full)
}

func (g *Guard) key(consumer, key string) (string, error) {
	consumer = strings.TrimSpace(consumer)
	key = strings.TrimSpace(key)
	if consumer == "" {
		return "", errNoConsumer
	}
	if key == "" {
		return "", errNoKey
	}
	return g.store.IdempotencyKey("delivery:"+consumer, key), nil
}
