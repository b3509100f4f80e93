// Package payherewebhook deduplicates gateway notification deliveries before they reach the payments service.
package payherewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hirelanka/marketplace-backend/pkg/payhere"
	"github.com/hirelanka/marketplace-backend/pkg/redis"
)

// IdempotencyGuard remembers applied deliveries in Redis. It is a fast path only:
// the payments service still applies each outcome at most once through its
// conditional update, so a lost or expired key never double-settles.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// DeliveryKey identifies one outcome for one checkout. A pending notice and the
// later success for the same order therefore get distinct keys.
func DeliveryKey(n payhere.Notification) string {
	orderID := strings.TrimSpace(n.OrderID)
	if orderID == "" {
		return ""
	}
	return orderID + ":" + strings.TrimSpace(string(n.StatusCode))
}

// Seen reports whether an outcome for this delivery was already applied.
func (g *IdempotencyGuard) Seen(ctx context.Context, n payhere.Notification) (bool, error) {
	id := DeliveryKey(n)
	if id == "" {
		return false, errors.New("order id is required")
	}
	_, err := g.store.Get(ctx, g.store.IdempotencyKey(g.scope, id))
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get idempotency key: %w", err)
	}
	return true, nil
}

// Mark records a delivery once the payments service has applied it. Marking
// after the write means a failed or abandoned attempt leaves nothing behind,
// and the gateway's retry reaches the service again.
func (g *IdempotencyGuard) Mark(ctx context.Context, n payhere.Notification) error {
	id := DeliveryKey(n)
	if id == "" {
		return errors.New("order id is required")
	}
	if _, err := g.store.SetNX(ctx, g.store.IdempotencyKey(g.scope, id), "1", g.ttl); err != nil {
		return fmt.Errorf("set idempotency key: %w", err)
	}
	return nil
}
