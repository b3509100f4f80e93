package ordernumber

import (
	"context"
	"fmt"
	"time"
)

// Namespace prefixes a human-readable order number.
type Namespace string

const (
	ProductOrders Namespace = "HL"
	ServiceOrders Namespace = "HS"
)

// counterTTL keeps a day's sequence alive past midnight in every timezone.
const counterTTL = 48 * time.Hour

type counter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	CounterKey(name string) string
}

// Generator issues NS-YYYYMMDD-NNNNNN numbers from a shared per-day sequence.
type Generator struct {
	counter counter
	now     func() time.Time
}

func NewGenerator(c counter) (*Generator, error) {
	if c == nil {
		return nil, fmt.Errorf("order number counter required")
	}
	return &Generator{counter: c, now: time.Now}, nil
}

// Next returns the next number in the namespace for today (UTC).
func (g *Generator) Next(ctx context.Context, ns Namespace) (string, error) {
	day := g.now().UTC().Format("20060102")
	seq, err := g.counter.IncrWithTTL(ctx, g.counter.CounterKey(fmt.Sprintf("order_number:%s:%s", ns, day)), counterTTL)
	if err != nil {
		return "", fmt.Errorf("increment order number sequence: %w", err)
	}
	return Format(ns, day, seq), nil
}

// Format renders a sequence value; values wider than six digits are not truncated.
func Format(ns Namespace, day string, seq int64) string {
	return fmt.Sprintf("%s-%s-%06d", ns, day, seq)
}
