package ordernumber

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryCounter struct {
	mu     sync.Mutex
	values map[string]int64
	err    error
}

func (m *memoryCounter) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = map[string]int64{}
	}
	m.values[key]++
	return m.values[key], nil
}

func (m *memoryCounter) CounterKey(name string) string {
	return "hl:counter:" + name
}

func TestNextFormatsPerNamespaceSequences(t *testing.T) {
	gen, err := NewGenerator(&memoryCounter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gen.now = func() time.Time { return time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	first, _ := gen.Next(ctx, ProductOrders)
	second, _ := gen.Next(ctx, ProductOrders)
	booking, _ := gen.Next(ctx, ServiceOrders)

	if first != "HL-20260309-000001" || second != "HL-20260309-000002" {
		t.Fatalf("unexpected product numbers %s %s", first, second)
	}
	if booking != "HS-20260309-000001" {
		t.Fatalf("unexpected booking number %s", booking)
	}
}

func TestNextConcurrentNumbersAreUnique(t *testing.T) {
	gen, _ := NewGenerator(&memoryCounter{})
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := gen.Next(ctx, ProductOrders)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != 50 {
		t.Fatalf("expected 50 unique numbers, got %d", len(seen))
	}
}

func TestNextPropagatesCounterErrors(t *testing.T) {
	gen, _ := NewGenerator(&memoryCounter{err: errors.New("redis down")})
	if _, err := gen.Next(context.Background(), ServiceOrders); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewGeneratorRequiresCounter(t *testing.T) {
	if _, err := NewGenerator(nil); err == nil {
		t.Fatal("expected error for nil counter")
	}
}
