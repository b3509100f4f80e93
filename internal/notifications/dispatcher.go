package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hirelanka/marketplace-backend/pkg/logger"
)

const defaultDeliveryTimeout = 10 * time.Second

// Notifier is what settlement services depend on. Notify never blocks on delivery
// and never reports failure to the caller.
type Notifier interface {
	Notify(ctx context.Context, notices ...Notice)
}

// Dispatcher hands notices to a sink on background goroutines once the
// triggering transaction has committed.
type Dispatcher struct {
	sink    Sink
	logg    *logger.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sink Sink, logg *logger.Logger) (*Dispatcher, error) {
	if sink == nil {
		return nil, fmt.Errorf("notification sink required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{sink: sink, logg: logg, timeout: defaultDeliveryTimeout}, nil
}

func (d *Dispatcher) Notify(ctx context.Context, notices ...Notice) {
	if len(notices) == 0 {
		return
	}
	// detached so a finished request does not cancel delivery
	base := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, notice := range notices {
			d.deliver(base, notice)
		}
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, notice Notice) {
	deliverCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.sink.Deliver(deliverCtx, notice); err != nil {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"notification_type": notice.Type,
			"recipient_id":      notice.UserID.String(),
		})
		d.logg.Error(logCtx, "notification delivery failed", err)
	}
}

// Wait blocks until every in-flight delivery has finished. Used on shutdown and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
