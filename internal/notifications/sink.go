package notifications

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// Sink delivers a notice somewhere. Implementations must be safe for concurrent use.
type Sink interface {
	Deliver(ctx context.Context, notice Notice) error
}

// StoreSink persists notices as in-app notifications.
type StoreSink struct {
	repo Repository
}

func NewStoreSink(repo Repository) (*StoreSink, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &StoreSink{repo: repo}, nil
}

func (s *StoreSink) Deliver(ctx context.Context, notice Notice) error {
	if err := notice.validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, notice.toModel())
}

// MultiSink fans a notice out to every sink and reports all failures together.
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, notice Notice) error {
	var errs error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		errs = multierr.Append(errs, sink.Deliver(ctx, notice))
	}
	return errs
}
