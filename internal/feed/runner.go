// Package feed drives cursor-based consumers of ordered streams such as the
// stock event log and the catalog revision log.
package feed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Cursors persists how far each named consumer has progressed.
type Cursors interface {
	Cursor(ctx context.Context, consumer string) (int64, error)
	SaveCursor(ctx context.Context, consumer string, position int64) error
}

// Runner polls a source for items past its saved cursor and hands them to
// Handle. Handle returns the position of the last item it fully processed;
// the cursor advances to that position even when Handle also reports an
// error, so only unprocessed items are fetched again.
type Runner[T any] struct {
	Name      string
	Cursors   Cursors
	Fetch     func(ctx context.Context, after int64, limit int) ([]T, error)
	Handle    func(ctx context.Context, items []T) (last int64, err error)
	BatchSize int
	Interval  time.Duration
	Logger    *zap.Logger
}

// Poll processes at most one batch and reports how many items were fetched.
func (r *Runner[T]) Poll(ctx context.Context) (int, error) {
	after, err := r.Cursors.Cursor(ctx, r.Name)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to load cursor: %w", r.Name, err)
	}

	items, err := r.Fetch(ctx, after, r.batchSize())
	if err != nil {
		return 0, fmt.Errorf("%s: fetch failed: %w", r.Name, err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	last, handleErr := r.Handle(ctx, items)
	if last > after {
		if err := r.Cursors.SaveCursor(context.WithoutCancel(ctx), r.Name, last); err != nil {
			return len(items), fmt.Errorf("%s: failed to save cursor: %w", r.Name, err)
		}
	}
	if handleErr != nil {
		return len(items), fmt.Errorf("%s: %w", r.Name, handleErr)
	}
	return len(items), nil
}

// Drain polls until the source has nothing past the cursor or an error occurs.
func (r *Runner[T]) Drain(ctx context.Context) error {
	for {
		n, err := r.Poll(ctx)
		if err != nil {
			return err
		}
		if n < r.batchSize() {
			return nil
		}
	}
}

// Run drains the source on every tick until ctx is done. Errors are logged
// and retried on the next tick.
func (r *Runner[T]) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger().Info("🔄 consumer started", zap.String("consumer", r.Name), zap.Duration("interval", interval))
	for {
		if err := r.Drain(ctx); err != nil && ctx.Err() == nil {
			r.logger().Warn("⚠️ consumer poll failed", zap.String("consumer", r.Name), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			r.logger().Info("🛑 consumer stopped", zap.String("consumer", r.Name))
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner[T]) batchSize() int {
	if r.BatchSize <= 0 {
		return 100
	}
	return r.BatchSize
}

func (r *Runner[T]) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
