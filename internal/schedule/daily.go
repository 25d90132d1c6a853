package schedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Job does the work for one trigger instant.
type Job func(ctx context.Context, instant time.Time) error

// Daily fires Job at most once per trigger instant. The watermark only
// advances after Job succeeds, so a failed run is retried on the next check.
type Daily struct {
	Name       string
	Trigger    DailyTrigger
	Watermarks WatermarkStore
	Job        Job
	Logger     *zap.Logger
}

// RunDue fires the job if the most recent trigger instant at or before now
// has not fired yet.
func (d *Daily) RunDue(ctx context.Context, now time.Time) (bool, error) {
	instant := d.Trigger.LastInstant(now)

	last, err := d.Watermarks.LastFired(ctx, d.Name)
	if err != nil {
		return false, fmt.Errorf("%s: failed to read watermark: %w", d.Name, err)
	}
	if !last.Before(instant) {
		return false, nil
	}

	if err := d.Job(ctx, instant); err != nil {
		return false, fmt.Errorf("%s: %w", d.Name, err)
	}
	if err := d.Watermarks.SetLastFired(context.WithoutCancel(ctx), d.Name, instant); err != nil {
		return true, fmt.Errorf("%s: failed to save watermark: %w", d.Name, err)
	}

	if d.Logger != nil {
		d.Logger.Info("⏰ daily job fired", zap.String("job", d.Name), zap.Time("instant", instant),
			zap.Bool("catch_up", now.Sub(instant) > time.Hour))
	}
	return true, nil
}

// Loop checks every job on each tick of Interval until ctx is done.
type Loop struct {
	Clock    Clock
	Interval time.Duration
	Jobs     []*Daily
	Logger   *zap.Logger
}

func (l *Loop) Run(ctx context.Context) error {
	clock := l.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	interval := l.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		now := clock.Now()
		for _, job := range l.Jobs {
			if _, err := job.RunDue(ctx, now); err != nil && ctx.Err() == nil {
				logger.Warn("⚠️ daily job failed", zap.String("job", job.Name), zap.Error(err))
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
