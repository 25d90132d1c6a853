// Package notify turns stock events into threshold notifications. Events
// are read from the ledger behind a persisted cursor, so nothing is lost
// across restarts and an event is re-evaluated until its notifications are
// delivered or queued.
package notify

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/feed"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"github.com/rogerio-castellano/warehouse-ledger/internal/repo"
	"github.com/rogerio-castellano/warehouse-ledger/internal/schedule"
	"go.uber.org/zap"
)

const (
	ConsumerName = "notify-engine"
	DigestJob    = "notify-digest"
)

type EventSource interface {
	EventsAfter(ctx context.Context, seq int64, limit int) ([]models.StockEvent, error)
}

type RuleSource interface {
	ListRules(ctx context.Context) ([]models.NotifyRule, error)
}

type ProductLookup interface {
	GetProduct(ctx context.Context, id int64) (models.Product, error)
}

type Deps struct {
	Events     EventSource
	Cursors    feed.Cursors
	Rules      RuleSource
	Products   ProductLookup
	Transport  Transport
	Digests    DigestStore
	Watermarks schedule.WatermarkStore
}

type Config struct {
	// DefaultFloor applies to rules that do not set their own.
	DefaultFloor int64
	Trigger      schedule.DailyTrigger
	BatchSize    int
	PollInterval time.Duration
}

type Engine struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
	runner *feed.Runner[models.StockEvent]
	digest *schedule.Daily
}

func NewEngine(deps Deps, cfg Config, logger *zap.Logger) *Engine {
	e := &Engine{deps: deps, cfg: cfg, logger: logger}
	e.runner = &feed.Runner[models.StockEvent]{
		Name:      ConsumerName,
		Cursors:   deps.Cursors,
		Fetch:     deps.Events.EventsAfter,
		Handle:    e.handle,
		BatchSize: cfg.BatchSize,
		Interval:  cfg.PollInterval,
		Logger:    logger,
	}
	e.digest = &schedule.Daily{
		Name:       DigestJob,
		Trigger:    cfg.Trigger,
		Watermarks: deps.Watermarks,
		Job:        e.flushDigests,
		Logger:     logger,
	}
	return e
}

// Poll evaluates at most one batch of new events.
func (e *Engine) Poll(ctx context.Context) (int, error) {
	return e.runner.Poll(ctx)
}

// Drain evaluates events until the engine has caught up with the ledger.
func (e *Engine) Drain(ctx context.Context) error {
	return e.runner.Drain(ctx)
}

func (e *Engine) Run(ctx context.Context) error {
	return e.runner.Run(ctx)
}

// FlushDue sends the queued daily digests if the trigger instant at or
// before now has not been served yet.
func (e *Engine) FlushDue(ctx context.Context, now time.Time) (bool, error) {
	return e.digest.RunDue(ctx, now)
}

// DigestSchedule exposes the digest job for a shared schedule.Loop.
func (e *Engine) DigestSchedule() *schedule.Daily {
	return e.digest
}

func (e *Engine) handle(ctx context.Context, events []models.StockEvent) (int64, error) {
	rules, err := e.activeRules(ctx)
	if err != nil {
		return 0, err
	}

	var last int64
	for _, ev := range events {
		notes := evaluate(ev, rules)
		if len(notes) > 0 {
			if err := e.describe(ctx, ev.ProductID, notes); err != nil {
				return last, err
			}
		}
		for _, n := range notes {
			if err := e.deliver(ctx, n); err != nil {
				e.logger.Warn("⚠️ notification delivery failed, will retry",
					zap.Int64("seq", ev.Seq), zap.Int64("user_id", n.UserID), zap.Error(err))
				return last, err
			}
		}
		last = ev.Seq
	}
	return last, nil
}

func (e *Engine) activeRules(ctx context.Context) (ruleSet, error) {
	raw, err := e.deps.Rules.ListRules(ctx)
	if err != nil {
		return ruleSet{}, err
	}
	valid := make([]models.NotifyRule, 0, len(raw))
	for _, r := range raw {
		checked, err := validateRule(r, e.cfg.DefaultFloor)
		if err != nil {
			e.logger.Warn("⚠️ skipping malformed notify rule", zap.Int64("rule_id", r.ID), zap.Error(err))
			continue
		}
		valid = append(valid, checked)
	}
	return newRuleSet(valid), nil
}

func (e *Engine) describe(ctx context.Context, productID int64, notes []models.Notification) error {
	p, err := e.deps.Products.GetProduct(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	for i := range notes {
		notes[i].SKU = p.SKU
		notes[i].ProductName = p.Name
	}
	return nil
}

func (e *Engine) deliver(ctx context.Context, n models.Notification) error {
	var err error
	switch n.Mode {
	case models.ModeInstant:
		err = e.deps.Transport.Send(ctx, n)
	case models.ModeDaily:
		err = e.deps.Digests.Append(ctx, n)
	default:
		return nil
	}
	if errors.Is(err, ErrPermanent) {
		e.logger.Warn("🚫 dropping undeliverable notification",
			zap.Int64("user_id", n.UserID), zap.Int64("seq", n.EventSeq), zap.Error(err))
		return nil
	}
	return err
}

func (e *Engine) flushDigests(ctx context.Context, instant time.Time) error {
	pending, err := e.deps.Digests.Pending(ctx)
	if err != nil {
		return err
	}

	users := make([]int64, 0, len(pending))
	for u := range pending {
		users = append(users, u)
	}
	slices.Sort(users)

	sent := 0
	for _, u := range users {
		notes := pending[u]
		if err := e.deps.Transport.SendDigest(ctx, u, notes); err != nil {
			if !errors.Is(err, ErrPermanent) {
				return err
			}
			e.logger.Warn("🚫 dropping undeliverable digest", zap.Int64("user_id", u), zap.Error(err))
		} else {
			sent++
		}
		if err := e.deps.Digests.Ack(ctx, u, len(notes)); err != nil {
			return err
		}
	}

	e.logger.Info("📨 daily digests flushed", zap.Time("instant", instant), zap.Int("users", sent))
	return nil
}
