// Package search keeps a full-text product index in step with the catalog.
package search

import (
	"context"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/feed"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"go.uber.org/zap"
)

const ConsumerName = "search-sync"

// Index receives catalog changes. Both calls must be idempotent: after a
// restart the last batch may be delivered again.
type Index interface {
	OnProductUpserted(ctx context.Context, p models.Product) error
	OnProductArchived(ctx context.Context, productID int64) error
}

type ChangeSource interface {
	ProductsChangedAfter(ctx context.Context, revision int64, limit int) ([]models.Product, error)
}

type Sync struct {
	index  Index
	logger *zap.Logger
	runner *feed.Runner[models.Product]
}

func NewSync(source ChangeSource, cursors feed.Cursors, index Index, batchSize int, interval time.Duration, logger *zap.Logger) *Sync {
	s := &Sync{index: index, logger: logger}
	s.runner = &feed.Runner[models.Product]{
		Name:      ConsumerName,
		Cursors:   cursors,
		Fetch:     source.ProductsChangedAfter,
		Handle:    s.handle,
		BatchSize: batchSize,
		Interval:  interval,
		Logger:    logger,
	}
	return s
}

func (s *Sync) Drain(ctx context.Context) error {
	return s.runner.Drain(ctx)
}

func (s *Sync) Run(ctx context.Context) error {
	return s.runner.Run(ctx)
}

func (s *Sync) handle(ctx context.Context, products []models.Product) (int64, error) {
	var last int64
	for _, p := range products {
		var err error
		if p.Archived {
			err = s.index.OnProductArchived(ctx, p.ID)
		} else {
			err = s.index.OnProductUpserted(ctx, p)
		}
		if err != nil {
			s.logger.Warn("⚠️ search index update failed", zap.Int64("product_id", p.ID), zap.Error(err))
			return last, err
		}
		last = p.Revision
	}
	return last, nil
}
