package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var ErrMalformedEntry = errors.New("malformed import entry")

// ImportEntry is one supply line. An empty Location means the item is not
// yet placed and lands in the unassigned location. ParseErr carries a
// problem found while reading the source row; such an entry is reported as
// malformed.
type ImportEntry struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Location string `json:"location,omitempty"`

	ParseErr error `json:"-"`
}

type EntryResult struct {
	Index     int    `json:"index"`
	SKU       string `json:"sku"`
	ProductID int64  `json:"product_id,omitempty"`
	Created   bool   `json:"created,omitempty"`
	Location  string `json:"location,omitempty"`
	Quantity  int64  `json:"quantity"`
	Seq       int64  `json:"seq,omitempty"`
	Error     string `json:"error,omitempty"`

	Err error `json:"-"`
}

func (r EntryResult) OK() bool {
	return r.Err == nil
}

type BatchResult struct {
	BatchID  string        `json:"batch_id"`
	Imported int           `json:"imported"`
	Failed   int           `json:"failed"`
	Results  []EntryResult `json:"results"`
}

// FailedEntries returns the results that were not committed.
func (b BatchResult) FailedEntries() []EntryResult {
	var failed []EntryResult
	for _, r := range b.Results {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}

// ImportBatch commits each entry as its own import event. Malformed entries
// are reported and skipped. When ctx is cancelled the remaining entries are
// reported as not attempted and ctx.Err() is returned alongside the partial
// result; entries committed before that stand.
func (s *Service) ImportBatch(ctx context.Context, entries []ImportEntry, batchID, actor string) (result BatchResult, err error) {
	if batchID == "" {
		batchID = uuid.NewString()
	}
	ctx, span := s.tracer.Start(ctx, "stock.ImportBatch", trace.WithAttributes(
		attribute.String("import.batch_id", batchID),
		attribute.Int("import.entries", len(entries)),
	))
	defer func() { endSpan(span, err) }()

	result = BatchResult{BatchID: batchID, Results: make([]EntryResult, 0, len(entries))}

	for i, e := range entries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			for j := i; j < len(entries); j++ {
				result.Results = append(result.Results, EntryResult{
					Index: j, SKU: entries[j].SKU, Quantity: entries[j].Quantity,
					Err: ctxErr, Error: "not attempted: " + ctxErr.Error(),
				})
				result.Failed++
			}
			s.logger.Warn("⛔ import cancelled", zap.String("batch_id", batchID),
				zap.Int("imported", result.Imported), zap.Int("skipped", len(entries)-i))
			return result, ctxErr
		}

		r := s.importEntry(ctx, i, e, batchID, actor)
		if r.OK() {
			result.Imported++
		} else {
			result.Failed++
		}
		result.Results = append(result.Results, r)
	}

	s.logger.Info("📥 import batch finished", zap.String("batch_id", batchID),
		zap.Int("imported", result.Imported), zap.Int("failed", result.Failed))
	return result, nil
}

func (s *Service) importEntry(ctx context.Context, index int, e ImportEntry, batchID, actor string) EntryResult {
	r := EntryResult{Index: index, SKU: e.SKU, Quantity: e.Quantity, Location: e.Location}
	fail := func(err error) EntryResult {
		r.Err = err
		r.Error = err.Error()
		return r
	}

	if e.ParseErr != nil {
		return fail(fmt.Errorf("%w: %v", ErrMalformedEntry, e.ParseErr))
	}
	sku := normalizeSKU(e.SKU)
	if sku == "" {
		return fail(fmt.Errorf("%w: missing sku", ErrMalformedEntry))
	}
	if e.Quantity <= 0 {
		return fail(fmt.Errorf("%w: quantity must be positive, got %d", ErrMalformedEntry, e.Quantity))
	}
	r.SKU = sku
	if r.Location == "" {
		r.Location = models.UnassignedLocation
	}
	if _, err := s.catalog.GetLocation(ctx, r.Location); err != nil {
		return fail(fmt.Errorf("%w: location %q: %v", ErrMalformedEntry, r.Location, err))
	}

	p, created, err := s.catalog.EnsureProduct(ctx, sku, e.Name)
	if err != nil {
		return fail(err)
	}
	r.ProductID, r.Created = p.ID, created

	location := r.Location
	unlock := s.locks.Lock(lockKey{p.ID, location})
	ev, err := s.apply(ctx, models.StockEvent{
		Kind:          models.EventImport,
		ProductID:     p.ID,
		To:            &location,
		Delta:         e.Quantity,
		Actor:         actor,
		CorrelationID: batchID,
	})
	unlock()
	if err != nil {
		return fail(err)
	}
	r.Seq = ev.Seq

	s.markRestock(ctx, p.ID)
	return r
}
