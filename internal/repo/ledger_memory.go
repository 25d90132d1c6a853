package repo

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

// stockCell is one (product, location) quantity. mu is held by writers for
// the check-and-store; updatedAt stays zero until the first write lands.
type stockCell struct {
	mu        sync.Mutex
	qty       atomic.Int64
	updatedAt atomic.Int64
}

// InMemoryLedgerRepository keeps stock in per-key cells. A writer locks only
// the cells its event touches, in key order, and appends to the log under
// logMu while still holding them, so seq order matches the order of writes
// on every key. Quantity reads are atomic loads and never wait on writers.
type InMemoryLedgerRepository struct {
	catalog CatalogRepository

	clearMu sync.RWMutex
	cells   sync.Map // stockKey -> *stockCell

	logMu  sync.RWMutex
	events []models.StockEvent

	cursorMu sync.Mutex
	cursors  map[string]int64

	now func() time.Time
}

// NewInMemoryLedgerRepository creates an empty ledger. When catalog is
// non-nil, Apply rejects unknown products and locations.
func NewInMemoryLedgerRepository(catalog CatalogRepository) *InMemoryLedgerRepository {
	return &InMemoryLedgerRepository{
		catalog: catalog,
		cursors: map[string]int64{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryLedgerRepository) cell(k stockKey) (*stockCell, bool) {
	v, ok := r.cells.Load(k)
	if !ok {
		return nil, false
	}
	return v.(*stockCell), true
}

func (r *InMemoryLedgerRepository) GetQuantity(_ context.Context, productID int64, location string) (int64, error) {
	c, ok := r.cell(stockKey{productID, location})
	if !ok {
		return 0, nil
	}
	return c.qty.Load(), nil
}

func (r *InMemoryLedgerRepository) Apply(ctx context.Context, ev models.StockEvent) (models.StockEvent, error) {
	legs, err := legsOf(ev)
	if err != nil {
		return models.StockEvent{}, err
	}
	if r.catalog != nil {
		if _, err := r.catalog.GetProductByID(ctx, ev.ProductID); err != nil {
			return models.StockEvent{}, err
		}
		for _, l := range legs {
			if _, err := r.catalog.GetLocation(ctx, l.key.location); err != nil {
				return models.StockEvent{}, err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return models.StockEvent{}, err
	}

	r.clearMu.RLock()
	defer r.clearMu.RUnlock()

	// legs are already in key order.
	cells := make([]*stockCell, len(legs))
	for i, l := range legs {
		v, _ := r.cells.LoadOrStore(l.key, &stockCell{})
		cells[i] = v.(*stockCell)
		cells[i].mu.Lock()
		defer cells[i].mu.Unlock()
	}

	next := make([]int64, len(legs))
	for i, l := range legs {
		current := cells[i].qty.Load()
		next[i] = current + l.delta
		if next[i] < 0 {
			return models.StockEvent{}, &NegativeQuantityError{
				ProductID: l.key.productID,
				Location:  l.key.location,
				Available: current,
				Delta:     l.delta,
			}
		}
	}

	at := r.now()
	for i, l := range legs {
		cells[i].qty.Store(next[i])
		cells[i].updatedAt.Store(at.UnixNano())
		fillAfter(&ev, l, next[i])
	}

	r.logMu.Lock()
	ev.Seq = int64(len(r.events) + 1)
	ev.At = at
	r.events = append(r.events, ev)
	r.logMu.Unlock()

	return ev, nil
}

func (r *InMemoryLedgerRepository) EventsAfter(_ context.Context, seq int64, limit int) ([]models.StockEvent, error) {
	r.logMu.RLock()
	defer r.logMu.RUnlock()

	if seq < 0 {
		seq = 0
	}
	if seq >= int64(len(r.events)) {
		return []models.StockEvent{}, nil
	}
	end := len(r.events)
	if limit > 0 {
		end = min(end, int(seq)+limit)
	}
	out := make([]models.StockEvent, end-int(seq))
	copy(out, r.events[seq:end])
	return out, nil
}

func matchesEvent(e models.StockEvent, f EventFilter) bool {
	if f.ProductID != nil && e.ProductID != *f.ProductID {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Location != "" {
		hit := (e.From != nil && *e.From == f.Location) || (e.To != nil && *e.To == f.Location)
		if !hit {
			return false
		}
	}
	if f.Since != nil && e.At.Before(*f.Since) {
		return false
	}
	if f.Until != nil && e.At.After(*f.Until) {
		return false
	}
	return true
}

// Events returns matching events, newest first.
func (r *InMemoryLedgerRepository) Events(_ context.Context, f EventFilter) ([]models.StockEvent, int, error) {
	if f.Offset != nil && *f.Offset < 0 {
		return nil, 0, ErrInvalidFilter
	}

	r.logMu.RLock()
	var filtered []models.StockEvent
	for i := len(r.events) - 1; i >= 0; i-- {
		if matchesEvent(r.events[i], f) {
			filtered = append(filtered, r.events[i])
		}
	}
	r.logMu.RUnlock()

	start, end := page(len(filtered), f.Offset, f.Limit)
	return filtered[start:end], len(filtered), nil
}

func (r *InMemoryLedgerRepository) levels(match func(stockKey) bool) []models.StockLevel {
	levels := []models.StockLevel{}
	r.cells.Range(func(k, v any) bool {
		key, c := k.(stockKey), v.(*stockCell)
		if match(key) && c.updatedAt.Load() != 0 {
			levels = append(levels, models.StockLevel{
				ProductID: key.productID,
				Location:  key.location,
				Quantity:  c.qty.Load(),
				UpdatedAt: time.Unix(0, c.updatedAt.Load()).UTC(),
			})
		}
		return true
	})
	sort.Slice(levels, func(i, j int) bool {
		return stockKey{levels[i].ProductID, levels[i].Location}.less(stockKey{levels[j].ProductID, levels[j].Location})
	})
	return levels
}

func (r *InMemoryLedgerRepository) StockByProduct(_ context.Context, productID int64) ([]models.StockLevel, error) {
	return r.levels(func(k stockKey) bool { return k.productID == productID }), nil
}

func (r *InMemoryLedgerRepository) StockByLocation(_ context.Context, location string) ([]models.StockLevel, error) {
	return r.levels(func(k stockKey) bool { return k.location == location }), nil
}

func (r *InMemoryLedgerRepository) TotalByProduct(ctx context.Context, productID int64) (int64, error) {
	levels, _ := r.StockByProduct(ctx, productID)
	var total int64
	for _, l := range levels {
		total += l.Quantity
	}
	return total, nil
}

func (r *InMemoryLedgerRepository) LastSeq(_ context.Context) (int64, error) {
	r.logMu.RLock()
	defer r.logMu.RUnlock()
	return int64(len(r.events)), nil
}

func (r *InMemoryLedgerRepository) Cursor(_ context.Context, consumer string) (int64, error) {
	r.cursorMu.Lock()
	defer r.cursorMu.Unlock()
	return r.cursors[consumer], nil
}

func (r *InMemoryLedgerRepository) SaveCursor(_ context.Context, consumer string, position int64) error {
	r.cursorMu.Lock()
	defer r.cursorMu.Unlock()
	r.cursors[consumer] = position
	return nil
}

// Clear drops all stock, events and cursors.
func (r *InMemoryLedgerRepository) Clear() {
	r.clearMu.Lock()
	defer r.clearMu.Unlock()
	r.cells.Range(func(k, _ any) bool {
		r.cells.Delete(k)
		return true
	})
	r.logMu.Lock()
	r.events = nil
	r.logMu.Unlock()
	r.cursorMu.Lock()
	r.cursors = map[string]int64{}
	r.cursorMu.Unlock()
}
