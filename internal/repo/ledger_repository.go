package repo

import (
	"context"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

// LedgerRepository owns the current-quantity table and the event log.
//
// Apply commits every leg of the event together with the event itself:
// either all quantities change and the event gets the next sequence
// number, or nothing changes. Seq, At and the *QtyAfter fields of the
// returned event are filled by the store.
type LedgerRepository interface {
	GetQuantity(ctx context.Context, productID int64, location string) (int64, error)
	Apply(ctx context.Context, ev models.StockEvent) (models.StockEvent, error)
	EventsAfter(ctx context.Context, seq int64, limit int) ([]models.StockEvent, error)
	Events(ctx context.Context, f EventFilter) ([]models.StockEvent, int, error)
	StockByProduct(ctx context.Context, productID int64) ([]models.StockLevel, error)
	StockByLocation(ctx context.Context, location string) ([]models.StockLevel, error)
	TotalByProduct(ctx context.Context, productID int64) (int64, error)
	LastSeq(ctx context.Context) (int64, error)
}

// CursorRepository persists the read position of each log consumer.
type CursorRepository interface {
	Cursor(ctx context.Context, consumer string) (int64, error)
	SaveCursor(ctx context.Context, consumer string, position int64) error
}

type stockKey struct {
	productID int64
	location  string
}

func (k stockKey) less(o stockKey) bool {
	if k.productID != o.productID {
		return k.productID < o.productID
	}
	return k.location < o.location
}

type leg struct {
	key   stockKey
	delta int64
	from  bool
}

// legsOf validates the shape of ev and returns its legs in lock order.
func legsOf(ev models.StockEvent) ([]leg, error) {
	if !ev.Kind.Valid() || ev.ProductID <= 0 {
		return nil, ErrInvalidMutation
	}
	switch ev.Kind {
	case models.EventMove:
		if ev.From == nil || ev.To == nil || ev.Delta <= 0 {
			return nil, ErrInvalidMutation
		}
	case models.EventImport:
		if ev.From != nil || ev.To == nil || ev.Delta <= 0 {
			return nil, ErrInvalidMutation
		}
	default:
		if ev.From != nil || ev.To == nil {
			return nil, ErrInvalidMutation
		}
	}
	var legs []leg
	for _, l := range ev.Legs() {
		if l.Delta == 0 || l.Location == "" {
			return nil, ErrInvalidMutation
		}
		legs = append(legs, leg{key: stockKey{ev.ProductID, l.Location}, delta: l.Delta, from: l.Delta < 0 && ev.Kind == models.EventMove})
	}
	if len(legs) == 0 || (len(legs) == 2 && legs[0].key == legs[1].key) {
		return nil, ErrInvalidMutation
	}
	if len(legs) == 2 && legs[1].key.less(legs[0].key) {
		legs[0], legs[1] = legs[1], legs[0]
	}
	return legs, nil
}

// fillAfter records the resulting quantity of each leg on the event.
func fillAfter(ev *models.StockEvent, l leg, after int64) {
	v := after
	if l.from {
		ev.FromQtyAfter = &v
	} else {
		ev.ToQtyAfter = &v
	}
}
