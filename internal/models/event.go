package models

import "time"

type EventKind string

const (
	EventImport          EventKind = "import"
	EventMove            EventKind = "move"
	EventAdjust          EventKind = "adjust"
	EventCountCorrection EventKind = "count-correction"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventImport, EventMove, EventAdjust, EventCountCorrection:
		return true
	}
	return false
}

// StockEvent is an immutable record of one committed stock mutation.
//
// For a move, Delta is the positive quantity moved from From to To.
// For an import, Delta is the positive quantity received at To.
// For an adjust or count-correction, Delta is signed and applies to To.
// FromQtyAfter and ToQtyAfter hold the resulting quantities.
type StockEvent struct {
	Seq           int64     `json:"seq"`
	At            time.Time `json:"at"`
	Kind          EventKind `json:"kind"`
	ProductID     int64     `json:"product_id"`
	From          *string   `json:"from,omitempty"`
	To            *string   `json:"to,omitempty"`
	Delta         int64     `json:"delta"`
	FromQtyAfter  *int64    `json:"from_qty_after,omitempty"`
	ToQtyAfter    *int64    `json:"to_qty_after,omitempty"`
	Actor         string    `json:"actor"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}

// EventLeg is the effect of an event on a single (product, location) pair.
type EventLeg struct {
	Location string
	Delta    int64
	After    int64
}

// Before returns the quantity held prior to the event.
func (l EventLeg) Before() int64 {
	return l.After - l.Delta
}

// Legs splits the event into its per-location effects, source first.
func (e StockEvent) Legs() []EventLeg {
	var legs []EventLeg
	switch e.Kind {
	case EventMove:
		if e.From != nil {
			legs = append(legs, EventLeg{Location: *e.From, Delta: -e.Delta, After: deref(e.FromQtyAfter)})
		}
		if e.To != nil {
			legs = append(legs, EventLeg{Location: *e.To, Delta: e.Delta, After: deref(e.ToQtyAfter)})
		}
	default:
		if e.To != nil {
			legs = append(legs, EventLeg{Location: *e.To, Delta: e.Delta, After: deref(e.ToQtyAfter)})
		}
	}
	return legs
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// StockLevel is the current quantity of a product at one location.
type StockLevel struct {
	ProductID int64     `json:"product_id"`
	Location  string    `json:"location"`
	Quantity  int64     `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}
