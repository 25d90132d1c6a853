package repo

import (
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

const defaultLimit = 100

type ProductFilter struct {
	Search          string
	IncludeArchived bool
	Offset          *int
	Limit           *int
}

// EventFilter narrows the event history. Zero values mean "any".
type EventFilter struct {
	ProductID *int64
	Location  string
	Kind      models.EventKind
	Since     *time.Time
	Until     *time.Time
	Offset    *int
	Limit     *int
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// page applies offset/limit to n items, returning the [start, end) window.
func page(n int, offset, limit *int) (int, int) {
	start := 0
	if offset != nil {
		start = clamp(*offset, 0, n)
	}
	size := defaultLimit
	if limit != nil && *limit >= 0 {
		size = min(*limit, defaultLimit)
	}
	return start, clamp(start+size, start, n)
}
