package notify

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

type level int

const (
	levelOK level = iota
	levelLow
	levelZero
)

func classify(qty, floor int64) level {
	switch {
	case qty == 0:
		return levelZero
	case qty < floor:
		return levelLow
	default:
		return levelOK
	}
}

// crosses reports whether moving from before to after enters the state the
// condition watches. Only edges fire; staying in a state does not.
func crosses(cond models.Condition, before, after, floor int64) bool {
	switch cond {
	case models.ConditionZero:
		return before != 0 && after == 0
	case models.ConditionLow:
		return classify(before, floor) == levelOK && classify(after, floor) == levelLow
	case models.ConditionRestock:
		return before == 0 && after > 0
	}
	return false
}

// ruleSet holds the rules that are in effect, keyed by subscriber and
// condition. A product-specific rule overrides the catch-all rule of the
// same user and condition.
type ruleSet struct {
	global  map[ruleKey]models.NotifyRule
	product map[ruleKey]map[int64]models.NotifyRule
	keys    []ruleKey
}

type ruleKey struct {
	userID    int64
	condition models.Condition
}

// validateRule rejects rules that can never be evaluated. defaultFloor
// replaces an unset floor.
func validateRule(r models.NotifyRule, defaultFloor int64) (models.NotifyRule, error) {
	if !r.Condition.Valid() {
		return r, fmt.Errorf("unknown condition %q", r.Condition)
	}
	if !r.Mode.Valid() {
		return r, fmt.Errorf("unknown mode %q", r.Mode)
	}
	if r.Floor < 0 {
		return r, fmt.Errorf("negative floor %d", r.Floor)
	}
	if r.Floor == 0 {
		r.Floor = defaultFloor
	}
	if r.Condition == models.ConditionLow && r.Floor < 1 {
		return r, fmt.Errorf("low condition needs a floor of at least 1")
	}
	return r, nil
}

func newRuleSet(rules []models.NotifyRule) ruleSet {
	rs := ruleSet{
		global:  map[ruleKey]models.NotifyRule{},
		product: map[ruleKey]map[int64]models.NotifyRule{},
	}
	seen := map[ruleKey]bool{}
	for _, r := range rules {
		k := ruleKey{r.UserID, r.Condition}
		if !seen[k] {
			seen[k] = true
			rs.keys = append(rs.keys, k)
		}
		if r.ProductID == nil {
			rs.global[k] = r
			continue
		}
		if rs.product[k] == nil {
			rs.product[k] = map[int64]models.NotifyRule{}
		}
		rs.product[k][*r.ProductID] = r
	}
	slices.SortFunc(rs.keys, func(a, b ruleKey) int {
		if c := cmp.Compare(a.userID, b.userID); c != 0 {
			return c
		}
		return cmp.Compare(a.condition, b.condition)
	})
	return rs
}

func (rs ruleSet) ruleFor(k ruleKey, productID int64) (models.NotifyRule, bool) {
	if r, ok := rs.product[k][productID]; ok {
		return r, true
	}
	r, ok := rs.global[k]
	return r, ok
}

// evaluate returns the notifications an event triggers, leg by leg. Product
// details are left for the caller to fill in.
func evaluate(ev models.StockEvent, rs ruleSet) []models.Notification {
	var out []models.Notification
	for _, leg := range ev.Legs() {
		for _, k := range rs.keys {
			r, ok := rs.ruleFor(k, ev.ProductID)
			if !ok || r.Mode == models.ModeOff {
				continue
			}
			if !crosses(r.Condition, leg.Before(), leg.After, r.Floor) {
				continue
			}
			out = append(out, models.Notification{
				UserID:           r.UserID,
				Condition:        r.Condition,
				ProductID:        ev.ProductID,
				Location:         leg.Location,
				ObservedQuantity: leg.After,
				EventSeq:         ev.Seq,
				Mode:             r.Mode,
				At:               ev.At,
			})
		}
	}
	return out
}
