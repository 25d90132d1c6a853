package repo

import (
	"context"
	"sync"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

type InMemoryNotifyRuleRepository struct {
	mu     sync.RWMutex
	rules  []models.NotifyRule
	nextID int64
}

func NewInMemoryNotifyRuleRepository() *InMemoryNotifyRuleRepository {
	return &InMemoryNotifyRuleRepository{nextID: 1}
}

func sameTarget(a, b models.NotifyRule) bool {
	if a.UserID != b.UserID || a.Condition != b.Condition {
		return false
	}
	if a.ProductID == nil || b.ProductID == nil {
		return a.ProductID == nil && b.ProductID == nil
	}
	return *a.ProductID == *b.ProductID
}

func (r *InMemoryNotifyRuleRepository) ListRules(_ context.Context) ([]models.NotifyRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.NotifyRule, len(r.rules))
	copy(out, r.rules)
	return out, nil
}

func (r *InMemoryNotifyRuleRepository) ListByUser(_ context.Context, userID int64) ([]models.NotifyRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.NotifyRule{}
	for _, rule := range r.rules {
		if rule.UserID == userID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *InMemoryNotifyRuleRepository) UpsertRule(_ context.Context, rule models.NotifyRule) (models.NotifyRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.rules {
		if sameTarget(existing, rule) {
			rule.ID = existing.ID
			r.rules[i] = rule
			return rule, nil
		}
	}
	rule.ID = r.nextID
	r.nextID++
	r.rules = append(r.rules, rule)
	return rule, nil
}

func (r *InMemoryNotifyRuleRepository) DeleteRule(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, rule := range r.rules {
		if rule.ID == id {
			r.rules = append(r.rules[:i], r.rules[i+1:]...)
			return nil
		}
	}
	return ErrRuleNotFound
}
