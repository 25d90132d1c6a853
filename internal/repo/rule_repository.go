package repo

import (
	"context"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

// NotifyRuleRepository stores notification subscriptions. Upsert replaces
// the rule with the same (user, product, condition).
type NotifyRuleRepository interface {
	ListRules(ctx context.Context) ([]models.NotifyRule, error)
	ListByUser(ctx context.Context, userID int64) ([]models.NotifyRule, error)
	UpsertRule(ctx context.Context, rule models.NotifyRule) (models.NotifyRule, error)
	DeleteRule(ctx context.Context, id int64) error
}
