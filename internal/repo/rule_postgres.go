package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

type PostgresNotifyRuleRepository struct {
	db *sql.DB
}

func NewPostgresNotifyRuleRepository(db *sql.DB) *PostgresNotifyRuleRepository {
	return &PostgresNotifyRuleRepository{db: db}
}

func (r *PostgresNotifyRuleRepository) query(ctx context.Context, where string, args ...any) ([]models.NotifyRule, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, product_id, condition, mode, floor FROM notify_rules `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []models.NotifyRule{}
	for rows.Next() {
		var (
			rule            models.NotifyRule
			productID       sql.NullInt64
			condition, mode string
		)
		if err := rows.Scan(&rule.ID, &rule.UserID, &productID, &condition, &mode, &rule.Floor); err != nil {
			return nil, err
		}
		if productID.Valid {
			rule.ProductID = &productID.Int64
		}
		rule.Condition = models.Condition(condition)
		rule.Mode = models.NotifyMode(mode)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *PostgresNotifyRuleRepository) ListRules(ctx context.Context) ([]models.NotifyRule, error) {
	return r.query(ctx, "")
}

func (r *PostgresNotifyRuleRepository) ListByUser(ctx context.Context, userID int64) ([]models.NotifyRule, error) {
	return r.query(ctx, "WHERE user_id = $1", userID)
}

// UpsertRule relies on the unique index over
// (user_id, COALESCE(product_id, 0), condition).
func (r *PostgresNotifyRuleRepository) UpsertRule(ctx context.Context, rule models.NotifyRule) (models.NotifyRule, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notify_rules (user_id, product_id, condition, mode, floor)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, (COALESCE(product_id, 0)), condition)
		DO UPDATE SET mode = EXCLUDED.mode, floor = EXCLUDED.floor
		RETURNING id`,
		rule.UserID, rule.ProductID, string(rule.Condition), string(rule.Mode), rule.Floor).Scan(&rule.ID)
	if isForeignKeyViolation(err) {
		return models.NotifyRule{}, ErrProductNotFound
	}
	if err != nil {
		return models.NotifyRule{}, fmt.Errorf("failed to upsert notify rule: %w", err)
	}
	return rule, nil
}

func (r *PostgresNotifyRuleRepository) DeleteRule(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM notify_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}
