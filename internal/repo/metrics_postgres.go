package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type PostgresMetricsRepository struct {
	db *sql.DB
}

func NewPostgresMetricsRepository(db *sql.DB) *PostgresMetricsRepository {
	return &PostgresMetricsRepository{db: db}
}

func (r *PostgresMetricsRepository) GetDashboardMetrics(ctx context.Context) (Metrics, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var m Metrics

	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE archived) FROM products`).
		Scan(&m.TotalProducts, &m.ArchivedProducts); err != nil {
		return m, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stock_events`).Scan(&m.TotalEvents); err != nil {
		return m, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT last_seq FROM ledger_sequence WHERE id = 1`).Scan(&m.LastSeq); err != nil {
		return m, err
	}
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM products p
		WHERE NOT p.archived
		  AND COALESCE((SELECT SUM(quantity) FROM stock s WHERE s.product_id = p.id), 0) = 0
	`).Scan(&m.OutOfStockCount); err != nil {
		return m, err
	}

	err := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.name, COUNT(*) AS cnt
		FROM stock_events e
		JOIN products p ON e.product_id = p.id
		WHERE NOT p.archived
		GROUP BY p.id, p.name
		ORDER BY cnt DESC
		LIMIT 1
	`).Scan(&m.MostMovedProduct.ProductID, &m.MostMovedProduct.Name, &m.MostMovedProduct.EventCount)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return m, err
	}

	return m, nil
}
