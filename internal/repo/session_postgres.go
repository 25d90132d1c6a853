package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

type PostgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

// Create relies on the partial unique index over open and committing
// sessions per location.
func (r *PostgresSessionRepository) Create(ctx context.Context, s models.InventorySession) (models.InventorySession, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO inventory_sessions (id, location_code, opened_by, opened_at, status)
		VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.Location, s.OpenedBy, s.OpenedAt, string(models.SessionOpen))
	if isUniqueViolation(err) {
		return models.InventorySession{}, ErrSessionAlreadyOpen
	}
	if err != nil {
		return models.InventorySession{}, fmt.Errorf("failed to insert session: %w", err)
	}
	s.Status = models.SessionOpen
	if s.Counts == nil {
		s.Counts = map[int64]int64{}
	}
	return s, nil
}

func (r *PostgresSessionRepository) load(ctx context.Context, where string, arg any) (models.InventorySession, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		s        models.InventorySession
		status   string
		closedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, location_code, opened_by, opened_at, status, closed_at
		FROM inventory_sessions WHERE `+where, arg).
		Scan(&s.ID, &s.Location, &s.OpenedBy, &s.OpenedAt, &status, &closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.InventorySession{}, ErrSessionNotFound
	}
	if err != nil {
		return models.InventorySession{}, err
	}
	s.Status = models.SessionStatus(status)
	if closedAt.Valid {
		s.ClosedAt = &closedAt.Time
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, counted, failed FROM inventory_session_counts WHERE session_id = $1 ORDER BY product_id`, s.ID)
	if err != nil {
		return models.InventorySession{}, err
	}
	defer rows.Close()

	s.Counts = map[int64]int64{}
	for rows.Next() {
		var (
			productID, counted int64
			failed             bool
		)
		if err := rows.Scan(&productID, &counted, &failed); err != nil {
			return models.InventorySession{}, err
		}
		s.Counts[productID] = counted
		if failed {
			s.FailedProducts = append(s.FailedProducts, productID)
		}
	}
	return s, rows.Err()
}

func (r *PostgresSessionRepository) Get(ctx context.Context, id string) (models.InventorySession, error) {
	return r.load(ctx, "id = $1", id)
}

func (r *PostgresSessionRepository) OpenForLocation(ctx context.Context, location string) (models.InventorySession, error) {
	return r.load(ctx, "location_code = $1 AND status = 'open'", location)
}

func (r *PostgresSessionRepository) SetCount(ctx context.Context, id string, productID, counted int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM inventory_sessions WHERE id = $1 FOR SHARE`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	if status != string(models.SessionOpen) {
		return ErrSessionNotOpen
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO inventory_session_counts (session_id, product_id, counted, failed)
		VALUES ($1, $2, $3, false)
		ON CONFLICT (session_id, product_id) DO UPDATE SET counted = EXCLUDED.counted`,
		id, productID, counted)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to record count: %w", err)
	}
	return tx.Commit()
}

// Claim takes the row lock that SetCount waits on with FOR SHARE, so no
// count can land after the snapshot is read.
func (r *PostgresSessionRepository) Claim(ctx context.Context, id string) (models.InventorySession, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE inventory_sessions SET status = 'committing' WHERE id = $1 AND status = 'open'`, id)
	if err != nil {
		return models.InventorySession{}, fmt.Errorf("failed to claim session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return models.InventorySession{}, err
		}
		return models.InventorySession{}, ErrSessionNotOpen
	}
	return r.Get(ctx, id)
}

func (r *PostgresSessionRepository) Close(ctx context.Context, id string, from, to models.SessionStatus, at time.Time, failed []int64) (models.InventorySession, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.InventorySession{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE inventory_sessions SET status = $1, closed_at = $2 WHERE id = $3 AND status = $4`,
		string(to), at, id, string(from))
	if err != nil {
		return models.InventorySession{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return models.InventorySession{}, err
		}
		return models.InventorySession{}, ErrSessionNotOpen
	}

	for _, productID := range failed {
		if _, err := tx.ExecContext(ctx,
			`UPDATE inventory_session_counts SET failed = true WHERE session_id = $1 AND product_id = $2`,
			id, productID); err != nil {
			return models.InventorySession{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return models.InventorySession{}, err
	}
	return r.Get(ctx, id)
}
