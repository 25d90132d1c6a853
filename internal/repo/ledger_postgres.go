package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

type PostgresLedgerRepository struct {
	db *sql.DB
}

func NewPostgresLedgerRepository(db *sql.DB) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{db: db}
}

func (r *PostgresLedgerRepository) GetQuantity(ctx context.Context, productID int64, location string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var qty int64
	err := r.db.QueryRowContext(ctx,
		`SELECT quantity FROM stock WHERE product_id = $1 AND location_code = $2`,
		productID, location).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return qty, err
}

// Apply locks the stock rows of every leg in key order, checks the
// non-negative invariant, writes the new quantities and appends the event
// with the next value of the single-row sequence counter. The counter row
// is taken after the stock rows so commit order matches sequence order.
func (r *PostgresLedgerRepository) Apply(ctx context.Context, ev models.StockEvent) (models.StockEvent, error) {
	legs, err := legsOf(ev)
	if err != nil {
		return models.StockEvent{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.StockEvent{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	at := time.Now().UTC()
	for _, l := range legs {
		after, err := r.applyLeg(ctx, tx, l, at)
		if err != nil {
			return models.StockEvent{}, err
		}
		fillAfter(&ev, l, after)
	}

	if err := tx.QueryRowContext(ctx,
		`UPDATE ledger_sequence SET last_seq = last_seq + 1 WHERE id = 1 RETURNING last_seq`).Scan(&ev.Seq); err != nil {
		return models.StockEvent{}, fmt.Errorf("failed to advance ledger sequence: %w", err)
	}
	ev.At = at

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_events (seq, at, kind, product_id, from_location, to_location, delta,
			from_qty_after, to_qty_after, actor, correlation_id, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		ev.Seq, ev.At, string(ev.Kind), ev.ProductID, ev.From, ev.To, ev.Delta,
		ev.FromQtyAfter, ev.ToQtyAfter, ev.Actor, ev.CorrelationID, ev.Reason)
	if err != nil {
		return models.StockEvent{}, fmt.Errorf("failed to insert stock event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.StockEvent{}, fmt.Errorf("failed to commit stock event: %w", err)
	}
	return ev, nil
}

func (r *PostgresLedgerRepository) applyLeg(ctx context.Context, tx *sql.Tx, l leg, at time.Time) (int64, error) {
	if l.delta > 0 {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO stock (product_id, location_code, quantity, updated_at)
			VALUES ($1, $2, 0, $3)
			ON CONFLICT (product_id, location_code) DO NOTHING`,
			l.key.productID, l.key.location, at)
		if err != nil {
			return 0, translateFK(err, l.key.location)
		}
	}

	var current int64
	err := tx.QueryRowContext(ctx,
		`SELECT quantity FROM stock WHERE product_id = $1 AND location_code = $2 FOR UPDATE`,
		l.key.productID, l.key.location).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		// Only a negative leg can reach a missing row.
		return 0, &NegativeQuantityError{ProductID: l.key.productID, Location: l.key.location, Delta: l.delta}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock stock row: %w", err)
	}

	next := current + l.delta
	if next < 0 {
		return 0, &NegativeQuantityError{ProductID: l.key.productID, Location: l.key.location, Available: current, Delta: l.delta}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE stock SET quantity = $1, updated_at = $2 WHERE product_id = $3 AND location_code = $4`,
		next, at, l.key.productID, l.key.location)
	if err != nil {
		return 0, fmt.Errorf("failed to update stock: %w", err)
	}
	return next, nil
}

// translateFK maps a foreign key violation on the stock table to the
// matching not-found error.
func translateFK(err error, location string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		if pgErr.ConstraintName == "stock_location_code_fkey" {
			return fmt.Errorf("%q: %w", location, ErrLocationNotFound)
		}
		return ErrProductNotFound
	}
	return fmt.Errorf("failed to create stock row: %w", err)
}

const eventColumns = `seq, at, kind, product_id, from_location, to_location, delta,
	from_qty_after, to_qty_after, actor, correlation_id, reason`

func scanEvents(rows *sql.Rows) ([]models.StockEvent, error) {
	defer rows.Close()

	events := []models.StockEvent{}
	for rows.Next() {
		var (
			e                     models.StockEvent
			kind                  string
			from, to              sql.NullString
			fromAfter, toAfter    sql.NullInt64
			correlationID, reason sql.NullString
		)
		if err := rows.Scan(&e.Seq, &e.At, &kind, &e.ProductID, &from, &to, &e.Delta,
			&fromAfter, &toAfter, &e.Actor, &correlationID, &reason); err != nil {
			return nil, err
		}
		e.Kind = models.EventKind(kind)
		if from.Valid {
			e.From = &from.String
		}
		if to.Valid {
			e.To = &to.String
		}
		if fromAfter.Valid {
			e.FromQtyAfter = &fromAfter.Int64
		}
		if toAfter.Valid {
			e.ToQtyAfter = &toAfter.Int64
		}
		e.CorrelationID = correlationID.String
		e.Reason = reason.String
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *PostgresLedgerRepository) EventsAfter(ctx context.Context, seq int64, limit int) ([]models.StockEvent, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM stock_events WHERE seq > $1 ORDER BY seq LIMIT $2`, seq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return scanEvents(rows)
}

// Events returns matching events, newest first.
func (r *PostgresLedgerRepository) Events(ctx context.Context, f EventFilter) ([]models.StockEvent, int, error) {
	if f.Offset != nil && *f.Offset < 0 {
		return nil, 0, ErrInvalidFilter
	}
	whereClause, args := buildEventWhereClause(f)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stock_events "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to get total count: %w", err)
	}
	if f.Limit != nil && *f.Limit == 0 {
		return []models.StockEvent{}, total, nil
	}
	if f.Offset != nil && *f.Offset >= total {
		return []models.StockEvent{}, total, nil
	}

	query, queryArgs := buildEventQuery(whereClause, args, f)
	rows, err := r.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute query: %w", err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func buildEventWhereClause(f EventFilter) (string, []any) {
	whereClause := "WHERE 1=1"
	var args []any
	argIndex := 1

	if f.ProductID != nil {
		whereClause += fmt.Sprintf(" AND product_id = $%d", argIndex)
		args = append(args, *f.ProductID)
		argIndex++
	}
	if f.Location != "" {
		whereClause += fmt.Sprintf(" AND (from_location = $%d OR to_location = $%d)", argIndex, argIndex)
		args = append(args, f.Location)
		argIndex++
	}
	if f.Kind != "" {
		whereClause += fmt.Sprintf(" AND kind = $%d", argIndex)
		args = append(args, string(f.Kind))
		argIndex++
	}
	if f.Since != nil {
		whereClause += fmt.Sprintf(" AND at >= $%d", argIndex)
		args = append(args, *f.Since)
		argIndex++
	}
	if f.Until != nil {
		whereClause += fmt.Sprintf(" AND at <= $%d", argIndex)
		args = append(args, *f.Until)
	}

	return whereClause, args
}

func buildEventQuery(whereClause string, baseArgs []any, f EventFilter) (string, []any) {
	query := "SELECT " + eventColumns + " FROM stock_events " + whereClause + " ORDER BY seq DESC"
	args := make([]any, len(baseArgs))
	copy(args, baseArgs)
	argIndex := len(baseArgs) + 1

	limit := defaultLimit
	if f.Limit != nil && *f.Limit > 0 {
		limit = min(*f.Limit, defaultLimit)
	}
	query += fmt.Sprintf(" LIMIT $%d", argIndex)
	args = append(args, limit)
	argIndex++

	if f.Offset != nil && *f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, *f.Offset)
	}

	return query, args
}

func (r *PostgresLedgerRepository) stockLevels(ctx context.Context, where string, arg any) ([]models.StockLevel, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, location_code, quantity, updated_at FROM stock WHERE `+where+` ORDER BY product_id, location_code`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	levels := []models.StockLevel{}
	for rows.Next() {
		var l models.StockLevel
		if err := rows.Scan(&l.ProductID, &l.Location, &l.Quantity, &l.UpdatedAt); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

func (r *PostgresLedgerRepository) StockByProduct(ctx context.Context, productID int64) ([]models.StockLevel, error) {
	return r.stockLevels(ctx, "product_id = $1", productID)
}

func (r *PostgresLedgerRepository) StockByLocation(ctx context.Context, location string) ([]models.StockLevel, error) {
	return r.stockLevels(ctx, "location_code = $1", location)
}

func (r *PostgresLedgerRepository) TotalByProduct(ctx context.Context, productID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM stock WHERE product_id = $1`, productID).Scan(&total)
	return total, err
}

func (r *PostgresLedgerRepository) LastSeq(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var seq int64
	err := r.db.QueryRowContext(ctx, `SELECT last_seq FROM ledger_sequence WHERE id = 1`).Scan(&seq)
	return seq, err
}

type PostgresCursorRepository struct {
	db *sql.DB
}

func NewPostgresCursorRepository(db *sql.DB) *PostgresCursorRepository {
	return &PostgresCursorRepository{db: db}
}

func (r *PostgresCursorRepository) Cursor(ctx context.Context, consumer string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var position int64
	err := r.db.QueryRowContext(ctx,
		`SELECT position FROM consumer_cursors WHERE consumer = $1`, consumer).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return position, err
}

func (r *PostgresCursorRepository) SaveCursor(ctx context.Context, consumer string, position int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO consumer_cursors (consumer, position, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (consumer) DO UPDATE SET position = EXCLUDED.position, updated_at = EXCLUDED.updated_at`,
		consumer, position, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save cursor %s: %w", consumer, err)
	}
	return nil
}
