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

type PostgresCatalogRepository struct {
	db *sql.DB
}

func NewPostgresCatalogRepository(db *sql.DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{db: db}
}

const productColumns = `id, sku, name, local_name, photo_ref, archived, archived_at, last_restock_at, revision, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (models.Product, error) {
	var (
		p                     models.Product
		localName, photoRef   sql.NullString
		archivedAt, restockAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &localName, &photoRef, &p.Archived,
		&archivedAt, &restockAt, &p.Revision, &p.CreatedAt)
	if err != nil {
		return models.Product{}, err
	}
	p.LocalName = localName.String
	p.PhotoRef = photoRef.String
	if archivedAt.Valid {
		p.ArchivedAt = &archivedAt.Time
	}
	if restockAt.Valid {
		p.LastRestockAt = &restockAt.Time
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

// nextRevision advances the catalog revision counter inside tx. The row
// lock keeps revisions in commit order.
func nextRevision(ctx context.Context, tx *sql.Tx) (int64, error) {
	var rev int64
	err := tx.QueryRowContext(ctx,
		`UPDATE catalog_sequence SET last_rev = last_rev + 1 WHERE id = 1 RETURNING last_rev`).Scan(&rev)
	if err != nil {
		return 0, fmt.Errorf("failed to advance catalog revision: %w", err)
	}
	return rev, nil
}

func (r *PostgresCatalogRepository) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Product{}, err
	}
	defer tx.Rollback()

	rev, err := nextRevision(ctx, tx)
	if err != nil {
		return models.Product{}, err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO products (sku, name, local_name, photo_ref, archived, revision, created_at)
		VALUES ($1, $2, $3, $4, false, $5, $6)
		RETURNING `+productColumns,
		p.SKU, p.Name, p.LocalName, p.PhotoRef, rev, p.CreatedAt)
	created, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Product{}, ErrDuplicatedValueUnique
		}
		return models.Product{}, fmt.Errorf("failed to insert product: %w", err)
	}
	return created, tx.Commit()
}

func (r *PostgresCatalogRepository) getProduct(ctx context.Context, where string, arg any) (models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, ErrProductNotFound
	}
	return p, err
}

func (r *PostgresCatalogRepository) GetProductByID(ctx context.Context, id int64) (models.Product, error) {
	return r.getProduct(ctx, "id = $1", id)
}

func (r *PostgresCatalogRepository) GetProductBySKU(ctx context.Context, sku string) (models.Product, error) {
	return r.getProduct(ctx, "sku = $1", sku)
}

func (r *PostgresCatalogRepository) FilterProducts(ctx context.Context, pf ProductFilter) ([]models.Product, int, error) {
	conditions := ""
	args := []any{}
	argIdx := 1
	if !pf.IncludeArchived {
		conditions += " AND archived = false"
	}
	if pf.Search != "" {
		conditions += fmt.Sprintf(" AND (name ILIKE $%d OR local_name ILIKE $%d OR sku ILIKE $%d)", argIdx, argIdx, argIdx)
		args = append(args, "%"+pf.Search+"%")
		argIdx++
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var totalCount int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products WHERE 1=1"+conditions, args...).Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	limit := defaultLimit
	if pf.Limit != nil && *pf.Limit >= 0 {
		limit = min(*pf.Limit, defaultLimit)
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1` + conditions + " ORDER BY id"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)
	argIdx++
	if pf.Offset != nil && *pf.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, *pf.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, totalCount, rows.Err()
}

func (r *PostgresCatalogRepository) updateProduct(ctx context.Context, id int64, set string, args ...any) (models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Product{}, err
	}
	defer tx.Rollback()

	rev, err := nextRevision(ctx, tx)
	if err != nil {
		return models.Product{}, err
	}

	n := len(args)
	query := fmt.Sprintf(`UPDATE products SET %s, revision = $%d WHERE id = $%d RETURNING %s`, set, n+1, n+2, productColumns)
	p, err := scanProduct(tx.QueryRowContext(ctx, query, append(args, rev, id)...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, ErrProductNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to update product: %w", err)
	}
	return p, tx.Commit()
}

func (r *PostgresCatalogRepository) SetArchived(ctx context.Context, id int64, archived bool, at time.Time) (models.Product, error) {
	var archivedAt *time.Time
	if archived {
		archivedAt = &at
	}
	return r.updateProduct(ctx, id, "archived = $1, archived_at = $2", archived, archivedAt)
}

func (r *PostgresCatalogRepository) MarkRestock(ctx context.Context, id int64, at time.Time) (models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Product{}, err
	}
	defer tx.Rollback()

	var archived bool
	err = tx.QueryRowContext(ctx, `SELECT archived FROM products WHERE id = $1 FOR UPDATE`, id).Scan(&archived)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, ErrProductNotFound
	}
	if err != nil {
		return models.Product{}, err
	}

	query := `UPDATE products SET last_restock_at = $1 WHERE id = $2 RETURNING ` + productColumns
	args := []any{at, id}
	if archived {
		rev, err := nextRevision(ctx, tx)
		if err != nil {
			return models.Product{}, err
		}
		query = `UPDATE products SET last_restock_at = $1, archived = false, archived_at = NULL, revision = $3
			WHERE id = $2 RETURNING ` + productColumns
		args = append(args, rev)
	}

	p, err := scanProduct(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to mark restock: %w", err)
	}
	return p, tx.Commit()
}

func (r *PostgresCatalogRepository) ProductsChangedAfter(ctx context.Context, revision int64, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE revision > $1 ORDER BY revision LIMIT $2`, revision, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *PostgresCatalogRepository) CreateLocation(ctx context.Context, l models.Location) (models.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (code, kind, title) VALUES ($1, $2, $3)`, l.Code, string(l.Kind), l.Title)
	if isUniqueViolation(err) {
		return models.Location{}, ErrDuplicatedValueUnique
	}
	if err != nil {
		return models.Location{}, fmt.Errorf("failed to insert location: %w", err)
	}
	return l, nil
}

func (r *PostgresCatalogRepository) GetLocation(ctx context.Context, code string) (models.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		l    models.Location
		kind string
	)
	err := r.db.QueryRowContext(ctx, `SELECT code, kind, title FROM locations WHERE code = $1`, code).
		Scan(&l.Code, &kind, &l.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Location{}, ErrLocationNotFound
	}
	l.Kind = models.LocationKind(kind)
	return l, err
}

func (r *PostgresCatalogRepository) ListLocations(ctx context.Context) ([]models.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT code, kind, title FROM locations ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := []models.Location{}
	for rows.Next() {
		var (
			l    models.Location
			kind string
		)
		if err := rows.Scan(&l.Code, &kind, &l.Title); err != nil {
			return nil, err
		}
		l.Kind = models.LocationKind(kind)
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

func (r *PostgresCatalogRepository) FindImport(ctx context.Context, sourceHash string) (models.ImportLog, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var l models.ImportLog
	err := r.db.QueryRowContext(ctx,
		`SELECT batch_id, source_hash, imported, failed, actor, created_at FROM import_log WHERE source_hash = $1`, sourceHash).
		Scan(&l.BatchID, &l.SourceHash, &l.Imported, &l.Failed, &l.Actor, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ImportLog{}, ErrNotFound
	}
	return l, err
}

func (r *PostgresCatalogRepository) RecordImport(ctx context.Context, l models.ImportLog) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO import_log (batch_id, source_hash, imported, failed, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		l.BatchID, l.SourceHash, l.Imported, l.Failed, l.Actor, l.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicatedValueUnique
	}
	return err
}
