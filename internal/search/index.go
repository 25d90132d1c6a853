package search

import (
	"context"
	"database/sql"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

// MemoryIndex matches every query token against the product's SKU, name
// and local name.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[int64][]string
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: map[int64][]string{}}
}

func tokenize(parts ...string) []string {
	var tokens []string
	for _, p := range parts {
		tokens = append(tokens, strings.Fields(strings.ToLower(p))...)
	}
	return tokens
}

func (m *MemoryIndex) OnProductUpserted(_ context.Context, p models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[p.ID] = tokenize(p.SKU, p.Name, p.LocalName)
	return nil
}

func (m *MemoryIndex) OnProductArchived(_ context.Context, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, productID)
	return nil
}

// Search returns matching product ids in ascending order.
func (m *MemoryIndex) Search(_ context.Context, query string, limit int) ([]int64, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return []int64{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := []int64{}
	for id, tokens := range m.docs {
		if matchesAll(tokens, terms) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func matchesAll(tokens, terms []string) bool {
	for _, term := range terms {
		if !slices.ContainsFunc(tokens, func(tok string) bool { return strings.HasPrefix(tok, term) }) {
			return false
		}
	}
	return true
}

var tsqueryOperators = strings.NewReplacer("'", "", ":", "", "&", "", "|", "", "!", "", "(", "", ")", "", "<", "", ">", "", "\\", "")

// PostgresIndex stores a tsvector per active product in product_search,
// built with the 'simple' text search configuration.
type PostgresIndex struct {
	db *sql.DB
}

func NewPostgresIndex(db *sql.DB) *PostgresIndex {
	return &PostgresIndex{db: db}
}

func (r *PostgresIndex) OnProductUpserted(ctx context.Context, p models.Product) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO product_search (product_id, document, updated_at)
		VALUES ($1, to_tsvector('simple', $2 || ' ' || $3 || ' ' || $4), now())
		ON CONFLICT (product_id) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		p.ID, p.SKU, p.Name, p.LocalName)
	return err
}

func (r *PostgresIndex) OnProductArchived(ctx context.Context, productID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `DELETE FROM product_search WHERE product_id = $1`, productID)
	return err
}

// Search ranks matches by ts_rank; each query token matches as a prefix.
func (r *PostgresIndex) Search(ctx context.Context, query string, limit int) ([]int64, error) {
	var terms []string
	for _, t := range tokenize(query) {
		if t = tsqueryOperators.Replace(t); t != "" {
			terms = append(terms, t+":*")
		}
	}
	if len(terms) == 0 {
		return []int64{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id FROM product_search
		WHERE document @@ to_tsquery('simple', $1)
		ORDER BY ts_rank(document, to_tsquery('simple', $1)) DESC, product_id
		LIMIT $2`, strings.Join(terms, " & "), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
