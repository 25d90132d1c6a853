package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

// InMemoryCatalogRepository is an in-memory implementation of CatalogRepository.
type InMemoryCatalogRepository struct {
	mu        sync.RWMutex
	products  []models.Product
	bySKU     map[string]int
	locations map[string]models.Location
	imports   map[string]models.ImportLog
	revision  int64
}

// NewInMemoryCatalogRepository creates a catalog holding only the
// unassigned location.
func NewInMemoryCatalogRepository() *InMemoryCatalogRepository {
	r := &InMemoryCatalogRepository{}
	r.Clear()
	return r
}

func (r *InMemoryCatalogRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products = []models.Product{}
	r.bySKU = map[string]int{}
	r.locations = map[string]models.Location{
		models.UnassignedLocation: {Code: models.UnassignedLocation, Kind: models.LocationUnassigned, Title: "Unassigned"},
	}
	r.imports = map[string]models.ImportLog{}
	r.revision = 0
}

func (r *InMemoryCatalogRepository) CreateProduct(_ context.Context, p models.Product) (models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySKU[p.SKU]; exists {
		return models.Product{}, ErrDuplicatedValueUnique
	}
	r.revision++
	p.ID = int64(len(r.products) + 1)
	p.Revision = r.revision
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.products = append(r.products, p)
	r.bySKU[p.SKU] = len(r.products) - 1
	return p, nil
}

func (r *InMemoryCatalogRepository) GetProductByID(_ context.Context, id int64) (models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id <= 0 || id > int64(len(r.products)) {
		return models.Product{}, ErrProductNotFound
	}
	return r.products[id-1], nil
}

func (r *InMemoryCatalogRepository) GetProductBySKU(_ context.Context, sku string) (models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.bySKU[sku]
	if !ok {
		return models.Product{}, ErrProductNotFound
	}
	return r.products[i], nil
}

func matchesFilter(p models.Product, pf ProductFilter) bool {
	if !pf.IncludeArchived && p.Archived {
		return false
	}
	if pf.Search == "" {
		return true
	}
	needle := strings.ToLower(pf.Search)
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.LocalName), needle) ||
		strings.Contains(strings.ToLower(p.SKU), needle)
}

func (r *InMemoryCatalogRepository) FilterProducts(_ context.Context, pf ProductFilter) ([]models.Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filtered := []models.Product{}
	for _, p := range r.products {
		if matchesFilter(p, pf) {
			filtered = append(filtered, p)
		}
	}

	start, end := page(len(filtered), pf.Offset, pf.Limit)
	return filtered[start:end], len(filtered), nil
}

func (r *InMemoryCatalogRepository) update(id int64, fn func(p *models.Product)) (models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id <= 0 || id > int64(len(r.products)) {
		return models.Product{}, ErrProductNotFound
	}
	p := &r.products[id-1]
	fn(p)
	r.revision++
	p.Revision = r.revision
	return *p, nil
}

func (r *InMemoryCatalogRepository) SetArchived(_ context.Context, id int64, archived bool, at time.Time) (models.Product, error) {
	return r.update(id, func(p *models.Product) {
		p.Archived = archived
		if archived {
			p.ArchivedAt = &at
		} else {
			p.ArchivedAt = nil
		}
	})
}

func (r *InMemoryCatalogRepository) MarkRestock(_ context.Context, id int64, at time.Time) (models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id <= 0 || id > int64(len(r.products)) {
		return models.Product{}, ErrProductNotFound
	}
	p := &r.products[id-1]
	p.LastRestockAt = &at
	if p.Archived {
		p.Archived = false
		p.ArchivedAt = nil
		r.revision++
		p.Revision = r.revision
	}
	return *p, nil
}

func (r *InMemoryCatalogRepository) ProductsChangedAfter(_ context.Context, revision int64, limit int) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var changed []models.Product
	for _, p := range r.products {
		if p.Revision > revision {
			changed = append(changed, p)
		}
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].Revision < changed[j].Revision })
	if limit > 0 && len(changed) > limit {
		changed = changed[:limit]
	}
	return changed, nil
}

func (r *InMemoryCatalogRepository) CreateLocation(_ context.Context, l models.Location) (models.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.locations[l.Code]; exists {
		return models.Location{}, ErrDuplicatedValueUnique
	}
	r.locations[l.Code] = l
	return l, nil
}

func (r *InMemoryCatalogRepository) GetLocation(_ context.Context, code string) (models.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.locations[code]
	if !ok {
		return models.Location{}, ErrLocationNotFound
	}
	return l, nil
}

func (r *InMemoryCatalogRepository) ListLocations(_ context.Context) ([]models.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	locations := make([]models.Location, 0, len(r.locations))
	for _, l := range r.locations {
		locations = append(locations, l)
	}
	sort.Slice(locations, func(i, j int) bool { return locations[i].Code < locations[j].Code })
	return locations, nil
}

func (r *InMemoryCatalogRepository) FindImport(_ context.Context, sourceHash string) (models.ImportLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.imports[sourceHash]
	if !ok {
		return models.ImportLog{}, ErrNotFound
	}
	return l, nil
}

func (r *InMemoryCatalogRepository) RecordImport(_ context.Context, l models.ImportLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.imports[l.SourceHash]; exists {
		return ErrDuplicatedValueUnique
	}
	r.imports[l.SourceHash] = l
	return nil
}
