package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"github.com/rogerio-castellano/warehouse-ledger/internal/repo"
	"go.uber.org/zap"
)

type flakyIndex struct {
	*MemoryIndex
	failOn int64
}

func (f *flakyIndex) OnProductUpserted(ctx context.Context, p models.Product) error {
	if p.ID == f.failOn {
		f.failOn = 0
		return errors.New("index unavailable")
	}
	return f.MemoryIndex.OnProductUpserted(ctx, p)
}

func TestSyncFollowsCatalog(t *testing.T) {
	ctx := context.Background()
	catalog := repo.NewInMemoryCatalogRepository()
	cursors := repo.NewInMemoryLedgerRepository(nil)
	index := NewMemoryIndex()
	sync := NewSync(catalog, cursors, index, 2, time.Second, zap.NewNop())

	bolt, _ := catalog.CreateProduct(ctx, models.Product{SKU: "B-100", Name: "Steel bolt", LocalName: "Болт"})
	nut, _ := catalog.CreateProduct(ctx, models.Product{SKU: "N-200", Name: "Steel nut"})
	_, _ = catalog.CreateProduct(ctx, models.Product{SKU: "W-300", Name: "Washer"})

	if err := sync.Drain(ctx); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	ids, _ := index.Search(ctx, "steel", 0)
	if len(ids) != 2 || ids[0] != bolt.ID || ids[1] != nut.ID {
		t.Errorf("expected bolt and nut, got %v", ids)
	}
	if ids, _ := index.Search(ctx, "болт", 0); len(ids) != 1 {
		t.Errorf("expected a match on the local name, got %v", ids)
	}

	if _, err := catalog.SetArchived(ctx, nut.ID, true, time.Now()); err != nil {
		t.Fatalf("SetArchived failed: %v", err)
	}
	if err := sync.Drain(ctx); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if ids, _ := index.Search(ctx, "steel nut", 0); len(ids) != 0 {
		t.Errorf("expected archived product to leave the index, got %v", ids)
	}

	if _, err := catalog.MarkRestock(ctx, nut.ID, time.Now()); err != nil {
		t.Fatalf("MarkRestock failed: %v", err)
	}
	if err := sync.Drain(ctx); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if ids, _ := index.Search(ctx, "nut", 0); len(ids) != 1 || ids[0] != nut.ID {
		t.Errorf("expected restocked product back in the index, got %v", ids)
	}

	// Further restocks are stock events, not catalog changes.
	before, _ := cursors.Cursor(ctx, ConsumerName)
	restocked, err := catalog.MarkRestock(ctx, bolt.ID, time.Now())
	if err != nil {
		t.Fatalf("MarkRestock failed: %v", err)
	}
	if restocked.Revision != bolt.Revision || restocked.LastRestockAt == nil {
		t.Errorf("expected restock of an active product to keep revision %d, got %+v", bolt.Revision, restocked)
	}
	if changed, _ := catalog.ProductsChangedAfter(ctx, before, 0); len(changed) != 0 {
		t.Errorf("expected no catalog changes after a plain restock, got %+v", changed)
	}
	if err := sync.Drain(ctx); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if ids, _ := index.Search(ctx, "steel bolt", 0); len(ids) != 1 || ids[0] != bolt.ID {
		t.Errorf("expected the bolt to stay indexed, got %v", ids)
	}
}

func TestSyncRetriesFailedProduct(t *testing.T) {
	ctx := context.Background()
	catalog := repo.NewInMemoryCatalogRepository()
	cursors := repo.NewInMemoryLedgerRepository(nil)

	a, _ := catalog.CreateProduct(ctx, models.Product{SKU: "A", Name: "Alpha"})
	b, _ := catalog.CreateProduct(ctx, models.Product{SKU: "B", Name: "Beta"})

	index := &flakyIndex{MemoryIndex: NewMemoryIndex(), failOn: b.ID}
	sync := NewSync(catalog, cursors, index, 10, time.Second, zap.NewNop())

	if err := sync.Drain(ctx); err == nil {
		t.Fatal("expected the first drain to fail")
	}
	if pos, _ := cursors.Cursor(ctx, ConsumerName); pos != a.Revision {
		t.Fatalf("expected cursor at %d, got %d", a.Revision, pos)
	}

	if err := sync.Drain(ctx); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if ids, _ := index.Search(ctx, "beta", 0); len(ids) != 1 {
		t.Errorf("expected the failed product to be indexed on retry, got %v", ids)
	}
}

func TestMemoryIndexPrefixAndLimit(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex()
	for id := int64(1); id <= 5; id++ {
		_ = index.OnProductUpserted(ctx, models.Product{ID: id, SKU: "CAB-" + string(rune('0'+id)), Name: "Cable"})
	}

	if ids, _ := index.Search(ctx, "cab", 3); len(ids) != 3 || ids[0] != 1 {
		t.Errorf("expected 3 prefix matches, got %v", ids)
	}
	if ids, _ := index.Search(ctx, "   ", 0); len(ids) != 0 {
		t.Errorf("expected empty query to match nothing, got %v", ids)
	}
}
