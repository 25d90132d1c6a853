package stock

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/catalog"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
	"github.com/rogerio-castellano/warehouse-ledger/internal/repo"
	"go.uber.org/zap"
)

type fixture struct {
	svc     *Service
	catalog *catalog.Service
	ledger  *repo.InMemoryLedgerRepository
}

func newFixture(t *testing.T, locations ...string) fixture {
	t.Helper()
	catalogRepo := repo.NewInMemoryCatalogRepository()
	ledger := repo.NewInMemoryLedgerRepository(catalogRepo)
	cat := catalog.NewService(catalogRepo, ledger, zap.NewNop())
	for _, code := range locations {
		if _, err := cat.CreateLocation(context.Background(), models.Location{Code: code, Kind: models.LocationWarehouse}); err != nil {
			t.Fatalf("CreateLocation(%s) failed: %v", code, err)
		}
	}
	return fixture{svc: NewService(ledger, cat, zap.NewNop()), catalog: cat, ledger: ledger}
}

func (f fixture) seed(t *testing.T, sku, location string, qty int64) models.Product {
	t.Helper()
	res, err := f.svc.ImportBatch(context.Background(), []ImportEntry{{SKU: sku, Name: sku, Quantity: qty, Location: location}}, "", "test")
	if err != nil || res.Imported != 1 {
		t.Fatalf("seeding %s failed: %v %+v", sku, err, res)
	}
	p, err := f.catalog.GetProduct(context.Background(), res.Results[0].ProductID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	return p
}

func (f fixture) qty(t *testing.T, productID int64, location string) int64 {
	t.Helper()
	q, err := f.svc.CurrentQuantity(context.Background(), productID, location)
	if err != nil {
		t.Fatalf("CurrentQuantity failed: %v", err)
	}
	return q
}

func TestMoveScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "L1", "L2")
	p := f.seed(t, "P", "L1", 10)
	before, _ := f.ledger.LastSeq(ctx)

	ev, err := f.svc.Move(ctx, MoveRequest{ProductID: p.ID, From: "L1", To: "L2", Quantity: 4, Actor: "alice"})
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if ev.Seq != before+1 || ev.Kind != models.EventMove || ev.Delta != 4 {
		t.Errorf("unexpected event %+v", ev)
	}
	if *ev.FromQtyAfter != 6 || *ev.ToQtyAfter != 4 {
		t.Errorf("expected quantities after 6/4, got %d/%d", *ev.FromQtyAfter, *ev.ToQtyAfter)
	}
	if got := f.qty(t, p.ID, "L1"); got != 6 {
		t.Errorf("expected 6 at L1, got %d", got)
	}
	if got := f.qty(t, p.ID, "L2"); got != 4 {
		t.Errorf("expected 4 at L2, got %d", got)
	}

	_, err = f.svc.Move(ctx, MoveRequest{ProductID: p.ID, From: "L2", To: "L1", Quantity: 7, Actor: "alice"})
	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("expected error to match ErrInsufficientStock")
	}
	if insufficient.Attempted != 7 || insufficient.Available != 4 {
		t.Errorf("expected attempted 7 / available 4, got %d / %d", insufficient.Attempted, insufficient.Available)
	}
	if f.qty(t, p.ID, "L1") != 6 || f.qty(t, p.ID, "L2") != 4 {
		t.Errorf("rejected move must not change quantities")
	}
	if after, _ := f.ledger.LastSeq(ctx); after != before+1 {
		t.Errorf("expected exactly one new event, got %d", after-before)
	}
}

func TestMoveValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "L1", "L2")
	p := f.seed(t, "P", "L1", 5)

	tests := []struct {
		name    string
		req     MoveRequest
		wantErr error
	}{
		{"zero quantity", MoveRequest{ProductID: p.ID, From: "L1", To: "L2", Quantity: 0}, ErrInvalidQuantity},
		{"negative quantity", MoveRequest{ProductID: p.ID, From: "L1", To: "L2", Quantity: -1}, ErrInvalidQuantity},
		{"same location", MoveRequest{ProductID: p.ID, From: "L1", To: "L1", Quantity: 1}, ErrInvalidRequest},
		{"unknown product", MoveRequest{ProductID: 999, From: "L1", To: "L2", Quantity: 1}, repo.ErrProductNotFound},
		{"unknown location", MoveRequest{ProductID: p.ID, From: "L1", To: "NOPE", Quantity: 1}, repo.ErrLocationNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Move(ctx, tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestImportBatchScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	entries := []ImportEntry{
		{SKU: "X", Name: "Item X", Quantity: 5},
		{SKU: "", Quantity: -3},
		{SKU: "Y", Name: "Item Y", Quantity: 2},
	}
	res, err := f.svc.ImportBatch(ctx, entries, "batch-1", "importer")
	if err != nil {
		t.Fatalf("ImportBatch failed: %v", err)
	}

	if res.BatchID != "batch-1" || res.Imported != 2 || res.Failed != 1 {
		t.Fatalf("unexpected batch result %+v", res)
	}
	failed := res.FailedEntries()
	if len(failed) != 1 || failed[0].Index != 1 || !errors.Is(failed[0].Err, ErrMalformedEntry) {
		t.Fatalf("expected entry 1 to fail as malformed, got %+v", failed)
	}

	for _, r := range []EntryResult{res.Results[0], res.Results[2]} {
		if !r.Created || r.Location != models.UnassignedLocation {
			t.Errorf("expected new product in unassigned, got %+v", r)
		}
	}
	if got := f.qty(t, res.Results[0].ProductID, models.UnassignedLocation); got != 5 {
		t.Errorf("expected X=5, got %d", got)
	}
	if got := f.qty(t, res.Results[2].ProductID, models.UnassignedLocation); got != 2 {
		t.Errorf("expected Y=2, got %d", got)
	}

	events, total, _ := f.svc.Events(ctx, repo.EventFilter{Kind: models.EventImport})
	if total != 2 {
		t.Fatalf("expected 2 import events, got %d", total)
	}
	for _, e := range events {
		if e.CorrelationID != "batch-1" {
			t.Errorf("expected correlation id batch-1, got %q", e.CorrelationID)
		}
	}
}

func TestImportBatchAnyOrder(t *testing.T) {
	entries := []ImportEntry{
		{SKU: "X", Name: "Item X", Quantity: 5},
		{SKU: "", Quantity: 3},
		{SKU: "Y", Name: "Item Y", Quantity: 2, Location: "SKL-0"},
		{SKU: "X", Quantity: 1, Location: "SKL-0"},
		{SKU: "Z", Quantity: 0},
		{SKU: "Y", Quantity: 4, Location: "SKL-0"},
		{SKU: "W", Quantity: 7, ParseErr: errors.New(`invalid quantity "7,5"`)},
	}
	malformed := map[string]bool{"": true, "Z": true, "W": true}
	want := map[string]int64{"X@" + models.UnassignedLocation: 5, "X@SKL-0": 1, "Y@SKL-0": 6}

	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		f := newFixture(t, "SKL-0")
		order := rng.Perm(len(entries))
		shuffled := make([]ImportEntry, len(entries))
		for i, j := range order {
			shuffled[i] = entries[j]
		}

		res, err := f.svc.ImportBatch(context.Background(), shuffled, "", "importer")
		if err != nil {
			t.Fatalf("order %v: ImportBatch failed: %v", order, err)
		}
		if res.Imported != 4 || res.Failed != 3 {
			t.Fatalf("order %v: expected 4 imported and 3 failed, got %+v", order, res)
		}

		got := map[string]int64{}
		for i, r := range res.Results {
			if r.Index != i {
				t.Fatalf("order %v: result %d reports index %d", order, i, r.Index)
			}
			if malformed[shuffled[i].SKU] != !r.OK() {
				t.Errorf("order %v: entry %d (%q) ok=%v", order, i, shuffled[i].SKU, r.OK())
			}
			if r.OK() {
				key := r.SKU + "@" + r.Location
				got[key] = f.qty(t, r.ProductID, r.Location)
			}
		}
		for key, q := range want {
			if got[key] != q {
				t.Errorf("order %v: expected %s=%d, got %d", order, key, q, got[key])
			}
		}
	}
}

func TestImportBatchAddsToExistingProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "SKL-0")
	p := f.seed(t, "A-1", "SKL-0", 3)

	res, err := f.svc.ImportBatch(ctx, []ImportEntry{
		{SKU: " A-1 ", Quantity: 4, Location: "SKL-0"},
		{SKU: "A-1", Quantity: 1, Location: "MISSING"},
	}, "", "importer")
	if err != nil {
		t.Fatalf("ImportBatch failed: %v", err)
	}
	if res.BatchID == "" {
		t.Error("expected a generated batch id")
	}
	if res.Imported != 1 || res.Results[0].Created || res.Results[0].ProductID != p.ID {
		t.Errorf("expected the existing product to be topped up, got %+v", res.Results[0])
	}
	if !errors.Is(res.Results[1].Err, ErrMalformedEntry) {
		t.Errorf("expected unknown location to be malformed, got %v", res.Results[1].Err)
	}
	if got := f.qty(t, p.ID, "SKL-0"); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
}

func TestImportBatchCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.svc.ImportBatch(ctx, []ImportEntry{{SKU: "X", Quantity: 1}, {SKU: "Y", Quantity: 1}}, "b", "importer")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.Imported != 0 || res.Failed != 2 || len(res.Results) != 2 {
		t.Errorf("expected every entry reported as not attempted, got %+v", res)
	}
	if seq, _ := f.ledger.LastSeq(context.Background()); seq != 0 {
		t.Errorf("expected no events, got %d", seq)
	}
}

func TestAdjust(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "L1")
	p := f.seed(t, "P", "L1", 3)

	if _, err := f.svc.Adjust(ctx, AdjustRequest{ProductID: p.ID, Location: "L1", Delta: -5, Reason: "damaged"}); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if _, err := f.svc.Adjust(ctx, AdjustRequest{ProductID: p.ID, Location: "L1", Delta: 0}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	ev, err := f.svc.Adjust(ctx, AdjustRequest{ProductID: p.ID, Location: "L1", Delta: -3, Reason: "sold", Actor: "bob"})
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if ev.Kind != models.EventAdjust || ev.Delta != -3 || *ev.ToQtyAfter != 0 || ev.Reason != "sold" {
		t.Errorf("unexpected event %+v", ev)
	}

	// Zeroed rows stay in place.
	levels, _ := f.svc.StockByProduct(ctx, p.ID)
	if len(levels) != 1 || levels[0].Quantity != 0 {
		t.Errorf("expected a retained zero row, got %+v", levels)
	}
}

func TestPositiveAdjustUnarchives(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "L1")
	p := f.seed(t, "P", "L1", 1)

	if _, err := f.svc.Adjust(ctx, AdjustRequest{ProductID: p.ID, Location: "L1", Delta: -1}); err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	if _, err := f.catalog.Archive(ctx, p.ID); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if _, err := f.svc.Adjust(ctx, AdjustRequest{ProductID: p.ID, Location: "L1", Delta: 2}); err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}

	got, _ := f.catalog.GetProduct(ctx, p.ID)
	if got.Archived {
		t.Error("expected a positive adjust to unarchive the product")
	}
}

func TestCorrectTo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "L1")
	p := f.seed(t, "P", "L1", 10)

	_, err := f.svc.CorrectTo(ctx, CountCorrection{ProductID: p.ID, Location: "L1", Counted: 8, Expected: 9, SessionID: "s1"})
	if !errors.Is(err, ErrConcurrentChange) {
		t.Fatalf("expected ErrConcurrentChange, got %v", err)
	}

	ev, err := f.svc.CorrectTo(ctx, CountCorrection{ProductID: p.ID, Location: "L1", Counted: 8, Expected: 10, SessionID: "s1"})
	if err != nil {
		t.Fatalf("CorrectTo failed: %v", err)
	}
	if ev.Kind != models.EventCountCorrection || ev.Delta != -2 || ev.CorrelationID != "s1" {
		t.Errorf("unexpected event %+v", ev)
	}

	ev, err = f.svc.CorrectTo(ctx, CountCorrection{ProductID: p.ID, Location: "L1", Counted: 8, Expected: 8, SessionID: "s1"})
	if err != nil || ev.Seq != 0 {
		t.Errorf("expected no event when the count matches, got %+v, %v", ev, err)
	}
}

func TestConcurrentMovesKeepInvariants(t *testing.T) {
	ctx := context.Background()
	locations := []string{"A", "B", "C"}
	f := newFixture(t, locations...)
	p := f.seed(t, "P", "A", 50)
	start, _ := f.ledger.LastSeq(ctx)

	var (
		wg        sync.WaitGroup
		committed atomic.Int64
	)
	for w := 0; w < 20; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 50; i++ {
				from := locations[rng.Intn(len(locations))]
				to := locations[rng.Intn(len(locations))]
				if from == to {
					continue
				}
				_, err := f.svc.Move(ctx, MoveRequest{ProductID: p.ID, From: from, To: to, Quantity: int64(rng.Intn(5) + 1)})
				if err == nil {
					committed.Add(1)
				} else if !errors.Is(err, ErrInsufficientStock) {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}(int64(w))
	}
	wg.Wait()

	var total int64
	for _, l := range locations {
		q := f.qty(t, p.ID, l)
		if q < 0 {
			t.Errorf("negative quantity %d at %s", q, l)
		}
		total += q
	}
	if total != 50 {
		t.Errorf("expected moves to conserve 50 units, got %d", total)
	}
	end, _ := f.ledger.LastSeq(ctx)
	if end-start != committed.Load() {
		t.Errorf("expected one event per committed move: %d events, %d moves", end-start, committed.Load())
	}
}

func TestOppositeMovesDoNotDeadlock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A", "B")
	p := f.seed(t, "P", "A", 100)
	if _, err := f.svc.Move(ctx, MoveRequest{ProductID: p.ID, From: "A", To: "B", Quantity: 50}); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, _ = f.svc.Move(ctx, MoveRequest{ProductID: p.ID, From: "A", To: "B", Quantity: 1})
			}()
			go func() {
				defer wg.Done()
				_, _ = f.svc.Move(ctx, MoveRequest{ProductID: p.ID, From: "B", To: "A", Quantity: 1})
			}()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("opposite moves did not finish; suspected deadlock")
	}
	if a, b := f.qty(t, p.ID, "A"), f.qty(t, p.ID, "B"); a+b != 100 {
		t.Errorf("expected 100 units across A and B, got %d", a+b)
	}
}

func TestKeyLocksAreReleased(t *testing.T) {
	locks := newKeyLocks()
	unlock := locks.Lock(lockKey{2, "B"}, lockKey{1, "A"}, lockKey{1, "A"})
	if locks.size() != 2 {
		t.Errorf("expected 2 held keys, got %d", locks.size())
	}
	unlock()
	if locks.size() != 0 {
		t.Errorf("expected lock table to be empty, got %d", locks.size())
	}
}
