package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

func importEvent(productID int64, location string, qty int64) models.StockEvent {
	return models.StockEvent{Kind: models.EventImport, ProductID: productID, To: &location, Delta: qty}
}

func moveEvent(productID int64, from, to string, qty int64) models.StockEvent {
	return models.StockEvent{Kind: models.EventMove, ProductID: productID, From: &from, To: &to, Delta: qty}
}

func TestInMemoryLedger_WritersOnlyWaitOnTheirKeys(t *testing.T) {
	ctx := context.Background()
	ledger := NewInMemoryLedgerRepository(nil)
	if _, err := ledger.Apply(ctx, importEvent(1, "A", 5)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	held, _ := ledger.cell(stockKey{1, "A"})
	held.mu.Lock()

	other := make(chan error, 1)
	go func() {
		_, err := ledger.Apply(ctx, importEvent(2, "A", 1))
		other <- err
	}()
	select {
	case err := <-other:
		if err != nil {
			t.Fatalf("Apply on another key failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("a write on another key waited on an unrelated lock")
	}

	same := make(chan error, 1)
	go func() {
		_, err := ledger.Apply(ctx, moveEvent(1, "A", "B", 2))
		same <- err
	}()
	select {
	case <-same:
		t.Fatal("a write on a held key did not wait")
	case <-time.After(50 * time.Millisecond):
	}

	held.mu.Unlock()
	if err := <-same; err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if q, _ := ledger.GetQuantity(ctx, 1, "A"); q != 3 {
		t.Errorf("expected 3 at A, got %d", q)
	}
}

func TestInMemoryLedger_ConcurrentMovesKeepInvariants(t *testing.T) {
	ctx := context.Background()
	ledger := NewInMemoryLedgerRepository(nil)
	locations := []string{"A", "B", "C"}
	for p := int64(1); p <= 3; p++ {
		for _, l := range locations {
			if _, err := ledger.Apply(ctx, importEvent(p, l, 10)); err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 300; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := int64(i%3 + 1)
			from, to := locations[i%3], locations[(i+1+i/3)%3]
			if from == to {
				to = locations[(i+2)%3]
			}
			_, err := ledger.Apply(ctx, moveEvent(p, from, to, int64(i%4+1)))
			var negative *NegativeQuantityError
			if err != nil && !errors.As(err, &negative) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	events, _ := ledger.EventsAfter(ctx, 0, 0)
	replayed := map[string]int64{}
	for i, e := range events {
		if e.Seq != int64(i+1) {
			t.Fatalf("expected gap-free sequence, got seq %d at position %d", e.Seq, i)
		}
		for _, l := range e.Legs() {
			key := fmt.Sprintf("%d@%s", e.ProductID, l.Location)
			replayed[key] += l.Delta
			if replayed[key] < 0 {
				t.Fatalf("replay went negative at seq %d for %s", e.Seq, key)
			}
		}
	}

	for p := int64(1); p <= 3; p++ {
		total, _ := ledger.TotalByProduct(ctx, p)
		if total != 30 {
			t.Errorf("product %d: expected total 30, got %d", p, total)
		}
		for _, l := range locations {
			q, _ := ledger.GetQuantity(ctx, p, l)
			if want := replayed[fmt.Sprintf("%d@%s", p, l)]; q != want {
				t.Errorf("product %d at %s: stored %d, replayed %d", p, l, q, want)
			}
		}
	}
}

func TestInMemoryLedger_RejectedWriteLeavesNoRow(t *testing.T) {
	ctx := context.Background()
	ledger := NewInMemoryLedgerRepository(nil)
	here := "A"

	_, err := ledger.Apply(ctx, models.StockEvent{Kind: models.EventAdjust, ProductID: 1, To: &here, Delta: -1})
	var negative *NegativeQuantityError
	if !errors.As(err, &negative) || negative.Available != 0 {
		t.Fatalf("expected a NegativeQuantityError, got %v", err)
	}
	if levels, _ := ledger.StockByLocation(ctx, "A"); len(levels) != 0 {
		t.Errorf("expected no stock rows, got %+v", levels)
	}

	// A pair that was emptied stays listed at zero.
	ledger.Apply(ctx, importEvent(1, "A", 2))
	ledger.Apply(ctx, models.StockEvent{Kind: models.EventAdjust, ProductID: 1, To: &here, Delta: -2})
	levels, _ := ledger.StockByLocation(ctx, "A")
	if len(levels) != 1 || levels[0].Quantity != 0 {
		t.Errorf("expected a retained zero row, got %+v", levels)
	}
}
