package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rogerio-castellano/warehouse-ledger/internal/repo"
)

func source(n int64) func(context.Context, int64, int) ([]int64, error) {
	return func(_ context.Context, after int64, limit int) ([]int64, error) {
		var out []int64
		for i := after + 1; i <= n && len(out) < limit; i++ {
			out = append(out, i)
		}
		return out, nil
	}
}

func TestDrainAdvancesCursor(t *testing.T) {
	ctx := context.Background()
	cursors := repo.NewInMemoryLedgerRepository(nil)
	var seen []int64

	r := &Runner[int64]{
		Name:      "test",
		Cursors:   cursors,
		Fetch:     source(7),
		BatchSize: 3,
		Handle: func(_ context.Context, items []int64) (int64, error) {
			seen = append(seen, items...)
			return items[len(items)-1], nil
		},
	}
	if err := r.Drain(ctx); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(seen) != 7 {
		t.Errorf("expected 7 items, got %v", seen)
	}
	if pos, _ := cursors.Cursor(ctx, "test"); pos != 7 {
		t.Errorf("expected cursor at 7, got %d", pos)
	}

	// Nothing new: nothing handled.
	seen = nil
	if err := r.Drain(ctx); err != nil || len(seen) != 0 {
		t.Errorf("expected an idle drain, got %v, %v", seen, err)
	}
}

func TestPollKeepsUnhandledItems(t *testing.T) {
	ctx := context.Background()
	cursors := repo.NewInMemoryLedgerRepository(nil)
	errTransient := errors.New("transport down")
	fail := true
	var handled []int64

	r := &Runner[int64]{
		Name:    "test",
		Cursors: cursors,
		Fetch:   source(5),
		Handle: func(_ context.Context, items []int64) (int64, error) {
			var last int64
			for _, it := range items {
				if it == 3 && fail {
					return last, errTransient
				}
				handled = append(handled, it)
				last = it
			}
			return last, nil
		},
	}

	if _, err := r.Poll(ctx); !errors.Is(err, errTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if pos, _ := cursors.Cursor(ctx, "test"); pos != 2 {
		t.Fatalf("expected cursor to stop at 2, got %d", pos)
	}

	fail = false
	if _, err := r.Poll(ctx); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	want := []int64{1, 2, 3, 4, 5}
	if len(handled) != len(want) {
		t.Fatalf("expected %v, got %v", want, handled)
	}
	for i := range want {
		if handled[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, handled)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner[int64]{
		Name:     "test",
		Cursors:  repo.NewInMemoryLedgerRepository(nil),
		Fetch:    source(1),
		Interval: 10 * time.Millisecond,
		Handle: func(_ context.Context, items []int64) (int64, error) {
			cancel()
			return items[len(items)-1], nil
		},
	}

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
