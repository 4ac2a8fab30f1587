package store

import (
	"context"
	"errors"
	"testing"

	"spendtrack/internal/core"
)

type recordingPersister struct {
	saves [][]core.Transaction
	err   error
}

func (p *recordingPersister) SaveTransactions(_ context.Context, records []core.Transaction) error {
	p.saves = append(p.saves, records)
	return p.err
}

type recordingRefresher struct {
	refreshes [][]core.Transaction
}

func (r *recordingRefresher) Refresh(_ context.Context, records []core.Transaction) {
	r.refreshes = append(r.refreshes, records)
}

func TestAddPersistsThenRefreshes(t *testing.T) {
	ctx := context.Background()
	p := &recordingPersister{}
	r := &recordingRefresher{}
	s := New(p, r)

	tx, err := s.Add(ctx, core.Draft{Type: "income", Category: "salary", Amount: 1000, Date: "2024-01-05"})
	if err != nil {
		t.Fatal(err)
	}
	if tx.Amount != 1000 {
		t.Fatalf("amount = %v", tx.Amount)
	}
	if len(p.saves) != 1 || len(r.refreshes) != 1 {
		t.Fatalf("saves=%d refreshes=%d", len(p.saves), len(r.refreshes))
	}
	if len(s.All()) != 1 {
		t.Fatalf("all = %v", s.All())
	}
}

func TestAddRejectsInvalidDraftWithoutMutating(t *testing.T) {
	ctx := context.Background()
	p := &recordingPersister{}
	s := New(p, nil)

	if _, err := s.Add(ctx, core.Draft{Type: "income", Amount: 0}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("err = %v", err)
	}
	if len(p.saves) != 0 || len(s.All()) != 0 {
		t.Fatalf("invalid add mutated state")
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)
	tx, _ := s.Add(ctx, core.Draft{Type: "expense", Category: "food", Amount: 50, Date: "2024-01-10"})

	removed, ok := s.Remove(ctx, tx.ID)
	if !ok || removed.ID != tx.ID {
		t.Fatalf("removed = %+v, ok = %v", removed, ok)
	}
	for _, rec := range s.All() {
		if rec.ID == tx.ID {
			t.Fatalf("id still present after remove")
		}
	}

	// Removing an unknown id is a no-op, not an error.
	before := s.All()
	if _, ok := s.Remove(ctx, "missing"); ok {
		t.Fatalf("remove of unknown id reported success")
	}
	if len(s.All()) != len(before) {
		t.Fatalf("unknown remove changed state")
	}
}

func TestReconcileID(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)
	s.Add(ctx, core.Draft{Type: "income", Category: "salary", Amount: 10, Date: "2024-01-01"})
	tx, _ := s.Add(ctx, core.Draft{Type: "expense", Category: "food", Amount: 5, Date: "2024-01-02"})
	s.Add(ctx, core.Draft{Type: "expense", Category: "rent", Amount: 7, Date: "2024-01-03"})

	if !s.ReconcileID(ctx, tx.ID, "remote-123") {
		t.Fatalf("reconcile failed")
	}
	all := s.All()
	if all[1].ID != "remote-123" {
		t.Fatalf("position or id wrong: %+v", all)
	}
	if all[1].Amount != tx.Amount || all[1].Category != tx.Category || all[1].Date != tx.Date {
		t.Fatalf("other fields changed: %+v", all[1])
	}
	for _, rec := range all {
		if rec.ID == tx.ID {
			t.Fatalf("temporary id still present")
		}
	}

	// Duplicate reconciliation finds nothing and changes nothing.
	if s.ReconcileID(ctx, tx.ID, "remote-456") {
		t.Fatalf("stale reconcile reported success")
	}
}

func TestReplaceAllRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)
	s.Add(ctx, core.Draft{Type: "income", Category: "salary", Amount: 10, Date: "2024-01-01"})
	s.Add(ctx, core.Draft{Type: "expense", Category: "food", Amount: 5, Date: "2024-01-02"})

	before := s.All()
	s.ReplaceAll(ctx, s.All())
	after := s.All()
	if len(before) != len(after) {
		t.Fatalf("round trip changed length")
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("round trip changed record %d: %+v != %+v", i, before[i], after[i])
		}
	}
}

func TestPersistFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	p := &recordingPersister{err: errors.New("quota exceeded")}
	s := New(p, nil)

	if _, err := s.Add(ctx, core.Draft{Type: "income", Category: "salary", Amount: 10, Date: "2024-01-01"}); err != nil {
		t.Fatalf("persist failure surfaced to caller: %v", err)
	}
	if len(s.All()) != 1 {
		t.Fatalf("in-memory state lost after persist failure")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)
	s.Add(ctx, core.Draft{Type: "income", Category: "salary", Amount: 10, Date: "2024-01-01"})

	snap := s.All()
	snap[0].Amount = 999
	if s.All()[0].Amount == 999 {
		t.Fatalf("All leaked the internal slice")
	}
}
