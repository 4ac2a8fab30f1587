// Package store owns the canonical in-memory transaction list. All
// mutations go through Add, Remove, ReconcileID and ReplaceAll;
// nothing else may splice the list. The local database and the remote
// collection are downstream mirrors, never sources of truth while the
// process is running.
package store

import (
	"context"
	"log/slog"
	"sync"

	"spendtrack/internal/core"
)

// Persister mirrors the canonical list to durable local storage. Each
// mutation persists synchronously before the refresh that reflects it,
// so the durable copy and the views never diverge observably.
type Persister interface {
	SaveTransactions(ctx context.Context, records []core.Transaction) error
}

// Refresher is invoked with a snapshot of the new state after every
// mutation has been persisted.
type Refresher interface {
	Refresh(ctx context.Context, records []core.Transaction)
}

// Store is the transaction store. Mutations run to completion under a
// single lock: persist, then refresh, before the next mutation is
// admitted.
type Store struct {
	mu        sync.Mutex
	records   []core.Transaction
	persister Persister
	refresher Refresher
}

func New(p Persister, r Refresher) *Store {
	return &Store{persister: p, refresher: r}
}

// Add validates the draft, applies the sign convention, assigns a
// temporary local identifier and appends. The stored record is
// returned so the caller can reconcile the identifier after a remote
// create. Invalid input leaves the store untouched.
func (s *Store) Add(ctx context.Context, d core.Draft) (core.Transaction, error) {
	tx, err := core.NewTransaction(d)
	if err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, tx)
	s.commit(ctx)
	return tx, nil
}

// Remove deletes the record with the given id. Removing an unknown id
// is a no-op, not an error. The removed record is returned so the
// caller can issue a remote delete.
func (s *Store) Remove(ctx context.Context, id string) (core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.records {
		if t.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			s.commit(ctx)
			return t, true
		}
	}
	return core.Transaction{}, false
}

// ReconcileID swaps a temporary local identifier for the remote
// document ID in place, preserving the record's position. An unknown
// tempID is a no-op, which makes duplicate or out-of-order
// reconciliations harmless.
func (s *Store) ReconcileID(ctx context.Context, tempID, newID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == tempID {
			s.records[i].ID = newID
			s.commit(ctx)
			return true
		}
	}
	return false
}

// ReplaceAll swaps the whole list, used when a remote snapshot or a
// sign-out supersedes local state.
func (s *Store) ReplaceAll(ctx context.Context, records []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records[:0:0], records...)
	s.commit(ctx)
}

// All returns a copy of the current list in insertion order.
func (s *Store) All() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() []core.Transaction {
	return append([]core.Transaction(nil), s.records...)
}

// commit persists the new state and triggers a view refresh. A failed
// persist (storage quota, disk trouble) is logged and swallowed: the
// in-memory list stays authoritative either way. Called with the lock
// held.
func (s *Store) commit(ctx context.Context) {
	snapshot := s.snapshot()
	if s.persister != nil {
		if err := s.persister.SaveTransactions(ctx, snapshot); err != nil {
			slog.ErrorContext(ctx, "persist transactions failed, in-memory state remains authoritative",
				"error", err, "count", len(snapshot))
		}
	}
	if s.refresher != nil {
		s.refresher.Refresh(ctx, snapshot)
	}
}
