// Package remote defines the ports to the per-user cloud collection.
// Outbound adapters (Firestore, in-memory) live in subpackages.
package remote

import (
	"context"
	"time"

	"spendtrack/internal/core"
)

// Document is one expense document in a user's remote collection.
type Document struct {
	ID          string
	Type        string
	Category    string
	Amount      float64
	Description string
	Date        string
	// CreatedAt is server-assigned and defines the collection order.
	CreatedAt time.Time
}

type (
	// Collection is the per-user remote expense collection.
	Collection interface {
		// List returns uid's documents ordered by server creation time.
		List(ctx context.Context, uid string) ([]Document, error)
		// Add creates a document and returns its server-assigned ID.
		Add(ctx context.Context, uid string, doc Document) (string, error)
		// Delete removes a document by ID. Deleting an unknown ID is
		// not an error.
		Delete(ctx context.Context, uid, id string) error
		// Watch delivers a full snapshot of uid's collection after
		// every remote change until ctx is cancelled.
		Watch(ctx context.Context, uid string, fn func([]Document)) error
	}

	// ProfileStore keeps per-user settings alongside the collection.
	ProfileStore interface {
		SaveTheme(ctx context.Context, uid, theme string) error
		// LoadTheme returns "" when the user has no saved theme.
		LoadTheme(ctx context.Context, uid string) (string, error)
	}
)

// Transaction converts a remote document to the in-memory record
// shape. A document without a date falls back to its creation time so
// it still lands in a month bucket.
func (d Document) Transaction() core.Transaction {
	date := d.Date
	if date == "" && !d.CreatedAt.IsZero() {
		date = d.CreatedAt.Format(time.RFC3339)
	}
	return core.Transaction{
		ID:          d.ID,
		Type:        core.Type(d.Type),
		Category:    d.Category,
		Amount:      d.Amount,
		Description: d.Description,
		Date:        date,
	}
}

// FromTransaction converts a record for a remote create. The
// identifier is dropped: the collection assigns its own.
func FromTransaction(t core.Transaction) Document {
	return Document{
		Type:        string(t.Type),
		Category:    t.Category,
		Amount:      t.Amount,
		Description: t.Description,
		Date:        t.Date,
	}
}

// Transactions converts a full remote snapshot.
func Transactions(docs []Document) []core.Transaction {
	out := make([]core.Transaction, len(docs))
	for i, d := range docs {
		out[i] = d.Transaction()
	}
	return out
}
