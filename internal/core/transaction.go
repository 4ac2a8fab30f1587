package core

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Income  Type = "income"
	Expense Type = "expense"
)

// LocalIDPrefix marks identifiers generated on this device before the
// remote collection has assigned a document ID.
const LocalIDPrefix = "local-"

type (
	Type string

	// Transaction is one income or expense entry. Amount is signed:
	// income entries are stored positive, expense entries negative.
	// Records ingested from the remote collection or from an old local
	// database are not re-validated, so the sign and Type may disagree;
	// aggregation trusts Type for bucketing and the amount's magnitude
	// for totals.
	Transaction struct {
		ID          string  `json:"id"`
		Type        Type    `json:"type"`
		Category    string  `json:"category"`
		Amount      float64 `json:"amount"`
		Description string  `json:"description"`
		Date        string  `json:"date"`
	}

	// Draft is user input for a new transaction, before the sign
	// convention and the identifier are applied.
	Draft struct {
		Type        string
		Category    string
		Amount      float64
		Description string
		Date        string
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid transaction type")
)

// ParseType normalizes a user-supplied type string. Matching is
// case-insensitive; the stored form is always lowercase.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	default:
		return "", ErrInvalidType
	}
}

// Kind returns the record's type normalized to lowercase, for
// bucketing records that arrived with unexpected casing.
func (t Transaction) Kind() Type {
	return Type(strings.ToLower(string(t.Type)))
}

func (d Draft) Validate() error {
	if _, err := ParseType(d.Type); err != nil {
		return err
	}
	if math.IsNaN(d.Amount) || math.IsInf(d.Amount, 0) || d.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NewTransaction builds a Transaction from a draft: the amount sign is
// derived from the type regardless of the sign the user entered, and a
// local- prefixed identifier is assigned pending reconciliation with a
// remote document ID.
func NewTransaction(d Draft) (Transaction, error) {
	if err := d.Validate(); err != nil {
		return Transaction{}, err
	}
	typ, _ := ParseType(d.Type)
	amount := math.Abs(d.Amount)
	if typ == Expense {
		amount = -amount
	}
	return Transaction{
		ID:          NewLocalID(),
		Type:        typ,
		Category:    d.Category,
		Amount:      amount,
		Description: d.Description,
		Date:        d.Date,
	}, nil
}

// NewLocalID returns a fresh temporary identifier.
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

// IsLocalID reports whether id was generated locally and still awaits
// reconciliation with a remote document ID.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDate parses a record's date string. Plain dates keep their
// calendar day as written; full timestamps are converted to the local
// calendar before bucketing. Records whose date does not parse are
// excluded from date-bucketed views but stay in the list and totals.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(time.Local), true
		}
	}
	return time.Time{}, false
}
