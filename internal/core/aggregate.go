package core

import (
	"math"
	"sort"
	"time"
)

// Summary holds the overall totals. Balance is the direct sum of every
// signed amount, not Income-Expense, so a record whose sign disagrees
// with its type still contributes correctly.
type Summary struct {
	Balance float64 `json:"balance"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// CategoryTotals aggregates one category of the presented set.
type CategoryTotals struct {
	Category string  `json:"category"`
	Income   float64 `json:"income"`
	Expense  float64 `json:"expense"`
}

// MonthBucket aggregates one calendar month.
type MonthBucket struct {
	Key     string  `json:"key"`   // "2006-01"
	Label   string  `json:"label"` // "Jan 2006"
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// Summarize computes the overall totals. Amounts equal to zero land in
// neither the income nor the expense bucket.
func Summarize(records []Transaction) Summary {
	var s Summary
	for _, t := range records {
		s.Balance += t.Amount
		switch {
		case t.Amount > 0:
			s.Income += t.Amount
		case t.Amount < 0:
			s.Expense += -t.Amount
		}
	}
	return s
}

// ByCategory aggregates per category of the presented set, in the
// order given. Category matching is an exact equality match on the raw
// stored value; records with categories outside the set are excluded
// from this view only. The type (compared case-insensitively) decides
// the bucket, the amount's magnitude the contribution.
func ByCategory(records []Transaction, categories []string) []CategoryTotals {
	out := make([]CategoryTotals, len(categories))
	index := make(map[string]int, len(categories))
	for i, c := range categories {
		out[i].Category = c
		index[c] = i
	}
	for _, t := range records {
		i, ok := index[t.Category]
		if !ok || t.Amount == 0 {
			continue
		}
		switch t.Kind() {
		case Income:
			out[i].Income += math.Abs(t.Amount)
		case Expense:
			out[i].Expense += math.Abs(t.Amount)
		}
	}
	return out
}

// ByMonth groups records by their date truncated to year and month on
// the local calendar. Records whose date does not parse are left out.
// Buckets are returned ascending by month, the order chart series
// want; callers needing the summary-table order iterate in reverse.
func ByMonth(records []Transaction) []MonthBucket {
	buckets := make(map[string]*MonthBucket)
	for _, t := range records {
		d, ok := ParseDate(t.Date)
		if !ok || t.Amount == 0 {
			continue
		}
		key := d.Format("2006-01")
		b := buckets[key]
		if b == nil {
			b = &MonthBucket{Key: key, Label: d.Format("Jan 2006")}
			buckets[key] = b
		}
		switch t.Kind() {
		case Income:
			b.Income += math.Abs(t.Amount)
		case Expense:
			b.Expense += math.Abs(t.Amount)
		}
	}
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]MonthBucket, len(keys))
	for i, k := range keys {
		out[i] = *buckets[k]
	}
	return out
}

// MonthKeys returns the distinct month labels ("January 2006") present
// in the records, newest first. Ordering is chronological, derived
// from the underlying month, not lexicographic.
func MonthKeys(records []Transaction) []string {
	months := make(map[string]time.Time)
	for _, t := range records {
		d, ok := ParseDate(t.Date)
		if !ok {
			continue
		}
		m := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
		months[m.Format("January 2006")] = m
	}
	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return months[keys[i]].After(months[keys[j]])
	})
	return keys
}

// ParseMonthLabel parses a month filter label as produced by
// MonthKeys.
func ParseMonthLabel(label string) (time.Time, bool) {
	t, err := time.Parse("January 2006", label)
	return t, err == nil
}
