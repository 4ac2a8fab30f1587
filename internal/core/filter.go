package core

import (
	"sort"
	"strings"
	"time"
)

// FilterAll is the wildcard value accepted by every table filter.
const FilterAll = "all"

// Filter narrows the transaction table. Empty or "all" fields match
// everything. Month is a label as produced by MonthKeys.
type Filter struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	Month    string `json:"month"`
}

func active(v string) bool {
	return v != "" && v != FilterAll
}

// Apply returns the records matching f, newest date first. The sort is
// stable, so records sharing a date (and records with unparseable
// dates, which compare equal to everything) keep their insertion
// order. Category matching is equality on the raw stored value; type
// matching is case-insensitive.
func Apply(records []Transaction, f Filter) []Transaction {
	var month time.Time
	if active(f.Month) {
		var ok bool
		month, ok = ParseMonthLabel(f.Month)
		if !ok {
			return nil
		}
	}
	wantType := Type(strings.ToLower(f.Type))

	out := make([]Transaction, 0, len(records))
	dates := make(map[string]time.Time, len(records))
	for _, t := range records {
		if active(f.Type) && t.Kind() != wantType {
			continue
		}
		if active(f.Category) && t.Category != f.Category {
			continue
		}
		d, parsed := ParseDate(t.Date)
		if parsed {
			dates[t.ID] = d
		}
		if active(f.Month) {
			if !parsed || d.Year() != month.Year() || d.Month() != month.Month() {
				continue
			}
		}
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, oki := dates[out[i].ID]
		dj, okj := dates[out[j].ID]
		if !oki || !okj {
			return false
		}
		return di.After(dj)
	})
	return out
}
