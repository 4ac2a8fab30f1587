package core

import "strconv"

// DefaultCategories is the presented category set. Stored categories
// are not validated against it; a record with an unknown category
// still counts toward the list and the totals, it just falls outside
// the per-category view.
var DefaultCategories = []string{
	"food", "rent", "transport", "salary", "gym", "entertainment", "others",
}

// FormatAmount renders a signed amount with two decimals for display.
func FormatAmount(a float64) string {
	return strconv.FormatFloat(a, 'f', 2, 64)
}
