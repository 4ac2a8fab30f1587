package core

import "testing"

func TestApplyFilters(t *testing.T) {
	records := []Transaction{
		tx("a", Income, "salary", 1000, "2024-01-05"),
		tx("b", Expense, "food", -50, "2024-01-10"),
		tx("c", Expense, "rent", -800, "2024-02-01"),
		tx("d", Expense, "food", -25, "2024-02-14"),
	}

	got := Apply(records, Filter{Type: "expense", Category: "food", Month: FilterAll})
	if len(got) != 2 {
		t.Fatalf("got %d records", len(got))
	}
	// Descending by date.
	if got[0].ID != "d" || got[1].ID != "b" {
		t.Fatalf("order: %v, %v", got[0].ID, got[1].ID)
	}

	got = Apply(records, Filter{Month: "February 2024"})
	if len(got) != 2 || got[0].ID != "d" || got[1].ID != "c" {
		t.Fatalf("month filter: %+v", got)
	}

	got = Apply(records, Filter{})
	if len(got) != 4 {
		t.Fatalf("wildcard filter dropped records: %d", len(got))
	}
}

func TestApplyStableOnTiedDates(t *testing.T) {
	records := []Transaction{
		tx("first", Expense, "food", -1, "2024-01-10"),
		tx("second", Expense, "food", -2, "2024-01-10"),
		tx("third", Expense, "food", -3, "2024-01-10"),
	}
	got := Apply(records, Filter{})
	for i, want := range []string{"first", "second", "third"} {
		if got[i].ID != want {
			t.Fatalf("tie order broken: %v", got)
		}
	}
}

func TestApplyKeepsUnparseableDatesInPlace(t *testing.T) {
	records := []Transaction{
		tx("a", Expense, "food", -1, "nope"),
		tx("b", Expense, "food", -2, "2024-01-10"),
	}
	got := Apply(records, Filter{})
	if len(got) != 2 {
		t.Fatalf("bad-date record dropped")
	}

	// A month filter excludes records without a parseable date.
	got = Apply(records, Filter{Month: "January 2024"})
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("got %+v", got)
	}
}

func TestApplyUnknownMonthLabelMatchesNothing(t *testing.T) {
	records := []Transaction{tx("a", Expense, "food", -1, "2024-01-10")}
	if got := Apply(records, Filter{Month: "Smarch 2024"}); len(got) != 0 {
		t.Fatalf("got %+v", got)
	}
}
