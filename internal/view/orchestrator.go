// Package view recomputes the read-only projections the presentation
// layer consumes: summary totals, the filtered table, the two chart
// series and the monthly summary. Recomputation is full, not
// incremental, and runs after every store mutation and every remote
// snapshot.
package view

import (
	"context"
	"log/slog"
	"sync"

	"spendtrack/internal/core"
)

// Projections is the immutable snapshot handed to consumers after
// every refresh. Plain data, no behavior.
type Projections struct {
	// Generation increments on every refresh; cheap cache invalidation
	// key for anything derived from a snapshot.
	Generation     uint64                `json:"generation"`
	MonthOptions   []string              `json:"monthOptions"`
	Summary        core.Summary          `json:"summary"`
	Rows           []core.Transaction    `json:"rows"`
	CategorySeries []core.CategoryTotals `json:"categorySeries"`
	MonthlySeries  []core.MonthBucket    `json:"monthlySeries"`
	MonthlyRows    []MonthlyRow          `json:"monthlyRows"`
}

// MonthlyRow is one line of the monthly summary table, newest month
// first.
type MonthlyRow struct {
	Label   string  `json:"label"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
}

// Consumer receives each new projection snapshot. A panicking consumer
// is logged and skipped; it never breaks the refresh for the others.
type Consumer interface {
	Render(p Projections)
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(p Projections)

func (f ConsumerFunc) Render(p Projections) { f(p) }

// Orchestrator runs the fixed refresh sequence: month options, summary
// totals, filtered table, chart series, monthly table. Each step is
// isolated; a failure is logged and the remaining steps still execute.
type Orchestrator struct {
	categories []string

	mu        sync.Mutex
	filter    core.Filter
	records   []core.Transaction
	latest    Projections
	consumers []Consumer
}

func New(categories []string) *Orchestrator {
	if categories == nil {
		categories = core.DefaultCategories
	}
	return &Orchestrator{categories: categories}
}

// Subscribe registers a consumer for future snapshots. If a refresh
// already happened the consumer immediately receives the latest one.
func (o *Orchestrator) Subscribe(c Consumer) {
	o.mu.Lock()
	o.consumers = append(o.consumers, c)
	latest := o.latest
	o.mu.Unlock()
	if latest.Generation > 0 {
		deliver(c, latest)
	}
}

// Latest returns the most recent snapshot.
func (o *Orchestrator) Latest() Projections {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.latest
}

// Filter returns the currently selected table filter.
func (o *Orchestrator) Filter() core.Filter {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.filter
}

// SetFilter changes the table filter and re-runs the pipeline on the
// last known records.
func (o *Orchestrator) SetFilter(ctx context.Context, f core.Filter) {
	o.mu.Lock()
	o.filter = f
	records := o.records
	o.mu.Unlock()
	o.Refresh(ctx, records)
}

// Refresh recomputes every projection from the given snapshot and
// publishes the result to all consumers.
func (o *Orchestrator) Refresh(ctx context.Context, records []core.Transaction) {
	o.mu.Lock()
	o.records = append([]core.Transaction(nil), records...)
	p := o.recompute(ctx, o.records, o.filter)
	p.Generation = o.latest.Generation + 1
	o.latest = p
	consumers := append([]Consumer(nil), o.consumers...)
	o.mu.Unlock()

	for _, c := range consumers {
		deliver(c, p)
	}
}

func (o *Orchestrator) recompute(ctx context.Context, records []core.Transaction, f core.Filter) Projections {
	var p Projections
	steps := []struct {
		name string
		fn   func()
	}{
		{"month_options", func() { p.MonthOptions = core.MonthKeys(records) }},
		{"summary", func() { p.Summary = core.Summarize(records) }},
		{"table", func() { p.Rows = core.Apply(records, f) }},
		{"charts", func() {
			p.CategorySeries = core.ByCategory(records, o.categories)
			p.MonthlySeries = core.ByMonth(records)
		}},
		{"monthly_table", func() { p.MonthlyRows = monthlyRows(p.MonthlySeries, f.Month) }},
	}
	for _, step := range steps {
		runStep(ctx, step.name, step.fn)
	}
	return p
}

func runStep(ctx context.Context, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "refresh step failed", "step", name, "panic", r)
		}
	}()
	fn()
}

func deliver(c Consumer, p Projections) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("view consumer failed", "panic", r)
		}
	}()
	c.Render(p)
}

// monthlyRows turns the ascending month buckets into summary-table
// rows, newest first, narrowed to the selected month when the month
// filter is set.
func monthlyRows(buckets []core.MonthBucket, monthFilter string) []MonthlyRow {
	var selected string
	if monthFilter != "" && monthFilter != core.FilterAll {
		m, ok := core.ParseMonthLabel(monthFilter)
		if !ok {
			return nil
		}
		selected = m.Format("2006-01")
	}

	rows := make([]MonthlyRow, 0, len(buckets))
	for i := len(buckets) - 1; i >= 0; i-- {
		b := buckets[i]
		if selected != "" && b.Key != selected {
			continue
		}
		rows = append(rows, MonthlyRow{
			Label:   b.Label,
			Income:  b.Income,
			Expense: b.Expense,
			Balance: b.Income - b.Expense,
		})
	}
	return rows
}
