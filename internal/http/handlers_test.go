package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"spendtrack/internal/cloudsync"
	"spendtrack/internal/core"
	"spendtrack/internal/remote/memory"
	"spendtrack/internal/session"
	"spendtrack/internal/store"
	"spendtrack/internal/view"
)

// fakeLocal satisfies both ThemeStore and cloudsync.LocalStore.
type fakeLocal struct {
	mu    sync.Mutex
	theme string
}

func (f *fakeLocal) SaveTheme(_ context.Context, theme string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.theme = theme
	return nil
}

func (f *fakeLocal) LoadTheme(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.theme, nil
}

func (f *fakeLocal) LoadTransactions(context.Context) ([]core.Transaction, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	views := view.New(nil)
	st := store.New(nil, views)
	sessions := session.NewManager()
	local := &fakeLocal{}
	backend := memory.New()
	adapter := cloudsync.New(st, local, sessions, cloudsync.Options{
		Remote:   backend,
		Profiles: backend,
	})

	s := NewServer("127.0.0.1:0", Deps{
		Store:    st,
		Views:    views,
		Sync:     adapter,
		Sessions: sessions,
		Themes:   local,
	})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, st
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return v
}

func TestCreateTransaction(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", createTransactionRequest{
		Type: "expense", Category: "food", Amount: 20, Description: "groceries", Date: "2024-03-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	tx := decodeBody[core.Transaction](t, rec)
	if !strings.HasPrefix(tx.ID, core.LocalIDPrefix) {
		t.Fatalf("ID = %q, want local prefix", tx.ID)
	}
	if tx.Amount != -20 {
		t.Fatalf("Amount = %v, want -20 for expense", tx.Amount)
	}

	list := doJSON(t, s, http.MethodGet, "/api/transactions", nil)
	records := decodeBody[[]core.Transaction](t, list)
	if len(records) != 1 || records[0].ID != tx.ID {
		t.Fatalf("records: %+v", records)
	}

	sum := decodeBody[core.Summary](t, doJSON(t, s, http.MethodGet, "/api/summary", nil))
	if sum.Expense != 20 || sum.Balance != -20 {
		t.Fatalf("summary: %+v", sum)
	}
}

func TestCreateTransactionRejectsInvalidInput(t *testing.T) {
	s, st := newTestServer(t)

	tests := []struct {
		name string
		req  createTransactionRequest
	}{
		{"zero amount", createTransactionRequest{Type: "expense", Category: "food", Amount: 0}},
		{"negative amount", createTransactionRequest{Type: "income", Category: "salary", Amount: -5}},
		{"unknown type", createTransactionRequest{Type: "transfer", Category: "food", Amount: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/transactions", tt.req)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d", rec.Code)
			}
		})
	}
	if len(st.All()) != 0 {
		t.Fatal("store should stay empty")
	}
}

func TestDeleteTransaction(t *testing.T) {
	s, st := newTestServer(t)

	tx, err := st.Add(context.Background(), core.Draft{Type: "income", Category: "salary", Amount: 100, Date: "2024-01-01"})
	if err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, s, http.MethodDelete, "/api/transactions/"+tx.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(st.All()) != 0 {
		t.Fatal("record should be removed")
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/transactions/"+tx.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestClearTransactions(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	if _, err := st.Add(ctx, core.Draft{Type: "expense", Category: "food", Amount: 5, Date: "2024-01-01"}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, s, http.MethodPost, "/api/transactions/clear", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(st.All()) != 0 {
		t.Fatal("store should be empty")
	}
}

func TestListTransactionsQueryFilters(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	for _, d := range []core.Draft{
		{Type: "expense", Category: "food", Amount: 10, Date: "2024-01-05"},
		{Type: "income", Category: "salary", Amount: 100, Date: "2024-01-10"},
		{Type: "expense", Category: "rent", Amount: 50, Date: "2024-02-01"},
	} {
		if _, err := st.Add(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	records := decodeBody[[]core.Transaction](t, doJSON(t, s, http.MethodGet, "/api/transactions?type=expense", nil))
	if len(records) != 2 {
		t.Fatalf("expense records: %+v", records)
	}
	// Newest first
	if records[0].Category != "rent" {
		t.Fatalf("order: %+v", records)
	}

	records = decodeBody[[]core.Transaction](t, doJSON(t, s, http.MethodGet, "/api/transactions?category=salary", nil))
	if len(records) != 1 || records[0].Type != core.Income {
		t.Fatalf("salary records: %+v", records)
	}

	records = decodeBody[[]core.Transaction](t, doJSON(t, s, http.MethodGet, "/api/transactions?month=February+2024", nil))
	if len(records) != 1 || records[0].Category != "rent" {
		t.Fatalf("february records: %+v", records)
	}
}

func TestListTransactionsCacheSurvivesRepeatReads(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	if _, err := st.Add(ctx, core.Draft{Type: "expense", Category: "food", Amount: 10, Date: "2024-01-05"}); err != nil {
		t.Fatal(err)
	}

	first := decodeBody[[]core.Transaction](t, doJSON(t, s, http.MethodGet, "/api/transactions", nil))
	second := decodeBody[[]core.Transaction](t, doJSON(t, s, http.MethodGet, "/api/transactions", nil))
	if len(first) != 1 || len(second) != 1 || first[0].ID != second[0].ID {
		t.Fatalf("first: %+v, second: %+v", first, second)
	}

	// A mutation bumps the generation; the stale cache must not serve.
	if _, err := st.Add(ctx, core.Draft{Type: "expense", Category: "rent", Amount: 50, Date: "2024-01-06"}); err != nil {
		t.Fatal(err)
	}
	third := decodeBody[[]core.Transaction](t, doJSON(t, s, http.MethodGet, "/api/transactions", nil))
	if len(third) != 2 {
		t.Fatalf("after mutation: %+v", third)
	}
}

func TestSetFilterNarrowsProjections(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	for _, d := range []core.Draft{
		{Type: "expense", Category: "food", Amount: 10, Date: "2024-01-05"},
		{Type: "income", Category: "salary", Amount: 100, Date: "2024-01-10"},
	} {
		if _, err := st.Add(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	rec := doJSON(t, s, http.MethodPut, "/api/filter", core.Filter{Type: "income"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	proj := decodeBody[view.Projections](t, doJSON(t, s, http.MethodGet, "/api/projections", nil))
	if len(proj.Rows) != 1 || proj.Rows[0].Category != "salary" {
		t.Fatalf("rows: %+v", proj.Rows)
	}
	// Summary stays global regardless of the filter
	if proj.Summary.Balance != 90 {
		t.Fatalf("summary: %+v", proj.Summary)
	}

	f := decodeBody[core.Filter](t, doJSON(t, s, http.MethodGet, "/api/filter", nil))
	if f.Type != "income" || f.Category != core.FilterAll {
		t.Fatalf("filter: %+v", f)
	}
}

func TestThemeRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/theme", nil)
	if got := decodeBody[themeRequest](t, rec); got.Theme != "light" {
		t.Fatalf("default theme = %q", got.Theme)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/theme", themeRequest{Theme: "dark"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/theme", nil)
	if got := decodeBody[themeRequest](t, rec); got.Theme != "dark" {
		t.Fatalf("theme = %q", got.Theme)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/theme", themeRequest{Theme: "sepia"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid theme status = %d", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	resp := decodeBody[sessionResponse](t, doJSON(t, s, http.MethodGet, "/api/session", nil))
	if resp.SignedIn {
		t.Fatal("should start signed out")
	}

	rec := doJSON(t, s, http.MethodPost, "/api/session/signin", session.Session{UID: "u1", DisplayName: "Ada"})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status = %d, body = %s", rec.Code, rec.Body.String())
	}

	resp = decodeBody[sessionResponse](t, doJSON(t, s, http.MethodGet, "/api/session", nil))
	if !resp.SignedIn || resp.Session == nil || resp.Session.UID != "u1" {
		t.Fatalf("session: %+v", resp)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/session/signout", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("signout status = %d", rec.Code)
	}

	resp = decodeBody[sessionResponse](t, doJSON(t, s, http.MethodGet, "/api/session", nil))
	if resp.SignedIn {
		t.Fatal("should be signed out")
	}
}

func TestSignInRequiresUID(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/session/signin", session.Session{DisplayName: "nobody"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMonthsEmptyIsArray(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/months", nil)
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("body = %q", body)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}

func TestSyncEventsEmptyIsArray(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/sync/events", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("body = %q", body)
	}
}
