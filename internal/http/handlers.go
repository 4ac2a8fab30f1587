package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"spendtrack/internal/cloudsync"
	"spendtrack/internal/core"
	"spendtrack/internal/session"
)

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.views.Latest())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.views.Latest().Summary)
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	months := s.views.Latest().MonthOptions
	if months == nil {
		months = []string{}
	}
	writeJSON(w, http.StatusOK, months)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.categories)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := core.Filter{
		Type:     queryValue(q.Get("type")),
		Category: queryValue(q.Get("category")),
		Month:    queryValue(q.Get("month")),
	}

	gen := s.views.Latest().Generation
	if s.lastGen.Swap(gen) != gen {
		s.txCache.Flush()
	}

	key := fmt.Sprintf("%d|%s|%s|%s", gen, f.Type, f.Category, f.Month)
	if cached, ok := s.txCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	records := core.Apply(s.store.All(), f)
	if records == nil {
		records = []core.Transaction{}
	}
	s.txCache.Set(key, records)
	writeJSON(w, http.StatusOK, records)
}

func queryValue(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return core.FilterAll
	}
	return v
}

type createTransactionRequest struct {
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	draft := core.Draft{
		Type:        req.Type,
		Category:    req.Category,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		Date:        strings.TrimSpace(req.Date),
	}

	tx, err := s.store.Add(r.Context(), draft)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	// The response does not wait on the cloud; the push reports into
	// the sync event log on failure.
	go s.sync.Push(context.WithoutCancel(r.Context()), tx)

	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction id")
		return
	}

	removed, ok := s.store.Remove(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}

	go s.sync.Delete(context.WithoutCancel(r.Context()), removed)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	s.store.ReplaceAll(r.Context(), nil)
	slog.InfoContext(r.Context(), "cleared all local transactions")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetFilter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.views.Filter())
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var f core.Filter
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f.Type = queryValue(f.Type)
	f.Category = queryValue(f.Category)
	f.Month = queryValue(f.Month)

	s.views.SetFilter(r.Context(), f)
	writeJSON(w, http.StatusOK, s.views.Filter())
}

type themeRequest struct {
	Theme string `json:"theme"`
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := s.themes.LoadTheme(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "load theme failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load theme")
		return
	}
	if theme == "" {
		theme = "light"
	}
	writeJSON(w, http.StatusOK, themeRequest{Theme: theme})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Theme != "light" && req.Theme != "dark" {
		writeError(w, http.StatusUnprocessableEntity, "theme must be light or dark")
		return
	}

	// Writes locally and, when signed in, to the user's profile.
	s.sync.SaveTheme(r.Context(), req.Theme)
	writeJSON(w, http.StatusOK, req)
}

type sessionResponse struct {
	SignedIn bool             `json:"signed_in"`
	Session  *session.Session `json:"session,omitempty"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if current, ok := s.sessions.Current(); ok {
		writeJSON(w, http.StatusOK, sessionResponse{SignedIn: true, Session: &current})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SignedIn: false})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var sess session.Session
	if err := decodeJSON(r, &sess); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(sess.UID) == "" {
		writeError(w, http.StatusUnprocessableEntity, "uid is required")
		return
	}

	if err := s.sessions.SignIn(r.Context(), sess); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SignedIn: true, Session: &sess})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.SignOut(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SignedIn: false})
}

func (s *Server) handleSyncEvents(w http.ResponseWriter, r *http.Request) {
	events := s.sync.Events().Events()
	if events == nil {
		events = []cloudsync.SyncEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
