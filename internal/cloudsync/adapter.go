// Package cloudsync bridges the transaction store to the per-user
// remote collection. It follows the session state machine: on sign-in
// the remote collection wins (after a one-shot migration of local-only
// data), a live watch keeps the store aligned while signed in, and
// sign-out falls back to the last persisted local state. All remote
// calls are best effort; failures are logged and recorded, never
// surfaced, so the app keeps working offline.
package cloudsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"spendtrack/internal/core"
	"spendtrack/internal/remote"
	"spendtrack/internal/session"
	"spendtrack/internal/store"
)

// LocalStore is the slice of the local database the adapter needs: the
// sign-out fallback and the theme mirror.
type LocalStore interface {
	LoadTransactions(ctx context.Context) ([]core.Transaction, error)
	SaveTheme(ctx context.Context, theme string) error
}

// MutationPublisher feeds local mutations to an out-of-process mirror
// (the AMQP worker) instead of calling the collection inline.
type MutationPublisher interface {
	PublishCreate(ctx context.Context, uid string, t core.Transaction) error
	PublishDelete(ctx context.Context, uid string, t core.Transaction) error
}

type Adapter struct {
	store     *store.Store
	local     LocalStore
	remote    remote.Collection
	profiles  remote.ProfileStore
	sessions  session.Provider
	publisher MutationPublisher
	events    *EventLog

	mu          sync.Mutex
	uid         string
	cancelWatch context.CancelFunc
}

// Options carries the optional collaborators.
type Options struct {
	// Remote is the collection pushed to and watched inline. When nil
	// and Publisher is set, mutations are only published for the
	// worker to mirror.
	Remote    remote.Collection
	Profiles  remote.ProfileStore
	Publisher MutationPublisher
	Events    *EventLog
}

func New(st *store.Store, local LocalStore, sessions session.Provider, opts Options) *Adapter {
	events := opts.Events
	if events == nil {
		events = NewEventLog(0)
	}
	return &Adapter{
		store:     st,
		local:     local,
		remote:    opts.Remote,
		profiles:  opts.Profiles,
		sessions:  sessions,
		publisher: opts.Publisher,
		events:    events,
	}
}

// Events exposes the sync event log.
func (a *Adapter) Events() *EventLog { return a.events }

// Run consumes session events until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	events := a.sessions.Subscribe()
	for {
		select {
		case <-ctx.Done():
			a.stopWatch()
			return ctx.Err()
		case ev := <-events:
			if ev.Session != nil {
				a.signIn(ctx, *ev.Session)
			} else {
				a.signOut(ctx)
			}
		}
	}
}

// signIn runs the SignedOut -> SignedIn transition: restore the remote
// theme, fetch the collection, migrate local-only data if the remote
// side is empty, hand the remote snapshot to the store and start the
// live watch.
func (a *Adapter) signIn(ctx context.Context, s session.Session) {
	a.mu.Lock()
	a.uid = s.UID
	a.mu.Unlock()
	a.stopWatch()

	uid := s.UID
	slog.InfoContext(ctx, "session signed in", "uid", uid)

	if a.profiles != nil && a.local != nil {
		if theme, err := a.profiles.LoadTheme(ctx, uid); err != nil {
			slog.WarnContext(ctx, "load remote theme", "uid", uid, "error", err)
		} else if theme != "" {
			if err := a.local.SaveTheme(ctx, theme); err != nil {
				slog.WarnContext(ctx, "mirror theme locally", "error", err)
			}
		}
	}

	if a.remote == nil {
		return
	}

	docs, err := a.remote.List(ctx, uid)
	if err != nil {
		// Local state stays authoritative; the user keeps working
		// offline.
		slog.ErrorContext(ctx, "fetch remote collection", "uid", uid, "error", err)
		a.events.Record(OpFetch, uid, "", err)
		return
	}
	a.events.Record(OpFetch, uid, "", nil)

	local := a.store.All()
	if len(docs) == 0 && len(local) > 0 {
		// One-shot migration of local-only data. Not transactional: a
		// crash mid-loop leaves a partial upload that the next sign-in
		// no longer migrates over.
		slog.InfoContext(ctx, "migrating local transactions to remote", "uid", uid, "count", len(local))
		for _, t := range local {
			if _, err := a.remote.Add(ctx, uid, remote.FromTransaction(t)); err != nil {
				slog.ErrorContext(ctx, "migrate transaction", "uid", uid, "id", t.ID, "error", err)
				a.events.Record(OpMigrate, uid, t.ID, err)
			}
		}
		docs, err = a.remote.List(ctx, uid)
		if err != nil {
			slog.ErrorContext(ctx, "re-fetch after migration", "uid", uid, "error", err)
			a.events.Record(OpMigrate, uid, "", err)
			return
		}
		a.events.Record(OpMigrate, uid, "", nil)
	}

	// Remote wins unconditionally on sign-in, even when it holds fewer
	// records than the local list.
	a.store.ReplaceAll(ctx, remote.Transactions(docs))

	watchCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancelWatch = cancel
	a.mu.Unlock()

	go func() {
		err := a.remote.Watch(watchCtx, uid, func(docs []remote.Document) {
			a.store.ReplaceAll(watchCtx, remote.Transactions(docs))
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.ErrorContext(watchCtx, "remote watch ended", "uid", uid, "error", err)
			a.events.Record(OpWatch, uid, "", err)
		}
	}()
}

// signOut cancels the live watch and restores the last locally
// persisted list. Remote-only state not mirrored locally is gone until
// the next sign-in.
func (a *Adapter) signOut(ctx context.Context) {
	a.stopWatch()
	a.mu.Lock()
	uid := a.uid
	a.uid = ""
	a.mu.Unlock()
	slog.InfoContext(ctx, "session signed out", "uid", uid)

	var records []core.Transaction
	if a.local != nil {
		var err error
		records, err = a.local.LoadTransactions(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "load local transactions on sign-out", "error", err)
			records = nil
		}
	}
	a.store.ReplaceAll(ctx, records)
}

func (a *Adapter) stopWatch() {
	a.mu.Lock()
	cancel := a.cancelWatch
	a.cancelWatch = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (a *Adapter) currentUID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.uid
}

// Push mirrors a locally added record to the remote collection and, on
// success, swaps its temporary identifier for the server-assigned one.
// A no-op while signed out. Failures are best effort: recorded and
// logged, the local record keeps its temporary identifier.
func (a *Adapter) Push(ctx context.Context, t core.Transaction) {
	uid := a.currentUID()
	if uid == "" {
		return
	}
	if a.remote == nil {
		if a.publisher != nil {
			if err := a.publisher.PublishCreate(ctx, uid, t); err != nil {
				slog.ErrorContext(ctx, "publish create mutation", "id", t.ID, "error", err)
				a.events.Record(OpPublish, uid, t.ID, err)
			}
		}
		return
	}
	id, err := a.remote.Add(ctx, uid, remote.FromTransaction(t))
	if err != nil {
		slog.ErrorContext(ctx, "push transaction to remote", "uid", uid, "id", t.ID, "error", err)
		a.events.Record(OpPush, uid, t.ID, err)
		return
	}
	a.events.Record(OpPush, uid, t.ID, nil)
	a.store.ReconcileID(ctx, t.ID, id)
}

// Delete mirrors a local removal. Best effort, no retry; a record that
// was never pushed simply misses on the remote side.
func (a *Adapter) Delete(ctx context.Context, t core.Transaction) {
	uid := a.currentUID()
	if uid == "" {
		return
	}
	if a.remote == nil {
		if a.publisher != nil {
			if err := a.publisher.PublishDelete(ctx, uid, t); err != nil {
				slog.ErrorContext(ctx, "publish delete mutation", "id", t.ID, "error", err)
				a.events.Record(OpPublish, uid, t.ID, err)
			}
		}
		return
	}
	if err := a.remote.Delete(ctx, uid, t.ID); err != nil {
		slog.ErrorContext(ctx, "delete transaction from remote", "uid", uid, "id", t.ID, "error", err)
		a.events.Record(OpDelete, uid, t.ID, err)
		return
	}
	a.events.Record(OpDelete, uid, t.ID, nil)
}

// SaveTheme persists the theme locally and mirrors it to the user's
// remote profile when signed in.
func (a *Adapter) SaveTheme(ctx context.Context, theme string) {
	if a.local != nil {
		if err := a.local.SaveTheme(ctx, theme); err != nil {
			slog.ErrorContext(ctx, "save theme locally", "error", err)
		}
	}
	uid := a.currentUID()
	if uid == "" || a.profiles == nil {
		return
	}
	if err := a.profiles.SaveTheme(ctx, uid, theme); err != nil {
		slog.WarnContext(ctx, "save theme to remote profile", "uid", uid, "error", err)
	}
}
