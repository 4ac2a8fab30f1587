// Package memory is an in-process remote backend: the default for
// local development and the double the sync tests run against.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spendtrack/internal/remote"
)

type Store struct {
	mu       sync.Mutex
	seq      int
	docs     map[string][]remote.Document // per uid, creation order
	themes   map[string]string
	watchers map[string][]chan []remote.Document
}

func New() *Store {
	return &Store{
		docs:     make(map[string][]remote.Document),
		themes:   make(map[string]string),
		watchers: make(map[string][]chan []remote.Document),
	}
}

func (s *Store) List(_ context.Context, uid string) ([]remote.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(uid), nil
}

func (s *Store) Add(_ context.Context, uid string, doc remote.Document) (string, error) {
	s.mu.Lock()
	s.seq++
	doc.ID = fmt.Sprintf("mem-%d", s.seq)
	doc.CreatedAt = time.Now()
	s.docs[uid] = append(s.docs[uid], doc)
	id := doc.ID
	s.notifyLocked(uid)
	s.mu.Unlock()
	return id, nil
}

func (s *Store) Delete(_ context.Context, uid, id string) error {
	s.mu.Lock()
	docs := s.docs[uid]
	for i, d := range docs {
		if d.ID == id {
			s.docs[uid] = append(docs[:i], docs[i+1:]...)
			s.notifyLocked(uid)
			break
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) Watch(ctx context.Context, uid string, fn func([]remote.Document)) error {
	ch := make(chan []remote.Document, 16)
	s.mu.Lock()
	s.watchers[uid] = append(s.watchers[uid], ch)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		chans := s.watchers[uid]
		for i, c := range chans {
			if c == ch {
				s.watchers[uid] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snapshot := <-ch:
			fn(snapshot)
		}
	}
}

func (s *Store) SaveTheme(_ context.Context, uid, theme string) error {
	s.mu.Lock()
	s.themes[uid] = theme
	s.mu.Unlock()
	return nil
}

func (s *Store) LoadTheme(_ context.Context, uid string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.themes[uid], nil
}

func (s *Store) snapshotLocked(uid string) []remote.Document {
	return append([]remote.Document(nil), s.docs[uid]...)
}

func (s *Store) notifyLocked(uid string) {
	snapshot := s.snapshotLocked(uid)
	for _, ch := range s.watchers[uid] {
		select {
		case ch <- snapshot:
		default:
			// A slow watcher misses intermediate snapshots, never the
			// data: the next notification carries the full state.
		}
	}
}
