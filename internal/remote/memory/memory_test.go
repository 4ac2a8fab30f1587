package memory

import (
	"context"
	"testing"
	"time"

	"spendtrack/internal/remote"
)

func TestAddListDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	id1, err := s.Add(ctx, "u1", remote.Document{Type: "income", Category: "salary", Amount: 1000, Date: "2024-01-05"})
	if err != nil {
		t.Fatal(err)
	}
	id2, _ := s.Add(ctx, "u1", remote.Document{Type: "expense", Category: "food", Amount: -50, Date: "2024-01-10"})
	s.Add(ctx, "u2", remote.Document{Type: "expense", Category: "rent", Amount: -800, Date: "2024-02-01"})

	docs, err := s.List(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].ID != id1 || docs[1].ID != id2 {
		t.Fatalf("list: %+v", docs)
	}
	if docs[0].CreatedAt.IsZero() {
		t.Fatalf("missing creation time")
	}

	if err := s.Delete(ctx, "u1", id1); err != nil {
		t.Fatal(err)
	}
	docs, _ = s.List(ctx, "u1")
	if len(docs) != 1 || docs[0].ID != id2 {
		t.Fatalf("after delete: %+v", docs)
	}

	// Unknown IDs are not an error.
	if err := s.Delete(ctx, "u1", "ghost"); err != nil {
		t.Fatal(err)
	}
}

func TestWatchDeliversSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New()

	snapshots := make(chan []remote.Document, 8)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, "u1", func(docs []remote.Document) { snapshots <- docs })
	}()

	// Give the watcher a moment to register.
	time.Sleep(10 * time.Millisecond)
	s.Add(ctx, "u1", remote.Document{Type: "income", Amount: 5})

	select {
	case docs := <-snapshots:
		if len(docs) != 1 {
			t.Fatalf("snapshot: %+v", docs)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("watch returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestThemePerUser(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.SaveTheme(ctx, "u1", "dark")

	theme, err := s.LoadTheme(ctx, "u1")
	if err != nil || theme != "dark" {
		t.Fatalf("theme = %q, %v", theme, err)
	}
	theme, _ = s.LoadTheme(ctx, "u2")
	if theme != "" {
		t.Fatalf("u2 theme = %q", theme)
	}
}
