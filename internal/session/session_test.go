package session

import (
	"context"
	"testing"
)

func TestSignInSignOutEvents(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	events := m.Subscribe()

	if _, ok := m.Current(); ok {
		t.Fatal("fresh manager reports a session")
	}

	m.SignIn(ctx, Session{UID: "u1", DisplayName: "Someone"})
	ev := <-events
	if ev.Session == nil || ev.Session.UID != "u1" {
		t.Fatalf("event: %+v", ev)
	}
	if cur, ok := m.Current(); !ok || cur.UID != "u1" {
		t.Fatalf("current: %+v %v", cur, ok)
	}

	m.SignOut(ctx)
	ev = <-events
	if ev.Session != nil {
		t.Fatalf("sign-out event carries a session: %+v", ev)
	}
	if _, ok := m.Current(); ok {
		t.Fatal("session survived sign-out")
	}

	// Signing out twice emits nothing further.
	m.SignOut(ctx)
	select {
	case ev := <-events:
		t.Fatalf("unexpected event: %+v", ev)
	default:
	}
}

func TestReentrantSignIn(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	events := m.Subscribe()

	m.SignIn(ctx, Session{UID: "u1"})
	m.SignIn(ctx, Session{UID: "u2"})

	ev1 := <-events
	ev2 := <-events
	if ev1.Session.UID != "u1" || ev2.Session.UID != "u2" {
		t.Fatalf("events: %+v %+v", ev1, ev2)
	}
	if cur, _ := m.Current(); cur.UID != "u2" {
		t.Fatalf("current: %+v", cur)
	}
}
