package cloudsync

import (
	"sync"
	"time"
)

// Sync operations recorded in the event log.
const (
	OpFetch   = "fetch"
	OpMigrate = "migrate"
	OpPush    = "push"
	OpDelete  = "delete"
	OpWatch   = "watch"
	OpPublish = "publish"
)

// SyncEvent is one remote operation outcome. Err is empty on success.
type SyncEvent struct {
	Op  string    `json:"op"`
	UID string    `json:"uid"`
	ID  string    `json:"id,omitempty"`
	Err string    `json:"error,omitempty"`
	At  time.Time `json:"at"`
}

// EventLog is a bounded record of remote operation outcomes. Remote
// failures never block the user, but dropping them into the void makes
// them untestable; the log keeps them observable.
type EventLog struct {
	mu     sync.Mutex
	max    int
	events []SyncEvent
}

func NewEventLog(max int) *EventLog {
	if max <= 0 {
		max = 256
	}
	return &EventLog{max: max}
}

func (l *EventLog) Record(op, uid, id string, err error) {
	ev := SyncEvent{Op: op, UID: uid, ID: id, At: time.Now()}
	if err != nil {
		ev.Err = err.Error()
	}
	l.mu.Lock()
	l.events = append(l.events, ev)
	if len(l.events) > l.max {
		l.events = l.events[len(l.events)-l.max:]
	}
	l.mu.Unlock()
}

// Events returns a copy of the log, oldest first.
func (l *EventLog) Events() []SyncEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]SyncEvent(nil), l.events...)
}

// Failures returns only the events that carry an error.
func (l *EventLog) Failures() []SyncEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []SyncEvent
	for _, ev := range l.events {
		if ev.Err != "" {
			out = append(out, ev)
		}
	}
	return out
}
