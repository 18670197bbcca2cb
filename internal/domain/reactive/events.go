package reactive

import (
	"sync"
	"time"
)

// EventKind classifies entries in the execution event log.
type EventKind string

const (
	EventModuleLoaded   EventKind = "module_loaded"
	EventStateUpdated   EventKind = "state_updated"
	EventFunctionCalled EventKind = "function_called"
	EventError          EventKind = "error"
)

// Event is one entry in the bounded execution log.
type Event struct {
	Kind   EventKind `json:"kind"`
	Key    string    `json:"key,omitempty"`
	Detail string    `json:"detail,omitempty"`
	Time   time.Time `json:"time"`
}

// maxEvents caps the log; once full, further events are dropped.
const maxEvents = 1000

// eventLog is a bounded in-memory execution trace. It has its own lock so
// it can be appended to from under the store lock or from the bridge.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(kind EventKind, key, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.events) >= maxEvents {
		return
	}
	l.events = append(l.events, Event{
		Kind:   kind,
		Key:    key,
		Detail: detail,
		Time:   time.Now(),
	})
}

func (l *eventLog) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}
