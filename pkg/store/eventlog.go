package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/urmzd/glowcup/pkg/cup"
	"github.com/urmzd/glowcup/pkg/dispatch"
)

// DefaultEventLogCapacity is used when a non-positive capacity is given.
const DefaultEventLogCapacity = 500

// Entry is one line of the diagnostic event log.
type Entry struct {
	Seq           uint64    `json:"seq"`
	Time          time.Time `json:"time"`
	Level         string    `json:"level"`
	Source        string    `json:"source"`
	Message       string    `json:"message"`
	DeviceID      string    `json:"device_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventLog is a bounded ring of recent entries with live subscribers.
type EventLog struct {
	mu          sync.Mutex
	entries     []Entry
	start       int
	size        int
	seq         uint64
	subscribers map[chan Entry]struct{}
}

// NewEventLog creates a log holding at most capacity entries.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = DefaultEventLogCapacity
	}
	return &EventLog{
		entries:     make([]Entry, capacity),
		subscribers: make(map[chan Entry]struct{}),
	}
}

// Append stores e, evicting the oldest entry when full, and returns it
// with its sequence number and time filled in.
func (l *EventLog) Append(e Entry) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	e.Seq = l.seq
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if e.Level == "" {
		e.Level = zerolog.InfoLevel.String()
	}

	capacity := len(l.entries)
	if l.size < capacity {
		l.entries[(l.start+l.size)%capacity] = e
		l.size++
	} else {
		l.entries[l.start] = e
		l.start = (l.start + 1) % capacity
	}

	for ch := range l.subscribers {
		select {
		case ch <- e:
		default:
			// Subscriber is behind; it can catch up with Recent.
		}
	}
	return e
}

// Recent returns up to n entries, oldest first. n <= 0 returns all.
func (l *EventLog) Recent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > l.size {
		n = l.size
	}
	out := make([]Entry, n)
	capacity := len(l.entries)
	offset := l.size - n
	for i := 0; i < n; i++ {
		out[i] = l.entries[(l.start+offset+i)%capacity]
	}
	return out
}

// Len returns the number of stored entries.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Subscribe returns a channel receiving every entry appended from now on.
func (l *EventLog) Subscribe() chan Entry {
	ch := make(chan Entry, 64)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (l *EventLog) Unsubscribe(ch chan Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.subscribers[ch]; ok {
		delete(l.subscribers, ch)
		close(ch)
	}
}

// HandleEvent is a cup.Listener that logs connection activity.
func (l *EventLog) HandleEvent(e cup.Event) {
	entry := Entry{Time: e.Timestamp, Source: "connection", DeviceID: e.DeviceID}
	switch e.Type {
	case cup.EventDiscovered:
		entry.Message = "discovered"
	case cup.EventScanStarted:
		entry.Message = "scan started"
	case cup.EventScanStopped:
		entry.Message = "scan stopped"
	case cup.EventBattery:
		if e.Battery == cup.BatteryUnknown {
			entry.Message = "battery unknown"
		} else {
			entry.Message = fmt.Sprintf("battery %d%%", e.Battery)
		}
	case cup.EventStateChanged:
		entry.Message = fmt.Sprintf("%s -> %s", e.Previous, e.State)
		if e.State == cup.StateFailed {
			entry.Level = zerolog.WarnLevel.String()
		}
		if e.Err != nil {
			entry.Message += ": " + e.Err.Error()
		}
	default:
		entry.Message = string(e.Type)
	}
	l.Append(entry)
}

// HandleDispatch logs a completed dispatch.
func (l *EventLog) HandleDispatch(rec dispatch.Record) {
	entry := Entry{
		Time:          rec.StartedAt,
		Source:        "dispatch",
		CorrelationID: rec.ID.String(),
		Message: fmt.Sprintf("%s: %d/%d succeeded",
			rec.Command, rec.Outcomes.Succeeded(), len(rec.Outcomes)),
	}
	if len(rec.Outcomes.Failed()) > 0 {
		entry.Level = zerolog.WarnLevel.String()
	}
	l.Append(entry)
}

// Hook returns a zerolog hook that copies log lines at or above minLevel
// into the event log.
func (l *EventLog) Hook(minLevel zerolog.Level) zerolog.Hook {
	return zerolog.HookFunc(func(e *zerolog.Event, level zerolog.Level, message string) {
		if level < minLevel || message == "" {
			return
		}
		l.Append(Entry{Level: level.String(), Source: "log", Message: message})
	})
}
