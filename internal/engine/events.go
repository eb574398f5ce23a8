package engine

import (
	"sync"

	"github.com/talgya/taixu/internal/metrics"
)

// Event categories.
const (
	CategoryFarm     = "farm"
	CategoryBuild    = "build"
	CategoryPlayer   = "player"
	CategoryCalendar = "calendar"
	CategoryFestival = "festival"
	CategorySystem   = "system"
)

// eventLogSize bounds the in-memory event ring.
const eventLogSize = 500

// Event is a notable occurrence in the town.
type Event struct {
	Seq         uint64         `json:"seq"`
	Tick        uint64         `json:"tick"`
	Day         int            `json:"day"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// EventLog keeps the most recent events and fans new ones out to
// subscribers. Safe for concurrent use.
type EventLog struct {
	mu     sync.Mutex
	ring   []Event
	subs   map[int]chan Event
	nextID int
	seq    uint64
}

// NewEventLog creates an empty log.
func NewEventLog() *EventLog {
	return &EventLog{subs: make(map[int]chan Event)}
}

// Emit stamps e with the next sequence number, records it and offers it to
// every subscriber. Slow subscribers miss events rather than stall the
// simulation.
func (l *EventLog) Emit(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	e.Seq = l.seq

	l.ring = append(l.ring, e)
	if len(l.ring) > eventLogSize {
		l.ring = l.ring[len(l.ring)-eventLogSize:]
	}
	for _, ch := range l.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Recent returns up to limit of the newest events, oldest first.
func (l *EventLog) Recent(limit int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := 0
	if limit > 0 && len(l.ring) > limit {
		start = len(l.ring) - limit
	}
	out := make([]Event, len(l.ring)-start)
	copy(out, l.ring[start:])
	return out
}

// Len returns the number of retained events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ring)
}

// Subscribe registers a buffered channel that receives every new event.
func (l *EventLog) Subscribe() (int, <-chan Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	ch := make(chan Event, 64)
	l.subs[id] = ch
	metrics.Subscribers.Set(float64(len(l.subs)))
	return id, ch
}

// Unsubscribe removes and closes a subscription.
func (l *EventLog) Unsubscribe(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ch, ok := l.subs[id]; ok {
		close(ch)
		delete(l.subs, id)
	}
	metrics.Subscribers.Set(float64(len(l.subs)))
}

// After returns retained events with a sequence number greater than seq,
// oldest first.
func (l *EventLog) After(seq uint64) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Event
	for _, e := range l.ring {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}
