package notifysvc

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/ratiba/core/clock"
	"github.com/trezcool/ratiba/core/timetable"
)

// Handler receives the changes of a watched day. It runs on the publisher's goroutine
// and must not block.
type Handler func(evt timetable.ChangeEvent)

type subscription struct {
	date string // "" watches every date of the class
	fn   Handler
}

// Broker is an in-process registry of observers of class days.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]subscription // by class
}

var _ timetable.Notifier = (*Broker)(nil)

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[int]subscription)}
}

// Subscribe registers fn for changes of classID on date; a zero date watches every date.
// Catalog changes are delivered to every subscriber of the class.
func (b *Broker) Subscribe(classID string, date time.Time, fn Handler) (unsubscribe func()) {
	sub := subscription{fn: fn}
	if !date.IsZero() {
		sub.date = clock.DateKey(date)
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[classID] == nil {
		b.subs[classID] = make(map[int]subscription)
	}
	b.subs[classID][id] = sub
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[classID], id)
			if len(b.subs[classID]) == 0 {
				delete(b.subs, classID)
			}
		})
	}
}

// Publish delivers evt to the matching subscribers. It never fails.
func (b *Broker) Publish(_ context.Context, evt timetable.ChangeEvent) error {
	var date string
	if !evt.Date.IsZero() {
		date = clock.DateKey(evt.Date)
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[evt.ClassID]))
	for _, sub := range b.subs[evt.ClassID] {
		if date == "" || sub.date == "" || sub.date == date {
			handlers = append(handlers, sub.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(evt)
	}
	return nil
}

// Subscribers returns the number of active subscriptions of classID.
func (b *Broker) Subscribers(classID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[classID])
}
