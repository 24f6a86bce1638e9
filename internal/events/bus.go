package events

import (
	"sync"
	"sync/atomic"
	"time"

	"alarmclock/backend/internal/lifecycle"
)

// EventType represents the type of event being published.
type EventType string

const (
	// EventTransition is published for every alarm state change.
	EventTransition EventType = "transition"
	// EventReminder is published when an upcoming-reminder timer fires.
	EventReminder EventType = "reminder"
	// EventScheduleFailed is published when the platform refuses to arm a timer.
	EventScheduleFailed EventType = "schedule_failed"
)

// Event represents a system event. Only the field matching Type is set.
type Event struct {
	Type       EventType
	Timestamp  time.Time
	UserID     string
	Transition *lifecycle.Transition
	Reminder   *Reminder
	Failure    *Failure
}

type Reminder struct {
	AlarmID string    `json:"alarmId"`
	Label   string    `json:"label"`
	FireAt  time.Time `json:"fireAt"`
}

type Failure struct {
	AlarmID string `json:"alarmId"`
	Reason  string `json:"reason"`
}

// Subscriber is a function that receives events.
type Subscriber func(Event)

// SubscribeOptions tune one subscription.
type SubscribeOptions struct {
	// Accept filters events before they are queued, so uninteresting events
	// never take buffer space.
	Accept func(Event) bool
	// Wait is how long Publish may block on a full buffer before dropping.
	// Zero drops immediately.
	Wait time.Duration
}

// Bus is an event bus using Publish/Subscribe pattern.
// Events are delivered asynchronously via buffered channels.
// If a subscriber's channel stays full past its Wait, the event is dropped and counted.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]*subscription
	bufferSize  int
	dropped     atomic.Uint64
}

type subscription struct {
	ch   chan Event
	opts SubscribeOptions
}

// NewBus creates a new event bus with the specified buffer size per subscriber.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Bus{
		subscribers: make(map[EventType][]*subscription),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a subscriber for a specific event type and returns
// an unsubscribe function.
func (b *Bus) Subscribe(eventType EventType, fn Subscriber) func() {
	return b.SubscribeWith(eventType, SubscribeOptions{}, fn)
}

// SubscribeWith is Subscribe with filtering and bounded back-pressure.
func (b *Bus) SubscribeWith(eventType EventType, opts SubscribeOptions, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	sub := &subscription{ch: ch, opts: opts}
	b.subscribers[eventType] = append(b.subscribers[eventType], sub)

	go func() {
		for event := range ch {
			func() {
				// A panicking subscriber must not stop delivery to the others.
				defer func() { _ = recover() }()
				fn(event)
			}()
		}
	}()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subscribers[eventType]
		for i, s := range subs {
			if s == sub {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
}

// Publish sends an event to all subscribers of its type. It blocks at most
// for the longest Wait among subscribers whose buffer is full.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers[event.Type] {
		if sub.opts.Accept != nil && !sub.opts.Accept(event) {
			continue
		}
		select {
		case sub.ch <- event:
			continue
		default:
		}
		if sub.opts.Wait > 0 && b.send(sub.ch, event, sub.opts.Wait) {
			continue
		}
		b.dropped.Add(1)
	}
}

func (b *Bus) send(ch chan Event, event Event, wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case ch <- event:
		return true
	case <-timer.C:
		return false
	}
}

// PublishTransitions wraps each lifecycle transition in an event.
func (b *Bus) PublishTransitions(userID string, transitions []lifecycle.Transition) {
	for i := range transitions {
		tr := transitions[i]
		b.Publish(Event{
			Type:       EventTransition,
			Timestamp:  tr.At,
			UserID:     userID,
			Transition: &tr,
		})
	}
}

// Dropped reports how many events were discarded because a subscriber lagged.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes all subscriber channels and clears subscriptions.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscribers {
		for _, sub := range subs {
			close(sub.ch)
		}
		delete(b.subscribers, eventType)
	}
}
