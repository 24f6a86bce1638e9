package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alarmclock/backend/internal/events"
	"alarmclock/backend/internal/lifecycle"
	"alarmclock/backend/internal/logging"
	"alarmclock/backend/internal/model"
)

type memoryStore struct {
	mu    sync.Mutex
	items []*model.Occurrence
	err   error
}

func (s *memoryStore) Insert(_ context.Context, o *model.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.items = append(s.items, o)
	return nil
}

func (s *memoryStore) snapshot() []*model.Occurrence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Occurrence(nil), s.items...)
}

func TestRecorder_PersistsOutcomes(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()
	store := &memoryStore{}
	rec := NewRecorder(bus, store, logging.Discard())
	defer rec.Close()

	fireAt := time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)
	bus.PublishTransitions("u1", []lifecycle.Transition{
		{AlarmID: "a1", From: model.StateFiring, To: model.StateSnoozed, At: fireAt.Add(time.Minute), Occurrence: &fireAt, SnoozeCount: 1},
		{AlarmID: "a1", From: model.StateSnoozed, To: model.StateDismissed, At: fireAt.Add(3 * time.Minute), Occurrence: &fireAt, SnoozeCount: 1},
		{AlarmID: "a1", From: model.StateDismissed, To: model.StateScheduled, At: fireAt.Add(3 * time.Minute)},
	})

	require.Eventually(t, func() bool { return len(store.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	items := store.snapshot()
	assert.Equal(t, model.OutcomeSnoozed, items[0].Outcome)
	assert.Equal(t, model.OutcomeDismissed, items[1].Outcome)
	assert.Equal(t, "u1", items[1].UserID)
	assert.Equal(t, 1, items[1].SnoozeCount)
	assert.Equal(t, fireAt, *items[1].ScheduledFor)
	assert.NotEqual(t, items[0].ID, items[1].ID)
}

func TestRecorder_StoreErrorDoesNotStopDelivery(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()
	store := &memoryStore{err: errors.New("disk full")}
	rec := NewRecorder(bus, store, logging.Discard())
	defer rec.Close()

	now := time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)
	bus.PublishTransitions("u1", []lifecycle.Transition{{AlarmID: "a1", From: model.StateScheduled, To: model.StateFiring, At: now}})

	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()
	bus.PublishTransitions("u1", []lifecycle.Transition{{AlarmID: "a1", From: model.StateFiring, To: model.StateMissed, At: now.Add(time.Minute)}})

	require.Eventually(t, func() bool {
		items := store.snapshot()
		return len(items) > 0 && items[len(items)-1].Outcome == model.OutcomeMissed
	}, time.Second, 5*time.Millisecond)
}

func TestOccurrenceFor_SkipsBookkeepingStates(t *testing.T) {
	now := time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)
	for _, to := range []model.State{model.StateScheduled, model.StateDeleted} {
		_, ok := occurrenceFor(events.Event{UserID: "u1", Transition: &lifecycle.Transition{AlarmID: "a1", To: to, At: now}})
		assert.False(t, ok, to)
	}
	_, ok := occurrenceFor(events.Event{Type: events.EventReminder})
	assert.False(t, ok)
}

func TestRecorder_BookkeepingDoesNotCrowdOutOutcomes(t *testing.T) {
	bus := events.NewBus(2)
	defer bus.Close()
	store := &memoryStore{}
	rec := NewRecorder(bus, store, logging.Discard())
	defer rec.Close()

	now := time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC)
	var burst []lifecycle.Transition
	for i := 0; i < 50; i++ {
		burst = append(burst, lifecycle.Transition{AlarmID: "a1", From: model.StateDisabled, To: model.StateScheduled, At: now})
	}
	for i := 0; i < 5; i++ {
		burst = append(burst, lifecycle.Transition{AlarmID: "a2", From: model.StateFiring, To: model.StateMissed, At: now})
	}
	bus.PublishTransitions("u1", burst)

	require.Eventually(t, func() bool { return len(store.snapshot()) == 5 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, bus.Dropped())
}
