// Package history persists one row per alarm outcome from the transition
// events published by the scheduler.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"alarmclock/backend/internal/events"
	"alarmclock/backend/internal/logging"
	"alarmclock/backend/internal/model"
)

type Store interface {
	Insert(ctx context.Context, o *model.Occurrence) error
}

type Recorder struct {
	store   Store
	log     *logging.Logger
	timeout time.Duration
	unsub   func()
}

// publishWait bounds how long the scheduler blocks on a lagging recorder
// before an outcome is dropped.
const publishWait = 2 * time.Second

// NewRecorder subscribes to transition events on bus. Only outcome
// transitions are queued. Call Close to stop.
func NewRecorder(bus *events.Bus, store Store, logger *logging.Logger) *Recorder {
	r := &Recorder{store: store, log: logger, timeout: 5 * time.Second}
	r.unsub = bus.SubscribeWith(events.EventTransition, events.SubscribeOptions{
		Accept: isOutcome,
		Wait:   publishWait,
	}, r.handle)
	return r
}

func isOutcome(e events.Event) bool {
	if e.Transition == nil {
		return false
	}
	_, ok := model.OutcomeForState(e.Transition.To)
	return ok
}

func (r *Recorder) Close() {
	if r.unsub != nil {
		r.unsub()
		r.unsub = nil
	}
}

func (r *Recorder) handle(e events.Event) {
	o, ok := occurrenceFor(e)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.Insert(ctx, o); err != nil {
		r.log.Errorf("record outcome alarm=%s outcome=%s error=%v", o.AlarmID, o.Outcome, err)
	}
}

// occurrenceFor maps a transition to a history row. Transitions into
// Scheduled and Deleted are bookkeeping and produce none.
func occurrenceFor(e events.Event) (*model.Occurrence, bool) {
	tr := e.Transition
	if tr == nil {
		return nil, false
	}
	outcome, ok := model.OutcomeForState(tr.To)
	if !ok {
		return nil, false
	}
	return &model.Occurrence{
		ID:           uuid.NewString(),
		AlarmID:      tr.AlarmID,
		UserID:       e.UserID,
		Outcome:      outcome,
		ScheduledFor: tr.Occurrence,
		SnoozeCount:  tr.SnoozeCount,
		RecordedAt:   tr.At.UTC(),
	}, true
}
