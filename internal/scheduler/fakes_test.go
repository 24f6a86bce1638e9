package scheduler

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"alarmclock/backend/internal/config"
	"alarmclock/backend/internal/events"
	"alarmclock/backend/internal/lifecycle"
	"alarmclock/backend/internal/model"
	"alarmclock/backend/internal/recurrence"
	"alarmclock/backend/internal/repository"
)

type fakeTimer struct {
	at   time.Time
	fire func()
}

type fakePlatform struct {
	mu     sync.Mutex
	timers map[string]fakeTimer
	denied bool
}

var _ Platform = (*fakePlatform)(nil)

func newFakePlatform() *fakePlatform {
	return &fakePlatform{timers: map[string]fakeTimer{}}
}

func (p *fakePlatform) Arm(key string, at time.Time, onFire func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.denied {
		return ErrExactNotPermitted
	}
	p.timers[key] = fakeTimer{at: at, fire: onFire}
	return nil
}

func (p *fakePlatform) Cancel(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.timers, key)
}

func (p *fakePlatform) Pending() map[string]time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]time.Time, len(p.timers))
	for key, t := range p.timers {
		out[key] = t.at
	}
	return out
}

func (p *fakePlatform) setDenied(denied bool) {
	p.mu.Lock()
	p.denied = denied
	p.mu.Unlock()
}

// callbackFor returns the armed callback without consuming the timer.
func (p *fakePlatform) callbackFor(t *testing.T, key string) func() {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	timer, ok := p.timers[key]
	require.True(t, ok, "no timer armed under %s", key)
	return timer.fire
}

// fire consumes the timer and runs its callback synchronously.
func (p *fakePlatform) fire(t *testing.T, key string) {
	t.Helper()
	fn := p.callbackFor(t, key)
	p.Cancel(key)
	fn()
}

type fakeRepo struct {
	mu         sync.Mutex
	alarms     map[string]*model.Alarm
	failUpsert map[string]error
	failDelete error
	upserts    int
	// onGet runs before every Get, outside the repo lock.
	onGet func(id string)
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{alarms: map[string]*model.Alarm{}, failUpsert: map[string]error{}}
}

func (r *fakeRepo) ListAll(ctx context.Context) ([]*model.Alarm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Alarm, 0, len(r.alarms))
	for _, a := range r.alarms {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) Get(ctx context.Context, id string) (*model.Alarm, error) {
	r.mu.Lock()
	hook := r.onGet
	r.mu.Unlock()
	if hook != nil {
		hook(id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alarms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a.Clone(), nil
}

func (r *fakeRepo) Upsert(ctx context.Context, a *model.Alarm) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failUpsert[a.ID]; err != nil {
		return err
	}
	r.upserts++
	r.alarms[a.ID] = a.Clone()
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete != nil {
		return r.failDelete
	}
	if _, ok := r.alarms[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.alarms, id)
	return nil
}

func (r *fakeRepo) setGetHook(fn func(id string)) {
	r.mu.Lock()
	r.onGet = fn
	r.mu.Unlock()
}

func (r *fakeRepo) setFailures(upsert map[string]error, del error) {
	r.mu.Lock()
	r.failUpsert = upsert
	r.failDelete = del
	r.mu.Unlock()
}

func (r *fakeRepo) put(a *model.Alarm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alarms[a.ID] = a.Clone()
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type harness struct {
	c        *Coordinator
	repo     *fakeRepo
	platform *fakePlatform
	clock    *fakeClock
	bus      *events.Bus
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:     newFakeRepo(),
		platform: newFakePlatform(),
		clock:    &fakeClock{t: at(19, 6, 0)},
		bus:      events.NewBus(64),
	}
	t.Cleanup(h.bus.Close)

	machine := lifecycle.NewMachine(recurrence.NewResolver(time.UTC), config.DefaultPolicy().Alarm)
	h.c = NewCoordinator(h.repo, h.platform, machine, h.bus, Options{
		CallbackBudget: time.Second,
		Now:            h.clock.Now,
	})
	return h
}

func (h *harness) stored(t *testing.T, id string) *model.Alarm {
	t.Helper()
	a, err := h.repo.Get(context.Background(), id)
	require.NoError(t, err)
	return a
}

// October 2026: the 19th is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.October, day, hour, minute, 0, 0, time.UTC)
}

const everyDay = model.WeekdaySet(0x7f)

func dailyAlarm(id string) *model.Alarm {
	return &model.Alarm{
		ID:                      id,
		UserID:                  "u1",
		Label:                   "wake up",
		Enabled:                 true,
		Hour:                    7,
		Weekdays:                everyDay,
		RepeatFrequency:         1,
		RepeatUnit:              model.RepeatWeek,
		MaxSnoozeCount:          2,
		SnoozeDurationSeconds:   300,
		AutoDismissAfterSeconds: 900,
	}
}
