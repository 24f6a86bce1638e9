// Package scheduler keeps platform timers in line with the stored alarms.
// Every operation on one alarm runs under that alarm's lock; RefreshAll
// visits the alarms one lock at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"alarmclock/backend/internal/events"
	"alarmclock/backend/internal/lifecycle"
	"alarmclock/backend/internal/lock"
	"alarmclock/backend/internal/logging"
	"alarmclock/backend/internal/model"
	"alarmclock/backend/internal/repository"
)

// Repository is the alarm store. Get returns repository.ErrNotFound for a
// missing id.
type Repository interface {
	ListAll(ctx context.Context) ([]*model.Alarm, error)
	Get(ctx context.Context, id string) (*model.Alarm, error)
	Upsert(ctx context.Context, alarm *model.Alarm) error
	Delete(ctx context.Context, id string) error
}

type Options struct {
	// CallbackBudget bounds the work done for one timer callback and for
	// each alarm visited by a refresh.
	CallbackBudget time.Duration
	// RetryDelay is how long a timer restored after a failed write waits
	// when its instant is already due.
	RetryDelay time.Duration
	Now        func() time.Time
	Logger     *logging.Logger
}

type Coordinator struct {
	repo     Repository
	platform Platform
	machine  *lifecycle.Machine
	bus      *events.Bus
	locks    *lock.MutexMap
	refresh  singleflight.Group
	budget   time.Duration
	retry    time.Duration
	now      func() time.Time
	log      *logging.Logger

	// requested counts RefreshAll calls; a sweep covers every call counted
	// before it started.
	requested atomic.Uint64

	mu               sync.Mutex
	permissionDenied bool
	lastRefresh      *RefreshReport
}

type RefreshReport struct {
	Trigger          Trigger           `json:"trigger"`
	StartedAt        time.Time         `json:"startedAt"`
	Alarms           int               `json:"alarms"`
	Scheduled        int               `json:"scheduled"`
	Ringing          int               `json:"ringing"`
	Disabled         int               `json:"disabled"`
	Swept            int               `json:"swept"`
	PermissionDenied bool              `json:"permissionDenied"`
	Failed           map[string]string `json:"failed,omitempty"`
}

type TimerStatus struct {
	Key     string    `json:"key"`
	AlarmID string    `json:"alarmId"`
	Kind    TimerKind `json:"kind"`
	At      time.Time `json:"at"`
}

type Status struct {
	PermissionDenied bool           `json:"permissionDenied"`
	ExactAllowed     *bool          `json:"exactTimersAllowed,omitempty"`
	DroppedEvents    uint64         `json:"droppedEvents"`
	LastRefresh      *RefreshReport `json:"lastRefresh,omitempty"`
	Timers           []TimerStatus  `json:"timers"`
}

// exactReporter is implemented by platforms that know the host's current
// exact-timer permission.
type exactReporter interface {
	ExactAllowed() bool
}

type step func(a *model.Alarm, now time.Time) (lifecycle.Result, error)

type sweepResult struct {
	covers uint64
	report RefreshReport
	err    error
}

const refreshKey = "refresh"

var errStaleTimer = errors.New("stale timer")

func NewCoordinator(repo Repository, platform Platform, machine *lifecycle.Machine, bus *events.Bus, opts Options) *Coordinator {
	if opts.CallbackBudget <= 0 {
		opts.CallbackBudget = 10 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Coordinator{
		repo:     repo,
		platform: platform,
		machine:  machine,
		bus:      bus,
		locks:    lock.NewMutexMap(),
		budget:   opts.CallbackBudget,
		retry:    opts.RetryDelay,
		now:      opts.Now,
		log:      opts.Logger,
	}
}

// SetLocation switches local-time arithmetic for every later computation.
// Callers follow it with RefreshAll.
func (c *Coordinator) SetLocation(loc *time.Location) {
	c.machine.Resolver().SetLocation(loc)
}

func (c *Coordinator) Location() *time.Location {
	return c.machine.Resolver().Location()
}

// ScheduleOne cancels the alarm's timers, computes its next occurrence,
// persists it and arms exactly one fire timer plus an optional reminder.
func (c *Coordinator) ScheduleOne(ctx context.Context, alarm *model.Alarm) (*model.Alarm, error) {
	c.locks.Lock(alarm.ID)
	defer c.locks.Unlock(alarm.ID)

	stored, err := c.repo.Get(ctx, alarm.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load alarm %s: %w", alarm.ID, err)
	}
	return c.apply(ctx, stored, alarm, c.scheduleStep)
}

// UpdateOne replaces the stored alarm with alarm and re-arms it, sweeping
// timers under every key scheme first.
func (c *Coordinator) UpdateOne(ctx context.Context, alarm *model.Alarm) (*model.Alarm, error) {
	c.locks.Lock(alarm.ID)
	defer c.locks.Unlock(alarm.ID)

	stored, err := c.load(ctx, alarm.ID)
	if err != nil {
		return nil, err
	}
	c.cancelLegacy(alarm.ID)
	return c.apply(ctx, stored, alarm, c.scheduleStep)
}

// Update applies edit to the stored alarm and re-arms it, all under the
// alarm's lock. An error from edit aborts without changes.
func (c *Coordinator) Update(ctx context.Context, id string, edit func(a *model.Alarm) error) (*model.Alarm, error) {
	c.locks.Lock(id)
	defer c.locks.Unlock(id)

	stored, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.apply(ctx, stored, stored, func(a *model.Alarm, now time.Time) (lifecycle.Result, error) {
		if err := edit(a); err != nil {
			return lifecycle.Result{}, err
		}
		return c.scheduleStep(a, now)
	})
}

// CancelOne cancels every timer for the id. It is safe on ids without timers.
func (c *Coordinator) CancelOne(id string) {
	c.locks.With(id, func() {
		c.cancelTimers(id)
		c.cancelLegacy(id)
	})
}

func (c *Coordinator) Snooze(ctx context.Context, id string) (*model.Alarm, error) {
	return c.transition(ctx, id, c.machine.Snooze)
}

func (c *Coordinator) Dismiss(ctx context.Context, id, scannedTag string) (*model.Alarm, error) {
	return c.transition(ctx, id, func(a *model.Alarm, now time.Time) (lifecycle.Result, error) {
		return c.machine.Dismiss(a, scannedTag, now)
	})
}

func (c *Coordinator) SkipNext(ctx context.Context, id string) (*model.Alarm, error) {
	return c.transition(ctx, id, c.machine.SkipNext)
}

func (c *Coordinator) SetEnabled(ctx context.Context, id string, enabled bool) (*model.Alarm, error) {
	if enabled {
		return c.transition(ctx, id, c.machine.Enable)
	}
	return c.transition(ctx, id, c.machine.Disable)
}

// Delete cancels the alarm's timers before removing it, so a deleted alarm
// never fires. If the store refuses the delete the timers are restored.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	c.locks.Lock(id)
	defer c.locks.Unlock(id)

	c.cancelTimers(id)
	c.cancelLegacy(id)

	stored, err := c.load(ctx, id)
	if err != nil {
		return err
	}
	now := c.now()
	res := c.machine.Delete(stored.Clone(), now)
	if err := c.repo.Delete(ctx, id); err != nil {
		c.restore(stored, now)
		return fmt.Errorf("delete alarm %s: %w", id, err)
	}
	c.bus.PublishTransitions(stored.UserID, res.Transitions)
	c.log.Infof("deleted alarm=%s", id)
	return nil
}

// HandleNFCScan dismisses the user's ringing alarms that require tagID.
func (c *Coordinator) HandleNFCScan(ctx context.Context, userID, tagID string) ([]*model.Alarm, error) {
	if tagID == "" {
		return nil, nil
	}
	alarms, err := c.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}

	var dismissed []*model.Alarm
	var errs []error
	for _, a := range alarms {
		if a.UserID != userID || a.State != model.StateFiring || a.RequiredNFCTagID != tagID {
			continue
		}
		updated, err := c.Dismiss(ctx, a.ID, tagID)
		if updated != nil {
			dismissed = append(dismissed, updated)
		}
		if err != nil && !errors.Is(err, ErrPermissionDenied) {
			errs = append(errs, err)
		}
	}
	return dismissed, errors.Join(errs...)
}

// RefreshAll re-derives every alarm's schedule after an external trigger.
// Stale timers under any key scheme are swept first. One alarm failing does
// not stop the others.
//
// Calls made before a sweep starts share it. A call that arrives while a
// sweep is already running waits for the next one, since the host may have
// changed after the running sweep read it. The sweep itself is detached
// from ctx; cancelling ctx only stops the caller from waiting.
func (c *Coordinator) RefreshAll(ctx context.Context, trigger Trigger) (RefreshReport, error) {
	want := c.requested.Add(1)
	done := make(chan sweepResult, 1)
	go func() {
		done <- c.refreshCovering(context.WithoutCancel(ctx), trigger, want)
	}()

	select {
	case <-ctx.Done():
		return RefreshReport{}, ctx.Err()
	case res := <-done:
		return res.report, res.err
	}
}

// refreshCovering joins or starts sweeps until one that began after request
// want has finished.
func (c *Coordinator) refreshCovering(ctx context.Context, trigger Trigger, want uint64) sweepResult {
	for {
		v, _, _ := c.refresh.Do(refreshKey, func() (any, error) {
			covers := c.requested.Load()
			report, err := c.refreshAll(ctx, trigger)
			return sweepResult{covers: covers, report: report, err: err}, nil
		})
		if res := v.(sweepResult); res.covers >= want {
			return res
		}
	}
}

func (c *Coordinator) PermissionDenied() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permissionDenied
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	status := Status{PermissionDenied: c.permissionDenied, DroppedEvents: c.bus.Dropped()}
	if c.lastRefresh != nil {
		report := *c.lastRefresh
		status.LastRefresh = &report
	}
	c.mu.Unlock()

	if r, ok := c.platform.(exactReporter); ok {
		allowed := r.ExactAllowed()
		status.ExactAllowed = &allowed
	}

	pending := c.platform.Pending()
	status.Timers = make([]TimerStatus, 0, len(pending))
	for _, key := range sortedKeys(pending) {
		id, kind, ok := ParseTimerKey(key)
		if !ok {
			continue
		}
		status.Timers = append(status.Timers, TimerStatus{Key: key, AlarmID: id, Kind: kind, At: pending[key]})
	}
	return status
}

func (c *Coordinator) refreshAll(ctx context.Context, trigger Trigger) (RefreshReport, error) {
	report := RefreshReport{Trigger: trigger, StartedAt: c.now(), Failed: map[string]string{}}

	listCtx, cancel := context.WithTimeout(ctx, c.budget)
	alarms, err := c.repo.ListAll(listCtx)
	cancel()
	if err != nil {
		return RefreshReport{}, fmt.Errorf("list alarms: %w", err)
	}
	report.Alarms = len(alarms)
	report.Swept = c.sweep(ctx, alarms)

	for _, a := range alarms {
		updated, err := c.refreshOne(ctx, a.ID)
		switch {
		case errors.Is(err, lifecycle.ErrUnknownAlarm):
			continue
		case errors.Is(err, ErrPermissionDenied):
			report.PermissionDenied = true
		case err != nil:
			report.Failed[a.ID] = err.Error()
			c.log.Errorf("refresh alarm=%s trigger=%s error=%v", a.ID, trigger, err)
			continue
		}
		switch updated.State {
		case model.StateScheduled:
			report.Scheduled++
		case model.StateFiring, model.StateSnoozed:
			report.Ringing++
		case model.StateDisabled:
			report.Disabled++
		}
	}
	if len(report.Failed) == 0 {
		report.Failed = nil
	}

	c.mu.Lock()
	// Only a sweep that reached every alarm may clear the flag.
	if report.Failed == nil {
		c.permissionDenied = report.PermissionDenied
	}
	c.lastRefresh = &report
	c.mu.Unlock()

	c.log.Infof("refresh trigger=%s alarms=%d scheduled=%d ringing=%d disabled=%d swept=%d failed=%d permission_denied=%t",
		trigger, report.Alarms, report.Scheduled, report.Ringing, report.Disabled, report.Swept, len(report.Failed), report.PermissionDenied)
	return report, nil
}

func (c *Coordinator) refreshOne(ctx context.Context, id string) (updated *model.Alarm, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.budget)
	defer cancel()

	c.locks.Lock(id)
	defer c.locks.Unlock(id)

	defer func() {
		if r := recover(); r != nil {
			updated, err = nil, fmt.Errorf("panic refreshing alarm %s: %v", id, r)
		}
	}()

	stored, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cancelLegacy(id)
	return c.apply(ctx, stored, stored, c.scheduleStep)
}

// sweep cancels pending timers that are not under the current key scheme or
// that belong to no stored alarm, and returns how many it cancelled.
func (c *Coordinator) sweep(ctx context.Context, alarms []*model.Alarm) int {
	live := make(map[string]bool, len(alarms))
	for _, a := range alarms {
		live[a.ID] = true
	}

	swept := 0
	pending := c.platform.Pending()
	for _, key := range sortedKeys(pending) {
		id, _, ok := ParseTimerKey(key)
		if ok && live[id] {
			continue
		}
		if ok && !c.orphaned(ctx, id) {
			continue
		}
		c.platform.Cancel(key)
		swept++
		c.log.Debugf("swept timer key=%s", key)
	}
	for _, a := range alarms {
		c.cancelLegacy(a.ID)
	}
	return swept
}

// orphaned re-checks under the alarm's lock, since the alarm may have been
// created after the sweep listed the store.
func (c *Coordinator) orphaned(ctx context.Context, id string) bool {
	var err error
	c.locks.With(id, func() {
		_, err = c.repo.Get(ctx, id)
	})
	return errors.Is(err, repository.ErrNotFound)
}

func (c *Coordinator) transition(ctx context.Context, id string, fn step) (*model.Alarm, error) {
	c.locks.Lock(id)
	defer c.locks.Unlock(id)

	stored, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.apply(ctx, stored, stored, fn)
}

// apply runs fn on a copy of base, persists the copy if it differs from
// stored and re-arms its timers. The caller holds the alarm's lock. A
// permission failure is returned together with the persisted alarm. When
// the write fails the stored alarm's timers are restored.
func (c *Coordinator) apply(ctx context.Context, stored, base *model.Alarm, fn step) (*model.Alarm, error) {
	now := c.now()
	next := base.Clone()

	res, err := fn(next, now)
	if err != nil {
		return nil, err
	}

	if stored == nil || !sameAlarm(stored, next) {
		if stored == nil {
			next.Version++
		} else {
			next.Version = stored.Version + 1
		}
		if next.CreatedAt.IsZero() {
			next.CreatedAt = now
		}
		next.UpdatedAt = now
		if err := c.repo.Upsert(ctx, next); err != nil {
			c.restore(stored, now)
			return nil, fmt.Errorf("save alarm %s: %w", next.ID, err)
		}
	}

	if res.Unschedulable != nil {
		c.log.Warnf("disabled alarm=%s reason=%v", next.ID, res.Unschedulable)
	}
	c.bus.PublishTransitions(next.UserID, res.Transitions)

	if err := c.armTimers(next, now, time.Time{}); err != nil {
		return next, err
	}
	return next, nil
}

// restore re-arms the stored alarm after a failed write. A timer that has
// already fired is retried after the retry delay.
func (c *Coordinator) restore(stored *model.Alarm, now time.Time) {
	if stored == nil {
		return
	}
	if err := c.armTimers(stored, now, now.Add(c.retry)); err != nil {
		c.log.Errorf("restore timers alarm=%s error=%v", stored.ID, err)
		return
	}
	c.log.Warnf("restored timers alarm=%s after failed write", stored.ID)
}

// scheduleStep leaves ringing alarms in place and arms everything else.
func (c *Coordinator) scheduleStep(a *model.Alarm, now time.Time) (lifecycle.Result, error) {
	switch a.State {
	case model.StateFiring, model.StateSnoozed:
		return lifecycle.Result{}, nil
	}
	return c.machine.Arm(a, now)
}

// armTimers replaces the alarm's timers with those its state calls for.
// Instants before floor are armed at floor; the callbacks still expect the
// original instant.
func (c *Coordinator) armTimers(a *model.Alarm, now, floor time.Time) error {
	c.cancelTimers(a.ID)

	var armErr error
	arm := func(kind TimerKind, at time.Time, onFire func()) {
		if armErr != nil {
			return
		}
		if at.Before(floor) {
			at = floor
		}
		if err := c.platform.Arm(TimerKey(a.ID, kind), at, onFire); err != nil {
			armErr = err
			return
		}
		c.log.Debugf("armed alarm=%s kind=%s at=%s", a.ID, kind, at.Format(time.RFC3339))
	}

	switch a.State {
	case model.StateScheduled:
		if !a.Enabled || a.NextFireAt == nil {
			break
		}
		fireAt := *a.NextFireAt
		arm(KindFire, fireAt, c.callback(a.ID, KindFire, fireAt))
		if at, ok := reminderAt(a, now); ok {
			arm(KindReminder, at, c.callback(a.ID, KindReminder, fireAt))
		}

	case model.StateSnoozed:
		if a.SnoozedUntil != nil {
			arm(KindFire, *a.SnoozedUntil, c.callback(a.ID, KindFire, *a.SnoozedUntil))
		}

	case model.StateFiring:
		since := now
		if a.ActiveSince != nil {
			since = *a.ActiveSince
		}
		if a.AutoDismissAfterSeconds > 0 {
			at := since.Add(time.Duration(a.AutoDismissAfterSeconds) * time.Second)
			arm(KindAutoDismiss, at, c.callback(a.ID, KindAutoDismiss, since))
		}
		if a.AutoSnoozeEnabled && a.AutoSnoozeAfterSeconds > 0 && a.MaxSnoozeCount != 0 && a.CanSnoozeAgain() {
			at := since.Add(time.Duration(a.AutoSnoozeAfterSeconds) * time.Second)
			arm(KindAutoSnooze, at, c.callback(a.ID, KindAutoSnooze, since))
		}
	}

	if armErr == nil {
		return nil
	}
	c.cancelTimers(a.ID)
	if errors.Is(armErr, ErrExactNotPermitted) {
		c.mu.Lock()
		c.permissionDenied = true
		c.mu.Unlock()
		c.bus.Publish(events.Event{
			Type:    events.EventScheduleFailed,
			UserID:  a.UserID,
			Failure: &events.Failure{AlarmID: a.ID, Reason: armErr.Error()},
		})
		c.log.Warnf("arm refused alarm=%s error=%v", a.ID, armErr)
		return fmt.Errorf("%w: alarm %s", ErrPermissionDenied, a.ID)
	}
	return fmt.Errorf("arm alarm %s: %w", a.ID, armErr)
}

// reminderAt is the first reminder instant, dropped when already past.
func reminderAt(a *model.Alarm, now time.Time) (time.Time, bool) {
	if !a.ShowUpcomingReminder || a.ReminderLeadSeconds <= 0 || a.NextFireAt == nil {
		return time.Time{}, false
	}
	at := a.NextFireAt.Add(-time.Duration(a.ReminderLeadSeconds) * time.Second)
	if at.Before(now) {
		return time.Time{}, false
	}
	return at, true
}

func (c *Coordinator) callback(id string, kind TimerKind, expected time.Time) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.budget)
		defer cancel()

		err := c.handleTimer(ctx, id, kind, expected)
		switch {
		case err == nil:
		case errors.Is(err, errStaleTimer), errors.Is(err, lifecycle.ErrUnknownAlarm):
			c.log.Debugf("ignored timer alarm=%s kind=%s reason=%v", id, kind, err)
		case errors.Is(err, lifecycle.ErrInvalidTransition):
			c.log.Warnf("timer rejected alarm=%s kind=%s error=%v", id, kind, err)
		default:
			c.log.Errorf("timer failed alarm=%s kind=%s error=%v", id, kind, err)
		}
	}
}

func (c *Coordinator) handleTimer(ctx context.Context, id string, kind TimerKind, expected time.Time) error {
	c.locks.Lock(id)
	defer c.locks.Unlock(id)

	stored, err := c.load(ctx, id)
	if err != nil {
		return err
	}
	if !timerCurrent(stored, kind, expected) {
		return errStaleTimer
	}

	switch kind {
	case KindReminder:
		return c.remind(stored, expected)
	case KindFire:
		_, err = c.apply(ctx, stored, stored, c.machine.Fire)
	case KindAutoDismiss:
		_, err = c.apply(ctx, stored, stored, c.machine.Miss)
	case KindAutoSnooze:
		_, err = c.apply(ctx, stored, stored, c.machine.Snooze)
	}
	return err
}

// timerCurrent reports whether a callback still matches the alarm it was
// armed for; a re-armed or transitioned alarm makes older callbacks stale.
func timerCurrent(a *model.Alarm, kind TimerKind, expected time.Time) bool {
	switch kind {
	case KindFire:
		switch a.State {
		case model.StateScheduled:
			return a.Enabled && a.NextFireAt != nil && a.NextFireAt.Equal(expected)
		case model.StateSnoozed:
			return a.SnoozedUntil != nil && a.SnoozedUntil.Equal(expected)
		}
	case KindReminder:
		return a.State == model.StateScheduled && a.NextFireAt != nil && a.NextFireAt.Equal(expected)
	case KindAutoDismiss, KindAutoSnooze:
		return a.State == model.StateFiring && a.ActiveSince != nil && a.ActiveSince.Equal(expected)
	}
	return false
}

// remind publishes the upcoming reminder and re-arms it while the next
// repeat still lands before the fire time.
func (c *Coordinator) remind(a *model.Alarm, fireAt time.Time) error {
	now := c.now()
	if !now.Before(fireAt) {
		return errStaleTimer
	}
	c.bus.Publish(events.Event{
		Type:     events.EventReminder,
		UserID:   a.UserID,
		Reminder: &events.Reminder{AlarmID: a.ID, Label: a.Label, FireAt: fireAt},
	})
	c.log.Infof("reminder alarm=%s fire_at=%s", a.ID, fireAt.Format(time.RFC3339))

	if a.ReminderRepeatIntervalSeconds <= 0 {
		return nil
	}
	next := now.Add(time.Duration(a.ReminderRepeatIntervalSeconds) * time.Second)
	if !next.Before(fireAt) {
		return nil
	}
	if err := c.platform.Arm(TimerKey(a.ID, KindReminder), next, c.callback(a.ID, KindReminder, fireAt)); err != nil {
		return fmt.Errorf("re-arm reminder alarm %s: %w", a.ID, err)
	}
	return nil
}

func (c *Coordinator) load(ctx context.Context, id string) (*model.Alarm, error) {
	a, err := c.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", lifecycle.ErrUnknownAlarm, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load alarm %s: %w", id, err)
	}
	if a.State == model.StateDeleted {
		return nil, fmt.Errorf("%w: %s", lifecycle.ErrUnknownAlarm, id)
	}
	return a, nil
}

func (c *Coordinator) cancelTimers(id string) {
	for _, kind := range timerKinds {
		c.platform.Cancel(TimerKey(id, kind))
	}
}

func (c *Coordinator) cancelLegacy(id string) {
	for _, key := range legacyKeys(id) {
		c.platform.Cancel(key)
	}
}

// sameAlarm compares two alarms ignoring bookkeeping and time zone or
// monotonic-clock differences between equal instants.
func sameAlarm(a, b *model.Alarm) bool {
	return reflect.DeepEqual(normalized(a), normalized(b))
}

func normalized(a *model.Alarm) *model.Alarm {
	c := a.Clone()
	c.Version, c.CreatedAt, c.UpdatedAt = 0, time.Time{}, time.Time{}
	for _, p := range []**time.Time{&c.RepeatAnchor, &c.SkippedOccurrenceAt, &c.ActiveSince, &c.SnoozedUntil, &c.NextFireAt} {
		if *p != nil {
			v := (*p).UTC()
			*p = &v
		}
	}
	return c
}
