// Package lifecycle drives a single alarm through its operational states.
// Machine methods mutate the alarm they are given; callers work on a clone
// and persist it only when the call succeeds.
package lifecycle

import (
	"fmt"
	"time"

	"alarmclock/backend/internal/config"
	"alarmclock/backend/internal/model"
	"alarmclock/backend/internal/recurrence"
)

// Transition is published for every state change.
type Transition struct {
	AlarmID string      `json:"alarmId"`
	From    model.State `json:"fromState"`
	To      model.State `json:"toState"`
	At      time.Time   `json:"timestamp"`
	// Occurrence is the scheduled instant the transition concerns, if any.
	Occurrence  *time.Time `json:"occurrence,omitempty"`
	SnoozeCount int        `json:"snoozeCount"`
}

type Result struct {
	Transitions []Transition
	// Unschedulable is the resolver error that moved the alarm to Disabled.
	Unschedulable error
}

func (r *Result) record(a *model.Alarm, to model.State, at time.Time, occurrence *time.Time) {
	if a.State == to {
		return
	}
	var occ *time.Time
	if occurrence != nil {
		v := *occurrence
		occ = &v
	}
	r.Transitions = append(r.Transitions, Transition{
		AlarmID:     a.ID,
		From:        a.State,
		To:          to,
		At:          at,
		Occurrence:  occ,
		SnoozeCount: a.CurrentSnoozeCount,
	})
	a.State = to
}

type Machine struct {
	resolver *recurrence.Resolver
	defaults config.AlarmDefaults
}

func NewMachine(resolver *recurrence.Resolver, defaults config.AlarmDefaults) *Machine {
	return &Machine{resolver: resolver, defaults: defaults}
}

func (m *Machine) Resolver() *recurrence.Resolver {
	return m.resolver
}

// Arm computes the next occurrence and moves the alarm to Scheduled, or to
// Disabled when it is switched off or nothing is left to schedule.
func (m *Machine) Arm(a *model.Alarm, now time.Time) (Result, error) {
	var res Result
	switch a.State {
	case model.StateFiring, model.StateSnoozed:
		return res, invalid("alarm %s is %s", a.ID, a.State)
	case model.StateDeleted:
		return res, ErrUnknownAlarm
	}
	m.arm(a, now, &res)
	return res, nil
}

// Fire handles the platform timer for the current occurrence or the end of a snooze.
func (m *Machine) Fire(a *model.Alarm, now time.Time) (Result, error) {
	var res Result
	switch a.State {
	case model.StateScheduled:
		if !a.Enabled {
			return res, invalid("alarm %s is disabled", a.ID)
		}
		since := now
		a.IsActive = true
		a.ActiveSince = &since
		a.CurrentSnoozeCount = 0
		a.SnoozedUntil = nil
		res.record(a, model.StateFiring, now, a.NextFireAt)
	case model.StateSnoozed:
		since := now
		a.IsActive = true
		a.ActiveSince = &since
		a.SnoozedUntil = nil
		res.record(a, model.StateFiring, now, a.NextFireAt)
	case model.StateDeleted:
		return res, ErrUnknownAlarm
	default:
		return res, invalid("cannot fire alarm %s from %s", a.ID, a.State)
	}
	return res, nil
}

// Snooze silences a firing alarm until SnoozedUntil. It fails without
// touching the alarm once the snooze allowance is used up.
func (m *Machine) Snooze(a *model.Alarm, now time.Time) (Result, error) {
	var res Result
	if a.State != model.StateFiring {
		return res, invalid("cannot snooze alarm %s from %s", a.ID, a.State)
	}
	if a.MaxSnoozeCount == 0 {
		return res, invalid("snooze is disabled for alarm %s", a.ID)
	}
	if !a.CanSnoozeAgain() {
		return res, invalid("alarm %s reached its snooze limit of %d", a.ID, a.MaxSnoozeCount)
	}

	until := now.Add(m.snoozeDuration(a))
	a.CurrentSnoozeCount++
	a.SnoozedUntil = &until
	res.record(a, model.StateSnoozed, now, a.NextFireAt)
	return res, nil
}

// Dismiss stops a ringing alarm, or dismisses a scheduled one early when its
// next fire time is inside the early window. The scanned tag must satisfy
// RequiredNFCTagID.
func (m *Machine) Dismiss(a *model.Alarm, scannedTag string, now time.Time) (Result, error) {
	var res Result
	switch a.State {
	case model.StateFiring, model.StateSnoozed:
		if !NFCSatisfied(a.RequiredNFCTagID, scannedTag) {
			return res, ErrNFCMismatch
		}
		if next, ok := m.upcomingInWindow(a, now); ok {
			m.finish(a, model.StateDismissedEarly, now, &next, &res)
			return res, nil
		}
		m.finish(a, model.StateDismissed, now, nil, &res)
		return res, nil

	case model.StateScheduled:
		if !a.DismissEarlyEnabled || a.NextFireAt == nil {
			return res, invalid("alarm %s is not ringing", a.ID)
		}
		if a.NextFireAt.Sub(now) > m.earlyWindow(a) {
			return res, invalid("alarm %s is outside its early dismissal window", a.ID)
		}
		if !NFCSatisfied(a.RequiredNFCTagID, scannedTag) {
			return res, ErrNFCMismatch
		}
		skip := *a.NextFireAt
		m.finish(a, model.StateDismissedEarly, now, &skip, &res)
		return res, nil

	case model.StateDeleted:
		return res, ErrUnknownAlarm
	}
	return res, invalid("cannot dismiss alarm %s from %s", a.ID, a.State)
}

// Miss records that the auto-dismiss timeout elapsed without a response.
func (m *Machine) Miss(a *model.Alarm, now time.Time) (Result, error) {
	var res Result
	if a.State != model.StateFiring {
		return res, invalid("cannot miss alarm %s from %s", a.ID, a.State)
	}
	m.finish(a, model.StateMissed, now, nil, &res)
	return res, nil
}

func (m *Machine) Disable(a *model.Alarm, now time.Time) (Result, error) {
	var res Result
	if a.State == model.StateDeleted {
		return res, ErrUnknownAlarm
	}
	a.Enabled = false
	m.toDisabled(a, now, &res)
	return res, nil
}

// Enable re-arms a disabled alarm from scratch. The resolver error is
// returned when the alarm still has nothing to schedule.
func (m *Machine) Enable(a *model.Alarm, now time.Time) (Result, error) {
	var res Result
	switch a.State {
	case model.StateDeleted:
		return res, ErrUnknownAlarm
	case model.StateDisabled:
	default:
		if a.Enabled {
			return res, nil
		}
	}

	a.Enabled = true
	a.RepeatAnchor = nil
	a.SkippedOccurrenceAt = nil
	m.arm(a, now, &res)
	if res.Unschedulable != nil {
		return res, res.Unschedulable
	}
	return res, nil
}

// SkipNext drops the next upcoming occurrence. A scheduled alarm is re-armed
// right away; a ringing one consumes the skip when it is re-armed.
func (m *Machine) SkipNext(a *model.Alarm, now time.Time) (Result, error) {
	var res Result
	if a.State == model.StateDeleted {
		return res, ErrUnknownAlarm
	}
	if !a.Enabled || a.State == model.StateDisabled {
		return res, invalid("alarm %s is disabled", a.ID)
	}
	if a.SkipNextOccurrence {
		return res, nil
	}
	a.SkipNextOccurrence = true
	if a.State == model.StateScheduled {
		m.arm(a, now, &res)
	}
	return res, nil
}

// Delete is terminal.
func (m *Machine) Delete(a *model.Alarm, now time.Time) Result {
	var res Result
	clearActive(a)
	a.NextFireAt = nil
	res.record(a, model.StateDeleted, now, nil)
	return res
}

func (m *Machine) finish(a *model.Alarm, to model.State, now time.Time, skipAhead *time.Time, res *Result) {
	res.record(a, to, now, a.NextFireAt)
	clearActive(a)
	if a.IsOneShot() {
		a.SpecificDate = nil
	}
	if skipAhead != nil {
		v := *skipAhead
		a.SkippedOccurrenceAt = &v
	}
	m.arm(a, now, res)
}

func (m *Machine) arm(a *model.Alarm, now time.Time, res *Result) {
	if !a.Enabled {
		m.toDisabled(a, now, res)
		return
	}
	if recurrence.NeedsAnchor(a) && a.RepeatAnchor == nil {
		anchor := now
		a.RepeatAnchor = &anchor
	}
	if a.SkippedOccurrenceAt != nil && a.SkippedOccurrenceAt.Before(now) {
		a.SkippedOccurrenceAt = nil
	}

	occ, err := m.resolver.Next(a, searchFrom(a, now))
	if occ.SkipConsumed {
		skipped := occ.Skipped
		a.SkipNextOccurrence = false
		a.SkippedOccurrenceAt = &skipped
	}
	if err != nil {
		res.Unschedulable = err
		a.Enabled = false
		m.toDisabled(a, now, res)
		return
	}

	next := occ.At
	a.NextFireAt = &next
	res.record(a, model.StateScheduled, now, &next)
}

func (m *Machine) toDisabled(a *model.Alarm, now time.Time, res *Result) {
	clearActive(a)
	a.NextFireAt = nil
	a.SkippedOccurrenceAt = nil
	res.record(a, model.StateDisabled, now, nil)
}

// upcomingInWindow finds the occurrence after the one ringing now and
// reports whether early dismissal may consume it as well.
func (m *Machine) upcomingInWindow(a *model.Alarm, now time.Time) (time.Time, bool) {
	if !a.DismissEarlyEnabled || a.IsOneShot() {
		return time.Time{}, false
	}
	candidate := a.Clone()
	candidate.SkipNextOccurrence = false
	occ, err := m.resolver.Next(candidate, searchFrom(candidate, now))
	if err != nil {
		return time.Time{}, false
	}
	if occ.At.Sub(now) > m.earlyWindow(a) {
		return time.Time{}, false
	}
	return occ.At, true
}

func (m *Machine) snoozeDuration(a *model.Alarm) time.Duration {
	if a.SnoozeDurationSeconds > 0 {
		return time.Duration(a.SnoozeDurationSeconds) * time.Second
	}
	if m.defaults.SnoozeDurationSec > 0 {
		return time.Duration(m.defaults.SnoozeDurationSec) * time.Second
	}
	return time.Minute
}

func (m *Machine) earlyWindow(a *model.Alarm) time.Duration {
	if a.DismissEarlyWindowSeconds > 0 {
		return time.Duration(a.DismissEarlyWindowSeconds) * time.Second
	}
	return time.Duration(m.defaults.DismissEarlyWindowSec) * time.Second
}

func searchFrom(a *model.Alarm, now time.Time) time.Time {
	if a.SkippedOccurrenceAt != nil && a.SkippedOccurrenceAt.After(now) {
		return *a.SkippedOccurrenceAt
	}
	return now
}

func clearActive(a *model.Alarm) {
	a.IsActive = false
	a.ActiveSince = nil
	a.SnoozedUntil = nil
	a.CurrentSnoozeCount = 0
}

func invalid(format string, args ...any) error {
	return &transitionError{reason: fmt.Sprintf(format, args...)}
}
