// Package recurrence computes the next concrete fire instant of an alarm
// from its time of day, weekday set and repeat configuration.
package recurrence

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"alarmclock/backend/internal/model"
)

var (
	ErrInvalidConfiguration = errors.New("invalid recurrence configuration")
	ErrNoValidOccurrence    = errors.New("no valid occurrence")
	// ErrExhausted means the alarm has no next occurrence: a one-shot alarm
	// whose date has passed or was consumed.
	ErrExhausted = errors.New("no next occurrence")
)

// maxGateIterations bounds the advance-by-one-period loop used when a
// periodic occurrence lands on a weekday that is not enabled.
const maxGateIterations = 1000

// epochMonday is 1970-01-05, the first Monday after the Unix epoch, expressed
// in days since 1970-01-01.
const epochMonday = 4

type Occurrence struct {
	At time.Time
	// SkipConsumed is set when SkipNextOccurrence discarded one result; the
	// caller must clear the flag and persist the alarm.
	SkipConsumed bool
	Skipped      time.Time
}

// Resolver is safe for concurrent use. The location it uses for local-time
// arithmetic can be replaced at runtime when the host reports a timezone change.
type Resolver struct {
	loc atomic.Pointer[time.Location]
}

func NewResolver(loc *time.Location) *Resolver {
	r := &Resolver{}
	r.SetLocation(loc)
	return r
}

func (r *Resolver) Location() *time.Location {
	return r.loc.Load()
}

func (r *Resolver) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	r.loc.Store(loc)
}

// NeedsAnchor reports whether the alarm's recurrence counts periods from
// RepeatAnchor. Callers set the anchor before the first resolution so that
// later recomputations do not drift.
func NeedsAnchor(a *model.Alarm) bool {
	if a.Weekdays.IsEmpty() {
		return false
	}
	return a.RepeatUnit != model.RepeatWeek || a.RepeatFrequency > 1
}

// Next returns the first occurrence strictly after after, honoring
// SkipNextOccurrence. The alarm is not modified.
func (r *Resolver) Next(a *model.Alarm, after time.Time) (Occurrence, error) {
	first, err := r.next(a, after)
	if err != nil {
		return Occurrence{}, err
	}
	if !a.SkipNextOccurrence {
		return Occurrence{At: first}, nil
	}

	second, err := r.next(a, first.Add(time.Second))
	if err != nil {
		return Occurrence{SkipConsumed: true, Skipped: first}, err
	}
	return Occurrence{At: second, SkipConsumed: true, Skipped: first}, nil
}

// Upcoming lists up to limit occurrences in (after, until].
func (r *Resolver) Upcoming(a *model.Alarm, after, until time.Time, limit int) ([]time.Time, error) {
	out := make([]time.Time, 0, limit)
	occ, err := r.Next(a, after)
	for len(out) < limit {
		if errors.Is(err, ErrExhausted) {
			break
		}
		if err != nil {
			return nil, err
		}
		if occ.At.After(until) {
			break
		}
		out = append(out, occ.At)
		var at time.Time
		at, err = r.next(a, occ.At)
		occ = Occurrence{At: at}
	}
	return out, nil
}

func (r *Resolver) next(a *model.Alarm, after time.Time) (time.Time, error) {
	if err := Validate(a); err != nil {
		return time.Time{}, err
	}
	loc := r.Location()

	if a.Weekdays.IsEmpty() {
		if a.SpecificDate == nil {
			return time.Time{}, ErrExhausted
		}
		at := a.SpecificDate.At(a.Hour, a.Minute, loc)
		if at.After(after) {
			return at, nil
		}
		return time.Time{}, ErrExhausted
	}

	switch a.RepeatUnit {
	case model.RepeatWeek:
		if a.RepeatFrequency == 1 {
			return weekly(a, after, loc)
		}
		return everyNWeeks(a, after, loc)
	default:
		return periodic(a, after, loc)
	}
}

// Validate checks the fields the resolver depends on.
func Validate(a *model.Alarm) error {
	if a.Hour < 0 || a.Hour > 23 || a.Minute < 0 || a.Minute > 59 {
		return fmt.Errorf("%w: time %02d:%02d out of range", ErrInvalidConfiguration, a.Hour, a.Minute)
	}
	if !a.RepeatUnit.Valid() {
		return fmt.Errorf("%w: unknown repeat unit %q", ErrInvalidConfiguration, a.RepeatUnit)
	}
	if a.RepeatFrequency < 1 {
		return fmt.Errorf("%w: repeat frequency must be positive, got %d", ErrInvalidConfiguration, a.RepeatFrequency)
	}
	if a.Weekdays.IsEmpty() && a.RepeatUnit != model.RepeatWeek {
		return fmt.Errorf("%w: %s repeat requires at least one weekday", ErrInvalidConfiguration, a.RepeatUnit)
	}
	return nil
}

func weekly(a *model.Alarm, after time.Time, loc *time.Location) (time.Time, error) {
	today := model.DateOf(after.In(loc))
	for i := 0; i <= 7; i++ {
		cand := time.Date(today.Year, today.Month, today.Day+i, a.Hour, a.Minute, 0, 0, loc)
		if cand.After(after) && a.Weekdays.Contains(cand.Weekday()) {
			return cand, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: weekly scan found no day in %s", ErrNoValidOccurrence, a.Weekdays)
}

func everyNWeeks(a *model.Alarm, after time.Time, loc *time.Location) (time.Time, error) {
	anchor := after
	if a.RepeatAnchor != nil {
		anchor = *a.RepeatAnchor
	}
	starters := a.DaysToRunBeforeStarting
	if starters.IsEmpty() {
		starters = a.Weekdays
	}

	anchorDay := civilDays(model.DateOf(anchor.In(loc)))
	startDay := int64(-1)
	for i := int64(0); i < 7; i++ {
		if starters.Contains(weekdayOfCivil(anchorDay + i)) {
			startDay = anchorDay + i
			break
		}
	}
	if startDay < 0 {
		return time.Time{}, fmt.Errorf("%w: no starting weekday", ErrNoValidOccurrence)
	}
	w0 := weekIndex(startDay)
	n := int64(a.RepeatFrequency)

	day := civilDays(model.DateOf(after.In(loc)))
	if day < startDay {
		day = startDay
	}
	limit := day + 7*n + 7
	for ; day <= limit; day++ {
		if !a.Weekdays.Contains(weekdayOfCivil(day)) {
			continue
		}
		if (weekIndex(day)-w0)%n != 0 {
			continue
		}
		d := dateOfCivil(day)
		cand := d.At(a.Hour, a.Minute, loc)
		if cand.After(after) {
			return cand, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: no eligible week within %d weeks", ErrNoValidOccurrence, n+1)
}

func periodic(a *model.Alarm, after time.Time, loc *time.Location) (time.Time, error) {
	anchor := after
	if a.RepeatAnchor != nil {
		anchor = *a.RepeatAnchor
	}
	baseDate := model.DateOf(anchor.In(loc))
	base := baseDate.At(a.Hour, a.Minute, loc)
	freq := a.RepeatFrequency

	var nth func(k int) time.Time
	var k int
	switch a.RepeatUnit {
	case model.RepeatHour:
		period := time.Duration(freq) * time.Hour
		nth = func(k int) time.Time { return base.Add(time.Duration(k) * period) }
		if !base.After(after) {
			k = int(after.Sub(base)/period) + 1
		}
	default:
		// Day steps use calendar arithmetic so the wall-clock time survives DST.
		nth = func(k int) time.Time {
			return time.Date(baseDate.Year, baseDate.Month, baseDate.Day+k*freq, a.Hour, a.Minute, 0, 0, loc)
		}
		if !base.After(after) {
			elapsed := civilDays(model.DateOf(after.In(loc))) - civilDays(baseDate)
			k = int(elapsed) / freq
		}
	}

	cand := nth(k)
	for !cand.After(after) {
		k++
		cand = nth(k)
	}

	if a.DaysToRunBeforeStarting.IsEmpty() {
		return cand, nil
	}
	for i := 0; !a.Weekdays.Contains(cand.Weekday()); i++ {
		if i >= maxGateIterations {
			return time.Time{}, fmt.Errorf("%w: no permitted weekday after %d periods", ErrNoValidOccurrence, maxGateIterations)
		}
		k++
		cand = nth(k)
	}
	return cand, nil
}

func civilDays(d model.Date) int64 {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

func dateOfCivil(days int64) model.Date {
	return model.DateOf(time.Unix(days*86400, 0).UTC())
}

func weekdayOfCivil(days int64) time.Weekday {
	// 1970-01-01 was a Thursday.
	return time.Weekday((days%7 + 7 + 4) % 7)
}

func weekIndex(days int64) int64 {
	d := days - epochMonday
	if d < 0 {
		return (d - 6) / 7
	}
	return d / 7
}
