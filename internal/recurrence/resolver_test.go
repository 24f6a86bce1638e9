package recurrence

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alarmclock/backend/internal/model"
)

// 2026-10-19 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.October, day, hour, minute, 0, 0, time.UTC)
}

func weekdays(t *testing.T, days ...time.Weekday) model.WeekdaySet {
	t.Helper()
	s, err := model.NewWeekdaySet(days...)
	require.NoError(t, err)
	return s
}

func weeklyAlarm(t *testing.T, hour, minute int, days ...time.Weekday) *model.Alarm {
	return &model.Alarm{
		ID:              "a1",
		Enabled:         true,
		Hour:            hour,
		Minute:          minute,
		Weekdays:        weekdays(t, days...),
		RepeatFrequency: 1,
		RepeatUnit:      model.RepeatWeek,
	}
}

func TestNext_WeeklyPicksEarliestEnabledDay(t *testing.T) {
	r := NewResolver(time.UTC)
	a := weeklyAlarm(t, 7, 0, time.Monday, time.Wednesday, time.Friday)

	occ, err := r.Next(a, at(20, 8, 0)) // Tuesday 08:00
	require.NoError(t, err)
	assert.Equal(t, at(21, 7, 0), occ.At)
	assert.False(t, occ.SkipConsumed)
}

func TestNext_WeeklySameDay(t *testing.T) {
	r := NewResolver(time.UTC)
	a := weeklyAlarm(t, 7, 0, time.Monday)

	occ, err := r.Next(a, at(19, 6, 0))
	require.NoError(t, err)
	assert.Equal(t, at(19, 7, 0), occ.At, "today counts while the time has not passed")

	occ, err = r.Next(a, at(19, 7, 0))
	require.NoError(t, err)
	assert.Equal(t, at(26, 7, 0), occ.At, "an occurrence equal to after is not strictly after")
}

func TestNext_SingleWeekdayWithinSevenDays(t *testing.T) {
	r := NewResolver(time.UTC)
	for d := time.Sunday; d <= time.Saturday; d++ {
		a := weeklyAlarm(t, 6, 45, d)
		for h := 0; h < 14*24; h += 5 {
			after := at(19, 0, 0).Add(time.Duration(h) * time.Hour)
			occ, err := r.Next(a, after)
			require.NoError(t, err)
			assert.True(t, occ.At.After(after))
			assert.LessOrEqual(t, occ.At.Sub(after), 7*24*time.Hour)
			assert.Equal(t, d, occ.At.Weekday())
		}
	}
}

func TestNext_EveryTwoWeeks(t *testing.T) {
	r := NewResolver(time.UTC)
	anchor := at(19, 5, 0)
	a := weeklyAlarm(t, 7, 0, time.Monday)
	a.RepeatFrequency = 2
	a.DaysToRunBeforeStarting = weekdays(t, time.Monday)
	a.RepeatAnchor = &anchor

	occ, err := r.Next(a, anchor)
	require.NoError(t, err)
	assert.Equal(t, at(19, 7, 0), occ.At, "week 0")

	occ, err = r.Next(a, occ.At)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.November, 2, 7, 0, 0, 0, time.UTC), occ.At, "week 2, skipping week 1")

	// From inside week 1 the next occurrence is still week 2.
	occ, err = r.Next(a, at(26, 6, 0))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.November, 2, 7, 0, 0, 0, time.UTC), occ.At)

	occ, err = r.Next(a, occ.At)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.November, 16, 7, 0, 0, 0, time.UTC), occ.At, "week 4")
}

func TestNext_EveryThreeWeeksStartingMidWeek(t *testing.T) {
	r := NewResolver(time.UTC)
	anchor := at(19, 12, 0) // Monday noon; countdown starts Thursday
	a := weeklyAlarm(t, 9, 0, time.Monday, time.Thursday)
	a.RepeatFrequency = 3
	a.DaysToRunBeforeStarting = weekdays(t, time.Thursday)
	a.RepeatAnchor = &anchor

	occ, err := r.Next(a, anchor)
	require.NoError(t, err)
	assert.Equal(t, at(22, 9, 0), occ.At)

	occ, err = r.Next(a, occ.At)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.November, 9, 9, 0, 0, 0, time.UTC), occ.At, "Monday of week 3")
}

func TestNext_OneShot(t *testing.T) {
	r := NewResolver(time.UTC)
	date := model.Date{Year: 2026, Month: time.October, Day: 22}
	a := &model.Alarm{Hour: 6, Minute: 30, SpecificDate: &date, RepeatFrequency: 1, RepeatUnit: model.RepeatWeek}

	occ, err := r.Next(a, at(19, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, at(22, 6, 30), occ.At)

	_, err = r.Next(a, at(22, 6, 30))
	assert.ErrorIs(t, err, ErrExhausted)

	a.SpecificDate = nil
	_, err = r.Next(a, at(19, 0, 0))
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestNext_InvalidConfiguration(t *testing.T) {
	r := NewResolver(time.UTC)
	date := model.Date{Year: 2026, Month: time.October, Day: 22}

	tests := []struct {
		name  string
		alarm *model.Alarm
	}{
		{
			name:  "empty weekdays with hour unit",
			alarm: &model.Alarm{Hour: 7, SpecificDate: &date, RepeatFrequency: 1, RepeatUnit: model.RepeatHour},
		},
		{
			name:  "empty weekdays with day unit",
			alarm: &model.Alarm{Hour: 7, RepeatFrequency: 2, RepeatUnit: model.RepeatDay},
		},
		{
			name:  "zero frequency",
			alarm: &model.Alarm{Hour: 7, Weekdays: weekdays(t, time.Monday), RepeatUnit: model.RepeatWeek},
		},
		{
			name:  "hour out of range",
			alarm: &model.Alarm{Hour: 24, Weekdays: weekdays(t, time.Monday), RepeatFrequency: 1, RepeatUnit: model.RepeatWeek},
		},
		{
			name:  "unknown unit",
			alarm: &model.Alarm{Hour: 7, Weekdays: weekdays(t, time.Monday), RepeatFrequency: 1, RepeatUnit: "month"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Next(tt.alarm, at(19, 0, 0))
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestNext_Hourly(t *testing.T) {
	r := NewResolver(time.UTC)
	anchor := at(19, 0, 0)
	a := weeklyAlarm(t, 7, 0, time.Monday)
	a.RepeatUnit = model.RepeatHour
	a.RepeatFrequency = 8
	a.RepeatAnchor = &anchor

	occ, err := r.Next(a, at(19, 16, 0))
	require.NoError(t, err)
	assert.Equal(t, at(19, 23, 0), occ.At)

	occ, err = r.Next(a, at(19, 2, 0))
	require.NoError(t, err)
	assert.Equal(t, at(19, 7, 0), occ.At, "base instant itself when still ahead")
}

func TestNext_EveryOtherDay(t *testing.T) {
	r := NewResolver(time.UTC)
	anchor := at(19, 9, 0)
	a := weeklyAlarm(t, 7, 0, time.Monday)
	a.RepeatUnit = model.RepeatDay
	a.RepeatFrequency = 2
	a.RepeatAnchor = &anchor

	occ, err := r.Next(a, anchor)
	require.NoError(t, err)
	assert.Equal(t, at(21, 7, 0), occ.At)

	occ, err = r.Next(a, at(22, 8, 0))
	require.NoError(t, err)
	assert.Equal(t, at(23, 7, 0), occ.At)
}

func TestNext_PeriodicGatedByWeekdays(t *testing.T) {
	r := NewResolver(time.UTC)
	anchor := at(19, 9, 0)
	a := weeklyAlarm(t, 7, 0, time.Saturday, time.Sunday)
	a.RepeatUnit = model.RepeatDay
	a.RepeatFrequency = 1
	a.DaysToRunBeforeStarting = weekdays(t, time.Saturday)
	a.RepeatAnchor = &anchor

	occ, err := r.Next(a, anchor)
	require.NoError(t, err)
	assert.Equal(t, at(24, 7, 0), occ.At)
	assert.Equal(t, time.Saturday, occ.At.Weekday())

	// Without the gate the weekdays do not affect timing.
	a.DaysToRunBeforeStarting = 0
	occ, err = r.Next(a, anchor)
	require.NoError(t, err)
	assert.Equal(t, at(20, 7, 0), occ.At)
}

func TestNext_PeriodicGateGivesUp(t *testing.T) {
	r := NewResolver(time.UTC)
	anchor := at(19, 0, 0)
	a := weeklyAlarm(t, 7, 0, time.Tuesday)
	a.RepeatUnit = model.RepeatHour
	a.RepeatFrequency = 7 * 24 // always lands on Monday
	a.DaysToRunBeforeStarting = weekdays(t, time.Tuesday)
	a.RepeatAnchor = &anchor

	_, err := r.Next(a, anchor)
	assert.ErrorIs(t, err, ErrNoValidOccurrence)
}

func TestNext_SkipNextOccurrence(t *testing.T) {
	r := NewResolver(time.UTC)
	a := weeklyAlarm(t, 7, 0, time.Monday, time.Wednesday, time.Friday)
	a.SkipNextOccurrence = true

	occ, err := r.Next(a, at(20, 8, 0))
	require.NoError(t, err)
	assert.Equal(t, at(23, 7, 0), occ.At)
	assert.True(t, occ.SkipConsumed)
	assert.Equal(t, at(21, 7, 0), occ.Skipped)
	assert.True(t, a.SkipNextOccurrence, "resolver never mutates the alarm")
}

func TestNext_SkipConsumesOneShot(t *testing.T) {
	r := NewResolver(time.UTC)
	date := model.Date{Year: 2026, Month: time.October, Day: 22}
	a := &model.Alarm{Hour: 6, SpecificDate: &date, RepeatFrequency: 1, RepeatUnit: model.RepeatWeek, SkipNextOccurrence: true}

	occ, err := r.Next(a, at(19, 0, 0))
	assert.ErrorIs(t, err, ErrExhausted)
	assert.True(t, occ.SkipConsumed)
}

func TestNext_DaylightSavingGap(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	r := NewResolver(ny)

	a := weeklyAlarm(t, 2, 30, time.Sunday)
	occ, err := r.Next(a, time.Date(2026, time.March, 7, 12, 0, 0, 0, ny))
	require.NoError(t, err)

	// 02:30 does not exist on 2026-03-08; the occurrence still lands on that
	// Sunday, shifted by the zone's own normalization.
	assert.Equal(t, 8, occ.At.Day())
	assert.Equal(t, time.Sunday, occ.At.Weekday())
	assert.NotEqual(t, 2, occ.At.Hour())
}

func TestUpcoming(t *testing.T) {
	r := NewResolver(time.UTC)
	a := weeklyAlarm(t, 7, 0, time.Monday, time.Friday)

	got, err := r.Upcoming(a, at(19, 8, 0), at(31, 0, 0), 10)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(23, 7, 0), at(26, 7, 0), at(30, 7, 0)}, got)

	got, err = r.Upcoming(a, at(19, 8, 0), at(31, 0, 0), 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSetLocation(t *testing.T) {
	r := NewResolver(time.UTC)
	tokyo := time.FixedZone("JST", 9*60*60)
	r.SetLocation(tokyo)

	a := weeklyAlarm(t, 7, 0, time.Tuesday)
	occ, err := r.Next(a, at(19, 0, 0)) // Monday 09:00 JST
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 20, 7, 0, 0, 0, tokyo), occ.At)
	assert.Equal(t, at(19, 22, 0), occ.At.UTC())

	r.SetLocation(nil)
	assert.Equal(t, time.Local, r.Location())
}

func TestNeedsAnchor(t *testing.T) {
	a := weeklyAlarm(t, 7, 0, time.Monday)
	assert.False(t, NeedsAnchor(a))
	a.RepeatFrequency = 2
	assert.True(t, NeedsAnchor(a))
	a.RepeatFrequency = 1
	a.RepeatUnit = model.RepeatDay
	assert.True(t, NeedsAnchor(a))
	a.Weekdays = 0
	assert.False(t, NeedsAnchor(a))
}
