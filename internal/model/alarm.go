package model

import "time"

type State string

const (
	StateScheduled      State = "scheduled"
	StateFiring         State = "firing"
	StateSnoozed        State = "snoozed"
	StateDismissedEarly State = "dismissed_early"
	StateDismissed      State = "dismissed"
	StateMissed         State = "missed"
	StateDisabled       State = "disabled"
	StateDeleted        State = "deleted"
)

type RepeatUnit string

const (
	RepeatHour RepeatUnit = "hour"
	RepeatDay  RepeatUnit = "day"
	RepeatWeek RepeatUnit = "week"
)

func (u RepeatUnit) Valid() bool {
	return u == RepeatHour || u == RepeatDay || u == RepeatWeek
}

// UnlimitedSnoozes as MaxSnoozeCount allows snoozing without bound.
const UnlimitedSnoozes = -1

// Alarm is the persisted alarm definition plus its runtime fields.
type Alarm struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
	Hour    int    `json:"hour"`
	Minute  int    `json:"minute"`

	Weekdays     WeekdaySet `json:"weekdays"`
	SpecificDate *Date      `json:"specificDate,omitempty"`

	RepeatFrequency         int        `json:"repeatFrequency"`
	RepeatUnit              RepeatUnit `json:"repeatUnit"`
	DaysToRunBeforeStarting WeekdaySet `json:"daysToRunBeforeStarting"`
	// RepeatAnchor is when the repeat configuration was last (re)armed.
	RepeatAnchor *time.Time `json:"repeatAnchor,omitempty"`

	SkipNextOccurrence bool `json:"skipNextOccurrence"`
	// SkippedOccurrenceAt remembers a consumed skip so recomputation never
	// returns the skipped instant again.
	SkippedOccurrenceAt *time.Time `json:"skippedOccurrenceAt,omitempty"`

	MaxSnoozeCount         int  `json:"maxSnoozeCount"`
	SnoozeDurationSeconds  int  `json:"snoozeDurationSeconds"`
	AutoSnoozeEnabled      bool `json:"autoSnoozeEnabled"`
	AutoSnoozeAfterSeconds int  `json:"autoSnoozeAfterSeconds"`
	UseEasySnooze          bool `json:"useEasySnooze"`

	AutoDismissAfterSeconds   int  `json:"autoDismissAfterSeconds"`
	DismissEarlyEnabled       bool `json:"dismissEarlyEnabled"`
	DismissEarlyWindowSeconds int  `json:"dismissEarlyWindowSeconds"`

	ShowUpcomingReminder          bool `json:"showUpcomingReminder"`
	ReminderLeadSeconds           int  `json:"reminderLeadSeconds"`
	ReminderRepeatIntervalSeconds int  `json:"reminderRepeatIntervalSeconds"`

	RequiredNFCTagID string `json:"requiredNfcTagId"`

	State              State      `json:"state"`
	IsActive           bool       `json:"isActive"`
	ActiveSince        *time.Time `json:"activeSince,omitempty"`
	CurrentSnoozeCount int        `json:"currentSnoozeCount"`
	SnoozedUntil       *time.Time `json:"snoozedUntil,omitempty"`
	NextFireAt         *time.Time `json:"nextFireAt,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsOneShot reports whether the alarm is tied to a specific date rather than weekdays.
func (a *Alarm) IsOneShot() bool {
	return a.Weekdays.IsEmpty()
}

func (a *Alarm) CanSnoozeAgain() bool {
	return a.MaxSnoozeCount < 0 || a.CurrentSnoozeCount < a.MaxSnoozeCount
}

// Clone returns a deep copy so callers can mutate without aliasing pointer fields.
func (a *Alarm) Clone() *Alarm {
	c := *a
	if a.SpecificDate != nil {
		d := *a.SpecificDate
		c.SpecificDate = &d
	}
	c.RepeatAnchor = cloneTime(a.RepeatAnchor)
	c.SkippedOccurrenceAt = cloneTime(a.SkippedOccurrenceAt)
	c.ActiveSince = cloneTime(a.ActiveSince)
	c.SnoozedUntil = cloneTime(a.SnoozedUntil)
	c.NextFireAt = cloneTime(a.NextFireAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
