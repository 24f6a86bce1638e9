package model

import "time"

const (
	OutcomeFired          = "fired"
	OutcomeSnoozed        = "snoozed"
	OutcomeDismissed      = "dismissed"
	OutcomeDismissedEarly = "dismissed_early"
	OutcomeMissed         = "missed"
	OutcomeDisabled       = "disabled"
)

// Occurrence is one recorded lifecycle outcome for an alarm.
type Occurrence struct {
	ID           string     `json:"id"`
	AlarmID      string     `json:"alarmId"`
	UserID       string     `json:"userId"`
	Outcome      string     `json:"outcome"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	SnoozeCount  int        `json:"snoozeCount"`
	RecordedAt   time.Time  `json:"recordedAt"`
}

// OutcomeForState maps the state an alarm entered to the outcome recorded for it.
func OutcomeForState(s State) (string, bool) {
	switch s {
	case StateFiring:
		return OutcomeFired, true
	case StateSnoozed:
		return OutcomeSnoozed, true
	case StateDismissed:
		return OutcomeDismissed, true
	case StateDismissedEarly:
		return OutcomeDismissedEarly, true
	case StateMissed:
		return OutcomeMissed, true
	case StateDisabled:
		return OutcomeDisabled, true
	}
	return "", false
}
