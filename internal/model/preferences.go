package model

import (
	"fmt"
	"strings"
	"time"
)

// AlarmDefaults populate newly created alarms. The server policy carries one
// set; each user carries a copy seeded from it at registration.
type AlarmDefaults struct {
	Hour                      int  `yaml:"hour" json:"hour"`
	Minute                    int  `yaml:"minute" json:"minute"`
	MaxSnoozeCount            int  `yaml:"max_snooze_count" json:"maxSnoozeCount"`
	SnoozeDurationSec         int  `yaml:"snooze_duration_sec" json:"snoozeDurationSeconds"`
	AutoSnoozeEnabled         bool `yaml:"auto_snooze_enabled" json:"autoSnoozeEnabled"`
	AutoSnoozeAfterSec        int  `yaml:"auto_snooze_after_sec" json:"autoSnoozeAfterSeconds"`
	AutoDismissAfterSec       int  `yaml:"auto_dismiss_after_sec" json:"autoDismissAfterSeconds"`
	DismissEarlyEnabled       bool `yaml:"dismiss_early_enabled" json:"dismissEarlyEnabled"`
	DismissEarlyWindowSec     int  `yaml:"dismiss_early_window_sec" json:"dismissEarlyWindowSeconds"`
	ShowUpcomingReminder      bool `yaml:"show_upcoming_reminder" json:"showUpcomingReminder"`
	ReminderLeadSec           int  `yaml:"reminder_lead_sec" json:"reminderLeadSeconds"`
	ReminderRepeatIntervalSec int  `yaml:"reminder_repeat_interval_sec" json:"reminderRepeatIntervalSeconds"`
}

func (d AlarmDefaults) Validate() error {
	if d.Hour < 0 || d.Hour > 23 || d.Minute < 0 || d.Minute > 59 {
		return fmt.Errorf("alarm default time %02d:%02d out of range", d.Hour, d.Minute)
	}
	if d.MaxSnoozeCount < UnlimitedSnoozes {
		return fmt.Errorf("max snooze count must be %d or greater", UnlimitedSnoozes)
	}
	for name, v := range map[string]int{
		"snooze duration":          d.SnoozeDurationSec,
		"auto snooze delay":        d.AutoSnoozeAfterSec,
		"auto dismiss delay":       d.AutoDismissAfterSec,
		"dismiss early window":     d.DismissEarlyWindowSec,
		"reminder lead":            d.ReminderLeadSec,
		"reminder repeat interval": d.ReminderRepeatIntervalSec,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// Preferences are per-user settings. A nil AlarmDefaults falls back to the
// server policy.
type Preferences struct {
	WeekStart     string         `json:"weekStart"`
	AlarmDefaults *AlarmDefaults `json:"alarmDefaults,omitempty"`
}

// StartDay resolves WeekStart, treating unknown values as Monday.
func (p Preferences) StartDay() time.Weekday {
	day, err := ParseWeekStart(p.WeekStart)
	if err != nil {
		return time.Monday
	}
	return day
}

// Normalize validates p and rewrites WeekStart to its full lowercase name.
func (p *Preferences) Normalize() error {
	day, err := ParseWeekStart(p.WeekStart)
	if err != nil {
		return err
	}
	p.WeekStart = strings.ToLower(day.String())
	if p.AlarmDefaults != nil {
		return p.AlarmDefaults.Validate()
	}
	return nil
}

// Defaults returns the user's alarm defaults, or fallback when unset.
func (p Preferences) Defaults(fallback AlarmDefaults) AlarmDefaults {
	if p.AlarmDefaults == nil {
		return fallback
	}
	return *p.AlarmDefaults
}
