package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"alarmclock/backend/internal/model"
)

// Policy holds the scheduling defaults handed to the resolver, the lifecycle
// machine and the coordinator at construction.
type Policy struct {
	Timezone            string        `yaml:"timezone"`
	WeekStart           string        `yaml:"week_start"`
	CallbackBudgetSec   int           `yaml:"callback_budget_sec"`
	CalendarHorizonDays int           `yaml:"calendar_horizon_days"`
	Alarm               AlarmDefaults `yaml:"alarm"`
}

// AlarmDefaults is the policy's copy of the per-alarm defaults.
type AlarmDefaults = model.AlarmDefaults

func DefaultPolicy() Policy {
	return Policy{
		Timezone:            "",
		WeekStart:           "monday",
		CallbackBudgetSec:   10,
		CalendarHorizonDays: 14,
		Alarm: AlarmDefaults{
			Hour:                  7,
			Minute:                0,
			MaxSnoozeCount:        3,
			SnoozeDurationSec:     9 * 60,
			AutoSnoozeAfterSec:    5 * 60,
			AutoDismissAfterSec:   15 * 60,
			DismissEarlyWindowSec: 60 * 60,
			ReminderLeadSec:       30 * 60,
		},
	}
}

// LoadPolicy reads a YAML policy over the defaults. A missing file yields
// the defaults; a malformed or invalid one is an error.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return policy, nil
	}
	if err != nil {
		return Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, fmt.Errorf("invalid policy %s: %w", path, err)
	}
	return policy, nil
}

func (p Policy) Validate() error {
	if _, err := p.WeekStartDay(); err != nil {
		return err
	}
	if _, err := p.Location(); err != nil {
		return err
	}
	if p.CallbackBudgetSec <= 0 {
		return fmt.Errorf("callback_budget_sec must be positive")
	}
	if p.CalendarHorizonDays <= 0 {
		return fmt.Errorf("calendar_horizon_days must be positive")
	}

	if err := p.Alarm.Validate(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone; empty means the process-local zone.
func (p Policy) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", p.Timezone, err)
	}
	return loc, nil
}

func (p Policy) WeekStartDay() (time.Weekday, error) {
	day, err := model.ParseWeekStart(p.WeekStart)
	if err != nil {
		return 0, fmt.Errorf("unsupported week_start %q: %w", p.WeekStart, err)
	}
	return day, nil
}

// Preferences is what a newly registered user starts with.
func (p Policy) Preferences() model.Preferences {
	defaults := p.Alarm
	prefs := model.Preferences{WeekStart: p.WeekStart, AlarmDefaults: &defaults}
	if err := prefs.Normalize(); err != nil {
		prefs.WeekStart = "monday"
	}
	return prefs
}

func (p Policy) CallbackBudget() time.Duration {
	return time.Duration(p.CallbackBudgetSec) * time.Second
}

func (p Policy) CalendarHorizon() time.Duration {
	return time.Duration(p.CalendarHorizonDays) * 24 * time.Hour
}
