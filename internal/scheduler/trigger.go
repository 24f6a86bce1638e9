package scheduler

import "fmt"

// Trigger names the external signal that caused a refresh.
type Trigger string

const (
	TriggerBootCompleted       Trigger = "boot_completed"
	TriggerLockedBootCompleted Trigger = "locked_boot_completed"
	TriggerTimeChanged         Trigger = "time_changed"
	TriggerTimezoneChanged     Trigger = "timezone_changed"
	TriggerLocaleChanged       Trigger = "locale_changed"
	TriggerAppUpdated          Trigger = "app_updated"
	TriggerPermissionChanged   Trigger = "permission_state_changed"
)

var triggers = []Trigger{
	TriggerBootCompleted,
	TriggerLockedBootCompleted,
	TriggerTimeChanged,
	TriggerTimezoneChanged,
	TriggerLocaleChanged,
	TriggerAppUpdated,
	TriggerPermissionChanged,
}

func ParseTrigger(s string) (Trigger, error) {
	for _, t := range triggers {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown trigger %q", s)
}
