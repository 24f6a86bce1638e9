package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadPolicy_MissingFileUsesDefaults(t *testing.T) {
	policy, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), policy)
}

func TestLoadPolicy_OverridesDefaults(t *testing.T) {
	path := writePolicy(t, `
timezone: Europe/Berlin
week_start: sunday
callback_budget_sec: 4
alarm:
  hour: 6
  minute: 30
  max_snooze_count: -1
  snooze_duration_sec: 300
`)

	policy, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, 6, policy.Alarm.Hour)
	assert.Equal(t, 30, policy.Alarm.Minute)
	assert.Equal(t, -1, policy.Alarm.MaxSnoozeCount)
	assert.Equal(t, 300, policy.Alarm.SnoozeDurationSec)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultPolicy().Alarm.AutoDismissAfterSec, policy.Alarm.AutoDismissAfterSec)
	assert.Equal(t, 4*time.Second, policy.CallbackBudget())

	start, err := policy.WeekStartDay()
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, start)

	loc, err := policy.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadPolicy_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "malformed", yaml: "alarm: [1, 2"},
		{name: "bad week start", yaml: "week_start: wednesday"},
		{name: "unknown timezone", yaml: "timezone: Mars/Olympus"},
		{name: "negative duration", yaml: "alarm:\n  snooze_duration_sec: -5"},
		{name: "hour out of range", yaml: "alarm:\n  hour: 24"},
		{name: "zero budget", yaml: "callback_budget_sec: 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPolicy(writePolicy(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestPolicy_PreferencesSeedNewUsers(t *testing.T) {
	policy := DefaultPolicy()
	policy.WeekStart = "Sun"
	policy.Alarm.Hour = 6

	prefs := policy.Preferences()
	assert.Equal(t, "sunday", prefs.WeekStart)
	require.NotNil(t, prefs.AlarmDefaults)
	assert.Equal(t, 6, prefs.AlarmDefaults.Hour)

	// The seed is a copy; later policy edits do not reach it.
	policy.Alarm.Hour = 9
	assert.Equal(t, 6, prefs.AlarmDefaults.Hour)
}
