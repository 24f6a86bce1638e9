package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferences_Normalize(t *testing.T) {
	prefs := Preferences{WeekStart: " SAT "}
	require.NoError(t, prefs.Normalize())
	assert.Equal(t, "saturday", prefs.WeekStart)
	assert.Equal(t, time.Saturday, prefs.StartDay())

	bad := Preferences{WeekStart: "thursday"}
	assert.ErrorIs(t, bad.Normalize(), ErrInvalidWeekday)

	negative := Preferences{AlarmDefaults: &AlarmDefaults{SnoozeDurationSec: -1}}
	assert.Error(t, negative.Normalize())
}

func TestPreferences_DefaultsFallBack(t *testing.T) {
	fallback := AlarmDefaults{Hour: 7, MaxSnoozeCount: 3}
	assert.Equal(t, fallback, Preferences{}.Defaults(fallback))

	own := AlarmDefaults{Hour: 5, Minute: 45}
	assert.Equal(t, own, Preferences{AlarmDefaults: &own}.Defaults(fallback))
	assert.Equal(t, time.Monday, Preferences{WeekStart: "garbage"}.StartDay())
}
