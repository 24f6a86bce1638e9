package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTimerKey(t *testing.T) {
	id, kind, ok := ParseTimerKey(TimerKey("0b6f2c1e-9a4d-4a51-8c41-2f3d9e0a7b11", KindAutoDismiss))
	assert.True(t, ok)
	assert.Equal(t, "0b6f2c1e-9a4d-4a51-8c41-2f3d9e0a7b11", id)
	assert.Equal(t, KindAutoDismiss, kind)

	for _, key := range []string{"a1", "a1_reminder", legacyRequestCode("a1"), "alarm/a1/bogus", "alarm//fire", "alarm/"} {
		_, _, ok := ParseTimerKey(key)
		assert.False(t, ok, key)
	}
}

func TestLegacyRequestCodeIsStable(t *testing.T) {
	assert.Equal(t, legacyRequestCode("a1"), legacyRequestCode("a1"))
	assert.NotEqual(t, legacyRequestCode("a1"), legacyRequestCode("a2"))
	assert.Len(t, legacyKeys("a1"), 3)
}

func TestParseTrigger(t *testing.T) {
	trigger, err := ParseTrigger("timezone_changed")
	assert.NoError(t, err)
	assert.Equal(t, TriggerTimezoneChanged, trigger)

	_, err = ParseTrigger("reboot")
	assert.Error(t, err)
}
