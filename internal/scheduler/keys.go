package scheduler

import (
	"fmt"
	"hash/fnv"
	"strings"
)

type TimerKind string

const (
	KindFire        TimerKind = "fire"
	KindReminder    TimerKind = "reminder"
	KindAutoDismiss TimerKind = "auto-dismiss"
	KindAutoSnooze  TimerKind = "auto-snooze"
)

var timerKinds = []TimerKind{KindFire, KindReminder, KindAutoDismiss, KindAutoSnooze}

const keyPrefix = "alarm/"

func TimerKey(alarmID string, kind TimerKind) string {
	return keyPrefix + alarmID + "/" + string(kind)
}

// ParseTimerKey splits a current-scheme key. Legacy keys do not parse.
func ParseTimerKey(key string) (alarmID string, kind TimerKind, ok bool) {
	rest, found := strings.CutPrefix(key, keyPrefix)
	if !found {
		return "", "", false
	}
	i := strings.LastIndexByte(rest, '/')
	if i <= 0 {
		return "", "", false
	}
	alarmID, kind = rest[:i], TimerKind(rest[i+1:])
	for _, k := range timerKinds {
		if k == kind {
			return alarmID, kind, true
		}
	}
	return "", "", false
}

// legacyKeys lists the identifiers older releases armed timers under: the
// bare id for the alarm itself, an id-suffixed reminder, and a numeric
// request code derived from the id.
func legacyKeys(alarmID string) []string {
	return []string{
		alarmID,
		alarmID + "_reminder",
		legacyRequestCode(alarmID),
	}
}

func legacyRequestCode(alarmID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(alarmID))
	return fmt.Sprintf("legacy/%d", h.Sum32())
}
