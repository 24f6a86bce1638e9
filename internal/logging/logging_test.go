package logging

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(log.New(&buf, "", 0), "scheduler", LevelInfo)
	l.now = func() time.Time { return time.Date(2026, time.October, 19, 7, 0, 0, 0, time.UTC) }

	l.Debugf("hidden")
	l.Infof("armed alarm=%s", "a1")
	l.With("history").Errorf("insert failed")

	assert.Equal(t,
		"2026-10-19T07:00:00Z INFO scheduler: armed alarm=a1\n"+
			"2026-10-19T07:00:00Z ERROR history: insert failed\n",
		buf.String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestDiscard(t *testing.T) {
	var l *Logger
	l.Errorf("nil logger is a no-op")
	Discard().Errorf("dropped")
}
