package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerPlatform_FiresOnce(t *testing.T) {
	p := NewTimerPlatform()
	defer p.Stop()

	fired := make(chan struct{}, 2)
	require.NoError(t, p.Arm("k", time.Now().Add(10*time.Millisecond), func() { fired <- struct{}{} }))

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	assert.Empty(t, p.Pending())
}

func TestTimerPlatform_RearmReplaces(t *testing.T) {
	p := NewTimerPlatform()
	defer p.Stop()

	var first, second atomic.Int32
	require.NoError(t, p.Arm("k", time.Now().Add(20*time.Millisecond), func() { first.Add(1) }))
	require.NoError(t, p.Arm("k", time.Now().Add(30*time.Millisecond), func() { second.Add(1) }))
	assert.Len(t, p.Pending(), 1)

	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, first.Load())
}

func TestTimerPlatform_Cancel(t *testing.T) {
	p := NewTimerPlatform()
	defer p.Stop()

	var fired atomic.Int32
	require.NoError(t, p.Arm("k", time.Now().Add(20*time.Millisecond), func() { fired.Add(1) }))
	p.Cancel("k")
	p.Cancel("unknown")

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fired.Load())
	assert.Empty(t, p.Pending())
}

func TestTimerPlatform_ExactPermission(t *testing.T) {
	p := NewTimerPlatform()
	defer p.Stop()

	p.SetExactAllowed(false)
	assert.False(t, p.ExactAllowed())
	assert.ErrorIs(t, p.Arm("k", time.Now().Add(time.Hour), func() {}), ErrExactNotPermitted)
	assert.Empty(t, p.Pending())

	p.SetExactAllowed(true)
	require.NoError(t, p.Arm("k", time.Now().Add(time.Hour), func() {}))
	assert.Len(t, p.Pending(), 1)
}
