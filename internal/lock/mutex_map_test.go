package lock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMutexMap_LockUnlock(t *testing.T) {
	m := NewMutexMap()

	m.Lock("alarm-1")
	m.Unlock("alarm-1")

	m.Lock("alarm-1")
	m.Unlock("alarm-1")

	assert.Zero(t, m.Len())
}

func TestMutexMap_DifferentKeys(t *testing.T) {
	m := NewMutexMap()
	done := make(chan struct{})

	m.Lock("alarm-1")
	go func() {
		m.Lock("alarm-2")
		m.Unlock("alarm-2")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("alarm-2 blocked behind alarm-1")
	}
	m.Unlock("alarm-1")
}

func TestMutexMap_SerializesSameKey(t *testing.T) {
	m := NewMutexMap()
	var inside, maxInside int64
	var counter int64

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.With("shared", func() {
				n := atomic.AddInt64(&inside, 1)
				if n > atomic.LoadInt64(&maxInside) {
					atomic.StoreInt64(&maxInside, n)
				}
				counter++
				atomic.AddInt64(&inside, -1)
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), counter)
	assert.Equal(t, int64(1), maxInside)
	assert.Zero(t, m.Len())
}

func TestMutexMap_UnlockUnknownPanics(t *testing.T) {
	m := NewMutexMap()
	assert.Panics(t, func() { m.Unlock("never-locked") })
}
