package scheduler

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrExactNotPermitted is returned by a Platform that may not arm exact timers.
var ErrExactNotPermitted = errors.New("exact timers not permitted")

// Platform arms one-shot wake-ups. Arming an existing key replaces it.
type Platform interface {
	Arm(key string, at time.Time, onFire func()) error
	Cancel(key string)
	// Pending lists outstanding timers by key.
	Pending() map[string]time.Time
}

// TimerPlatform is an in-process Platform backed by time.AfterFunc.
type TimerPlatform struct {
	mu           sync.Mutex
	timers       map[string]*armedTimer
	gen          uint64
	exactAllowed bool
}

type armedTimer struct {
	timer *time.Timer
	gen   uint64
	at    time.Time
}

var _ Platform = (*TimerPlatform)(nil)

func NewTimerPlatform() *TimerPlatform {
	return &TimerPlatform{
		timers:       make(map[string]*armedTimer),
		exactAllowed: true,
	}
}

// SetExactAllowed models the host's exact-timer permission.
func (p *TimerPlatform) SetExactAllowed(allowed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exactAllowed = allowed
}

func (p *TimerPlatform) ExactAllowed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exactAllowed
}

func (p *TimerPlatform) Arm(key string, at time.Time, onFire func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.exactAllowed {
		return ErrExactNotPermitted
	}
	if old, ok := p.timers[key]; ok {
		old.timer.Stop()
	}

	p.gen++
	gen := p.gen
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	timer := time.AfterFunc(delay, func() {
		p.mu.Lock()
		cur, ok := p.timers[key]
		if !ok || cur.gen != gen {
			p.mu.Unlock()
			return
		}
		delete(p.timers, key)
		p.mu.Unlock()
		onFire()
	})
	p.timers[key] = &armedTimer{timer: timer, gen: gen, at: at}
	return nil
}

func (p *TimerPlatform) Cancel(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.timers[key]; ok {
		t.timer.Stop()
		delete(p.timers, key)
	}
}

func (p *TimerPlatform) Pending() map[string]time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]time.Time, len(p.timers))
	for key, t := range p.timers {
		out[key] = t.at
	}
	return out
}

// Stop cancels every outstanding timer.
func (p *TimerPlatform) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, t := range p.timers {
		t.timer.Stop()
		delete(p.timers, key)
	}
}

func sortedKeys(pending map[string]time.Time) []string {
	keys := make([]string, 0, len(pending))
	for key := range pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
