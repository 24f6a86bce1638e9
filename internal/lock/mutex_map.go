package lock

import "sync"

// MutexMap hands out one mutex per key. Entries are dropped once no caller
// holds or waits on them, so short-lived keys do not accumulate.
type MutexMap struct {
	mu      sync.Mutex
	mutexes map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewMutexMap() *MutexMap {
	return &MutexMap{
		mutexes: make(map[string]*entry),
	}
}

func (m *MutexMap) Lock(key string) {
	m.acquire(key).mu.Lock()
}

func (m *MutexMap) Unlock(key string) {
	m.mu.Lock()
	e, ok := m.mutexes[key]
	if !ok {
		m.mu.Unlock()
		panic("lock: unlock of unlocked key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(m.mutexes, key)
	}
	m.mu.Unlock()
	e.mu.Unlock()
}

// With runs fn while holding the lock for key.
func (m *MutexMap) With(key string, fn func()) {
	m.Lock(key)
	defer m.Unlock(key)
	fn()
}

// Len reports how many keys are currently held or awaited.
func (m *MutexMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mutexes)
}

func (m *MutexMap) acquire(key string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.mutexes[key]
	if !ok {
		e = &entry{}
		m.mutexes[key] = e
	}
	e.refs++
	return e
}
