package common

import "sync"

// KeyedMutex provides per-key read/write locks. Replace sequences
// (delete-then-insert) for a portfolio must not interleave with reads or
// other writers for the same name; unrelated portfolios proceed in parallel.
//
// Locks are never evicted; the key space is bounded by the number of
// portfolio names, which is small.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.RWMutex)}
}

func (k *KeyedMutex) get(key string) *sync.RWMutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.RWMutex{}
		k.locks[key] = l
	}
	return l
}

// Lock acquires the write lock for key and returns the unlock function.
// Callers must release on all exit paths: unlock := km.Lock(name); defer unlock().
func (k *KeyedMutex) Lock(key string) func() {
	l := k.get(key)
	l.Lock()
	return l.Unlock
}

// RLock acquires the read lock for key and returns the unlock function.
func (k *KeyedMutex) RLock(key string) func() {
	l := k.get(key)
	l.RLock()
	return l.RUnlock
}
