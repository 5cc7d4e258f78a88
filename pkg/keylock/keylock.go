// Package keylock provides a mutex keyed by string, for serializing work on
// a per-entity basis without holding one global lock.
package keylock

import "sync"

// lockEntry is a reference-counted mutex. The count tracks how many
// goroutines hold or are waiting on the lock so idle entries can be evicted.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// KeyLock hands out one mutex per key. Entries are removed as soon as the
// last holder releases, so the map does not grow with the keyspace.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// New creates an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*lockEntry)}
}

// Lock acquires the mutex for key, blocking until it is available.
func (kl *KeyLock) Lock(key string) {
	kl.mu.Lock()
	e, ok := kl.locks[key]
	if !ok {
		e = &lockEntry{}
		kl.locks[key] = e
	}
	e.refs++
	kl.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key. It must pair with a previous Lock call
// for the same key.
func (kl *KeyLock) Unlock(key string) {
	kl.mu.Lock()
	e, ok := kl.locks[key]
	if !ok {
		kl.mu.Unlock()
		panic("keylock: unlock of unlocked key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(kl.locks, key)
	}
	kl.mu.Unlock()

	e.mu.Unlock()
}
