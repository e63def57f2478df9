package service

import "sync"

// keyedMutex serializes check-then-act sequences on a per-key basis,
// typically keyed by expense ID. Entries are reference counted and
// removed once the last holder releases, so the map does not grow with
// the number of expenses ever touched.
type keyedMutex struct {
	mu   sync.Mutex
	keys map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{keys: make(map[string]*keyLock)}
}

// Lock blocks until the key is held and returns the release function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.keys[key]
	if !ok {
		l = &keyLock{}
		k.keys[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.keys, key)
		}
		k.mu.Unlock()
	}
}
