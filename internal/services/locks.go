package services

import "sync"

// userLocks serializes read-modify-save cycles per user id. Entries are
// dropped once no goroutine holds or waits on them.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

// lock blocks until key is free and returns the matching unlock.
func (l *userLocks) lock(key string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*userLock)
	}
	ul, ok := l.locks[key]
	if !ok {
		ul = &userLock{}
		l.locks[key] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()

	return func() {
		ul.Unlock()

		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
