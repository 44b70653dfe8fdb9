package store

import "sync"

// userLocks serializes operations per namespace key. Different namespaces
// never share a lock, so cross-user calls proceed fully concurrently.
type userLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *userLocks) lock(userKey string) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	um, ok := l.m[userKey]
	if !ok {
		um = &sync.Mutex{}
		l.m[userKey] = um
	}
	l.mu.Unlock()

	um.Lock()
	return um.Unlock
}
