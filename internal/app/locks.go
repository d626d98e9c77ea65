package app

import "sync"

// roomLocks serializes mutating operations per room code. The underlying
// store is a plain load-mutate-save document store without transactional
// isolation, so every mutation must hold the room's lock across the whole
// read-modify-write span.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for code and returns its unlock function.
func (l *roomLocks) acquire(code string) func() {
	l.mu.Lock()
	lock, ok := l.locks[code]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[code] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
