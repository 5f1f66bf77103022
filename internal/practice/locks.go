package practice

import "sync"

type answerKey struct {
	userID     int64
	questionID int64
}

// keyedMutex serializes work per (user, question). Entries are dropped once
// nobody holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[answerKey]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[answerKey]*keyLock)}
}

// lock blocks until key is free and returns the matching unlock.
func (k *keyedMutex) lock(key answerKey) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
