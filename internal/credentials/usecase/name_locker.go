package usecase

import "sync"

// nameLocker serializes writers of the same credential name within the process. Writers
// across processes are serialized by the row lock taken in CredentialRepository.LockName.
type nameLocker struct {
	mu    sync.Mutex
	locks map[string]*nameLock
}

type nameLock struct {
	mu   sync.Mutex
	refs int
}

func newNameLocker() *nameLocker {
	return &nameLocker{locks: make(map[string]*nameLock)}
}

// Lock blocks until name is free and returns the function releasing it.
func (l *nameLocker) Lock(name string) func() {
	l.mu.Lock()
	lock, ok := l.locks[name]
	if !ok {
		lock = &nameLock{}
		l.locks[name] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, name)
		}
		l.mu.Unlock()
	}
}
