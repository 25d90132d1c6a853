package stock

import (
	"sort"
	"sync"
)

type lockKey struct {
	productID int64
	location  string
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// keyLocks hands out one mutex per (product, location) pair. Entries are
// dropped once nobody holds or waits on them.
type keyLocks struct {
	mu    sync.Mutex
	locks map[lockKey]*keyLock
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[lockKey]*keyLock)}
}

// Lock acquires every key in ascending (product, location) order and
// returns the matching release function. Duplicate keys are locked once.
func (k *keyLocks) Lock(keys ...lockKey) (unlock func()) {
	sorted := make([]lockKey, 0, len(keys))
	seen := make(map[lockKey]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		sorted = append(sorted, key)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].productID != sorted[j].productID {
			return sorted[i].productID < sorted[j].productID
		}
		return sorted[i].location < sorted[j].location
	})

	held := make([]*keyLock, len(sorted))
	for i, key := range sorted {
		l := k.acquire(key)
		l.mu.Lock()
		held[i] = l
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			k.release(sorted[i], held[i])
		}
	}
}

func (k *keyLocks) acquire(key lockKey) *keyLock {
	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	return l
}

func (k *keyLocks) release(key lockKey, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

func (k *keyLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
