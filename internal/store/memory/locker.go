package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// keyedLocker is a mutex per task id. Lock waits honor ctx so an abandoned
// request never blocks forever. A slot lives only while someone holds or
// waits for it.
type keyedLocker struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int // holders plus waiters, guarded by keyedLocker.mu
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{slots: make(map[uuid.UUID]*lockSlot)}
}

func (l *keyedLocker) acquireSlot(id uuid.UUID) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[id]
	if !ok {
		s = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[id] = s
	}
	s.refs++
	return s
}

func (l *keyedLocker) releaseSlot(id uuid.UUID, s *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, id)
	}
}

func (l *keyedLocker) lock(ctx context.Context, id uuid.UUID) error {
	s := l.acquireSlot(id)
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.releaseSlot(id, s)
		return ctx.Err()
	}
}

func (l *keyedLocker) unlock(id uuid.UUID) {
	l.mu.Lock()
	s := l.slots[id]
	l.mu.Unlock()

	<-s.ch
	l.releaseSlot(id, s)
}

// size reports how many slots are live.
func (l *keyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
