package lock

import (
	"context"
	"sync"
)

// Local is an in-process Locker keyed by string. It is used when no Redis is configured
// and only serialises requests handled by the same process.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

func (l *Local) Acquire(ctx context.Context, key string) (Release, error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, e)
		return nil, ErrNotAcquired
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-e.ch
			l.drop(key, e)
		})
		return nil
	}, nil
}

func (l *Local) drop(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}
