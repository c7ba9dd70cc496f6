package memory

import (
	"context"
	"sync"
)

// keyedLocks mutex por clave que respeta la cancelación del contexto.
// Las entradas se eliminan cuando nadie las espera ni las tiene.
type keyedLocks[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

func newKeyedLocks[K comparable]() *keyedLocks[K] {
	return &keyedLocks[K]{entries: make(map[K]*lockEntry)}
}

// Lock bloquea k o devuelve ctx.Err() si el contexto vence esperando.
func (l *keyedLocks[K]) Lock(ctx context.Context, k K) error {
	l.mu.Lock()
	e, ok := l.entries[k]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.entries[k] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.release(k, e)
		return ctx.Err()
	}
}

// Unlock libera k; debe llamarse solo tras un Lock exitoso.
func (l *keyedLocks[K]) Unlock(k K) {
	l.mu.Lock()
	e := l.entries[k]
	l.mu.Unlock()
	<-e.ch
	l.release(k, e)
}

func (l *keyedLocks[K]) release(k K, e *lockEntry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, k)
	}
	l.mu.Unlock()
}
