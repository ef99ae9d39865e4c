package dashboard

import (
	"context"
	"sync"
)

// LoadState is the fetch state of one dashboard section.
type LoadState int

const (
	NotLoaded LoadState = iota
	Loading
	Loaded
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "not-loaded"
}

// Loadable caches the result of one fetch. While a fetch is in flight every
// other Load waits for it instead of issuing its own, so a section is fetched
// at most once until Reset.
type Loadable[T any] struct {
	mu    sync.Mutex
	state LoadState
	data  T
	err   error
	// gen changes on Reset; a fetch that started under an older generation
	// does not store its result.
	gen  uint64
	done chan struct{}
}

// Load returns the cached data, fetching it first when the section is not
// loaded or its last fetch failed.
func (l *Loadable[T]) Load(ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	l.mu.Lock()
	switch l.state {
	case Loaded:
		data := l.data
		l.mu.Unlock()
		return data, nil
	case Loading:
		done := l.done
		l.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		return l.settled(ctx, fetch)
	}

	l.state = Loading
	l.done = make(chan struct{})
	gen, done := l.gen, l.done
	l.mu.Unlock()

	data, err := fetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	close(done)
	if gen != l.gen {
		return data, err
	}
	if err != nil {
		l.state, l.data, l.err = Failed, zero, err
		return zero, err
	}
	l.state, l.data, l.err = Loaded, data, nil
	return data, nil
}

// settled reports the outcome of the fetch a waiter was blocked on.
func (l *Loadable[T]) settled(ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	l.mu.Lock()
	switch l.state {
	case Loaded:
		defer l.mu.Unlock()
		return l.data, nil
	case Failed:
		defer l.mu.Unlock()
		var zero T
		return zero, l.err
	}
	l.mu.Unlock()
	// Reset while we waited.
	return l.Load(ctx, fetch)
}

// Get returns the current state without fetching.
func (l *Loadable[T]) Get() (T, LoadState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data, l.state, l.err
}

// State returns the current state.
func (l *Loadable[T]) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Reset forgets the cached data so the next Load fetches again.
func (l *Loadable[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	var zero T
	l.gen++
	l.state, l.data, l.err = NotLoaded, zero, nil
}

// Update replaces loaded data with fn's result. It reports false, and does
// not call fn, when nothing is loaded.
func (l *Loadable[T]) Update(fn func(T) T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Loaded {
		return false
	}
	l.data = fn(l.data)
	return true
}

// Read calls fn with the loaded data while holding the lock. It reports
// false, and does not call fn, when nothing is loaded.
func (l *Loadable[T]) Read(fn func(T)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Loaded {
		return false
	}
	fn(l.data)
	return true
}
