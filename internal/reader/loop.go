package reader

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Dispatcher runs functions on the event-loop goroutine.
//
// Readers observe their child process from helper goroutines and hand every
// observation to Dispatch. Implementations must run fn on a single goroutine,
// in submission order, and must not block the caller waiting for fn to run.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts an ordinary function to the Dispatcher interface.
type DispatcherFunc func(fn func())

// Dispatch calls f(fn).
func (f DispatcherFunc) Dispatch(fn func()) {
	f(fn)
}

// Loop is a minimal event loop: an unbounded FIFO of functions that are run
// by whichever goroutine calls Run or RunUntil.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewLoop creates an empty loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Dispatch queues fn. It never blocks.
func (l *Loop) Dispatch(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued functions.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// Run processes queued functions until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	return l.RunUntil(ctx, func() bool { return false })
}

// RunUntil processes queued functions one at a time until done reports true
// or ctx is cancelled. done is checked before every function.
func (l *Loop) RunUntil(ctx context.Context, done func() bool) error {
	for !done() {
		fn, ok := l.pop()
		if ok {
			fn()
			continue
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "event loop stopped")
		case <-l.wake:
		}
	}
	return nil
}
