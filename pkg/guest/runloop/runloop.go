// Package runloop implements the single-threaded cooperative scheduler the
// guest bridge blocks on. A guest call that depends on an asynchronous host
// reply drives a dedicated, nested turn of the loop that runs only until that
// one outstanding operation resolves, then returns control synchronously to
// the caller.
//
// Tasks only ever execute on the goroutine driving Await, so guest code never
// observes interleaving from other guest calls.
package runloop

import (
	"context"
	"sync"
)

// Loop is a cooperative task queue. Schedule may be called from any
// goroutine; queued tasks run one at a time on the goroutine that drives
// Await.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Schedule queues a task for execution on the next loop turn.
func (l *Loop) Schedule(task func()) {
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest queued task, if any.
func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue = l.queue[1:]
	return task, true
}

// Promise is a single-assignment result slot settled through the loop.
type Promise struct {
	mu      sync.Mutex
	settled bool
	value   any
	err     error
}

// SettleFunc resolves or rejects a promise. Safe to call from any goroutine;
// calls after the first are ignored.
type SettleFunc func(value any, err error)

// NewPromise creates a pending promise bound to the loop. Settlement is
// applied as a scheduled task so it becomes observable only on a loop turn.
func (l *Loop) NewPromise() (*Promise, SettleFunc) {
	p := &Promise{}
	var once sync.Once
	settle := func(value any, err error) {
		once.Do(func() {
			l.Schedule(func() {
				p.mu.Lock()
				p.settled = true
				p.value = value
				p.err = err
				p.mu.Unlock()
			})
		})
	}
	return p, settle
}

// Resolved returns an already-settled promise carrying value. Awaiting it
// never enters the loop.
func Resolved(value any) *Promise {
	return &Promise{settled: true, value: value}
}

// Rejected returns an already-settled promise carrying err.
func Rejected(err error) *Promise {
	return &Promise{settled: true, err: err}
}

// result returns the promise outcome if it has settled.
func (p *Promise) result() (any, error, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err, p.settled
}

// Await drives the loop until p settles and returns its outcome. An
// already-settled promise returns immediately without running any tasks.
//
// If ctx expires first, the pending operation is abandoned: Await returns the
// context error and a late settlement is discarded.
func (l *Loop) Await(ctx context.Context, p *Promise) (any, error) {
	if value, err, ok := p.result(); ok {
		return value, err
	}

	for {
		if task, ok := l.next(); ok {
			task()
			if value, err, ok := p.result(); ok {
				return value, err
			}
			continue
		}

		select {
		case <-l.wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
