// Package eventloop runs the dashboard core on a single goroutine.
//
// Every piece of mutable core state (router registrations, stream flags,
// series buffers) is only touched from tasks executed by a Loop. Timers and
// network readers never mutate that state themselves: they Post a task and
// the loop runs it in arrival order. This keeps the core lock-free.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rileyhilliard/ldash/internal/logger"
)

// ErrClosed is returned when work is handed to a loop that has stopped.
var ErrClosed = errors.New("event loop closed")

// ErrRunning is returned by Run when the loop is already running.
var ErrRunning = errors.New("event loop already running")

// Loop is a single-threaded task scheduler.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool

	wake     chan struct{}
	done     chan struct{}
	doneOnce sync.Once
	running  atomic.Bool

	log logger.Logger
}

// New creates a loop. Nothing runs until Run is called.
func New(log logger.Logger) *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		log:  logger.OrDefault(log),
	}
}

// Run processes tasks until ctx is cancelled or Close is called.
// Returns nil after Close, ctx.Err() after cancellation.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}

	for {
		for _, task := range l.drain() {
			l.run(task)
		}

		select {
		case <-l.wake:
		case <-l.done:
			return nil
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		}
	}
}

// Post enqueues a task. Returns false if the loop is closed.
// Safe to call from any goroutine, including from inside a task.
func (l *Loop) Post(task func()) bool {
	if task == nil {
		return false
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call runs fn on the loop and waits for it to finish.
// Must not be called from a task running on the same loop.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

// Every schedules fn to run on the loop every d until the timer is stopped.
func (l *Loop) Every(d time.Duration, fn func()) *Timer {
	t := NewTimer()
	ticker := time.NewTicker(d)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Post(t.guard(fn))
			case <-t.stop:
				return
			case <-l.done:
				return
			}
		}
	}()

	return t
}

// After schedules fn to run once on the loop after d.
func (l *Loop) After(d time.Duration, fn func()) *Timer {
	t := NewTimer()
	t.timer = time.AfterFunc(d, func() {
		l.Post(t.guard(fn))
	})
	return t
}

// Close stops the loop. Queued tasks that have not started are discarded.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.queue = nil
	l.mu.Unlock()

	l.doneOnce.Do(func() { close(l.done) })
}

// Done is closed once the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) drain() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.queue
	l.queue = nil
	return batch
}

// run executes one task. A panicking task is logged and the loop keeps going.
func (l *Loop) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("task panicked: %v", fmt.Sprint(r))
		}
	}()
	task()
}

// Timer is a cancellable schedule created by Every or After.
type Timer struct {
	stopped  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	timer    *time.Timer
}

// NewTimer returns a timer that is not attached to any schedule.
// Useful for schedulers that fire callbacks by hand.
func NewTimer() *Timer {
	return &Timer{stop: make(chan struct{})}
}

// Stop cancels the schedule. After Stop returns, the callback never runs
// again, even if a tick was already queued on the loop.
func (t *Timer) Stop() {
	t.stopped.Store(true)
	t.stopOnce.Do(func() {
		close(t.stop)
		if t.timer != nil {
			t.timer.Stop()
		}
	})
}

// Stopped reports whether Stop has been called.
func (t *Timer) Stopped() bool {
	return t.stopped.Load()
}

func (t *Timer) guard(fn func()) func() {
	return func() {
		if t.stopped.Load() {
			return
		}
		fn()
	}
}
