package palette

import (
	"context"
	"sync"
)

// Loop runs callbacks one at a time on the goroutine that owns palette state.
// The GTK host implements it with glib.IdleAdd.
type Loop interface {
	Post(fn func())
}

// EventLoop is a Loop for headless use. Callbacks run either from Run or
// from Drain, never concurrently.
type EventLoop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

func NewEventLoop() *EventLoop {
	return &EventLoop{wake: make(chan struct{}, 1)}
}

func (l *EventLoop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Drain runs everything queued so far, including callbacks queued by those
// callbacks, and returns how many ran.
func (l *EventLoop) Drain() int {
	ran := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return ran
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		fn()
		ran++
	}
}

// Run drains the queue whenever work arrives until ctx is done.
func (l *EventLoop) Run(ctx context.Context) error {
	for {
		l.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}
