package mqtt

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/signal-panel/internal/panel"
)

// QueueCapacity is the number of messages AsyncPublisher holds for its worker.
const QueueCapacity = 64

// drainTimeout bounds how long Close waits for queued messages.
const drainTimeout = 5 * time.Second

var (
	// ErrQueueFull is returned when the worker has fallen too far behind.
	ErrQueueFull = errors.New("mqtt: publish queue full")

	// ErrPublisherClosed is returned for messages published after Close.
	ErrPublisherClosed = errors.New("mqtt: publisher closed")
)

// AsyncPublisher hands messages to a worker goroutine that publishes them in
// order, so the control loop never waits on the broker. Publish errors from
// the wrapped publisher are logged by the worker.
type AsyncPublisher struct {
	next  Publisher
	queue chan func() error
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewAsyncPublisher starts a worker that feeds next from a queue of the
// given size.
func NewAsyncPublisher(next Publisher, size int) *AsyncPublisher {
	if size <= 0 {
		size = QueueCapacity
	}
	a := &AsyncPublisher{
		next:  next,
		queue: make(chan func() error, size),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

// Publish queues a channel transition.
func (a *AsyncPublisher) Publish(event panel.Event) error {
	return a.enqueue(func() error { return a.next.Publish(event) })
}

// PublishSystem queues a system lifecycle event.
func (a *AsyncPublisher) PublishSystem(event SystemEvent) error {
	return a.enqueue(func() error { return a.next.PublishSystem(event) })
}

// Close stops accepting messages, waits up to drainTimeout for the queued
// ones and closes the wrapped publisher.
func (a *AsyncPublisher) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(drainTimeout):
		log.Warnf("mqtt: gave up draining publish queue after %v", drainTimeout)
	}
	return a.next.Close()
}

func (a *AsyncPublisher) enqueue(fn func() error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrPublisherClosed
	}
	select {
	case a.queue <- fn:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *AsyncPublisher) run() {
	defer close(a.done)
	for fn := range a.queue {
		if err := fn(); err != nil {
			log.Printf("mqtt: %v", err)
		}
	}
}
