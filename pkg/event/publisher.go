package event

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-blink/internal/log"
)

// DefaultBuffer is the default publisher queue depth.
const DefaultBuffer = 256

// ErrPublisherClosed is returned by Flush after Close.
var ErrPublisherClosed = errors.New("event: publisher closed")

// item is a queued event, or a flush marker when flush is non-nil.
type item struct {
	ev    Event
	flush chan struct{}
}

// Publisher decouples event production from delivery. Publish never blocks:
// when the queue is full the event is dropped and counted. A single worker
// delivers queued events to the sink in order.
type Publisher struct {
	sink  Sink
	queue chan item
	done  chan struct{}
	log   *slog.Logger

	mu     sync.RWMutex
	closed bool

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithLogger sets the publisher's logger.
func WithLogger(l *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.log = l
	}
}

// NewPublisher starts a publisher delivering to sink with a queue of the
// given size (DefaultBuffer when size < 1).
func NewPublisher(sink Sink, size int, opts ...PublisherOption) *Publisher {
	if size < 1 {
		size = DefaultBuffer
	}
	p := &Publisher{
		sink:  sink,
		queue: make(chan item, size),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = log.Component("events")
	}
	go p.run()
	return p
}

func (p *Publisher) run() {
	defer close(p.done)
	for it := range p.queue {
		if it.flush != nil {
			close(it.flush)
			continue
		}
		// Each sink gets its own copy of the payload
		if err := p.sink.Publish(it.ev.Name, it.ev.Payload.Clone()); err != nil {
			p.failed.Add(1)
			p.log.Warn("event delivery failed", "event", it.ev.Name, "error", err)
			continue
		}
		p.published.Add(1)
	}
}

// Publish enqueues ev. It returns false if the event was dropped because
// the queue is full or the publisher is closed.
func (p *Publisher) Publish(ev Event) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return false
	}

	select {
	case p.queue <- item{ev: ev}:
		return true
	default:
		n := p.dropped.Add(1)
		p.log.Warn("event queue full, dropping event", "event", ev.Name, "dropped_total", n)
		return false
	}
}

// Flush blocks until every event enqueued before the call has been handed to
// the sink, or ctx is done.
func (p *Publisher) Flush(ctx context.Context) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPublisherClosed
	}
	marker := make(chan struct{})
	select {
	case p.queue <- item{flush: marker}:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events, drains the queue and waits for the worker.
// It is safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return nil
}

// Published returns the number of events delivered successfully.
func (p *Publisher) Published() uint64 {
	return p.published.Load()
}

// Dropped returns the number of events rejected by Publish.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Failed returns the number of events the sink refused.
func (p *Publisher) Failed() uint64 {
	return p.failed.Load()
}
