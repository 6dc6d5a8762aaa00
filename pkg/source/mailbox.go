package source

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Mailbox is a push-based Source for frames uploaded by clients.
//
// It holds a single slot: a newly submitted frame replaces one the pipeline
// has not consumed yet, so a slow consumer always sees the newest frame and
// never a backlog. Overwritten frames are counted as drops.
type Mailbox struct {
	decoder Decoder

	mu     sync.Mutex
	frame  *Frame
	open   bool
	seq    uint64
	done   chan struct{}
	notify chan struct{}

	drops atomic.Uint64
}

// NewMailbox creates a push source that decodes blobs with decoder.
func NewMailbox(decoder Decoder) *Mailbox {
	return &Mailbox{
		decoder: decoder,
		notify:  make(chan struct{}, 1),
	}
}

// Open resets the mailbox and starts accepting frames.
func (m *Mailbox) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open {
		return nil
	}
	m.open = true
	m.frame = nil
	m.done = make(chan struct{})

	// Drop a wakeup left over from a previous run
	select {
	case <-m.notify:
	default:
	}
	return nil
}

// Submit decodes blob and stores it as the newest frame.
// Returns ErrDecode (wrapped) for malformed input and ErrNotOpen when the
// mailbox is not accepting frames.
func (m *Mailbox) Submit(blob []byte) error {
	if len(blob) == 0 {
		return fmt.Errorf("%w: empty payload", ErrDecode)
	}

	// Decode outside the lock; it is the expensive part
	frame, err := m.decoder.Decode(blob)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if frame.Captured.IsZero() {
		frame.Captured = time.Now()
	}

	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return ErrNotOpen
	}
	m.seq++
	frame.Seq = m.seq
	if m.frame != nil {
		m.drops.Add(1)
	}
	m.frame = &frame
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

// Next blocks until a frame is submitted, ctx is done, or the mailbox closes.
func (m *Mailbox) Next(ctx context.Context) (Frame, error) {
	for {
		m.mu.Lock()
		if !m.open {
			m.mu.Unlock()
			return Frame{}, ErrClosed
		}
		if m.frame != nil {
			f := *m.frame
			m.frame = nil
			m.mu.Unlock()
			return f, nil
		}
		done := m.done
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-done:
			return Frame{}, ErrClosed
		case <-m.notify:
		}
	}
}

// Close stops accepting frames and wakes any blocked Next.
func (m *Mailbox) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open {
		m.open = false
		close(m.done)
	}
	m.frame = nil
	return nil
}

// Drops returns how many unconsumed frames were overwritten.
func (m *Mailbox) Drops() uint64 {
	return m.drops.Load()
}
