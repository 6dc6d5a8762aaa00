package pipeline

import (
	"sync"

	"github.com/teslashibe/go-blink/pkg/source"
)

// Latest is a single-slot, most-recent-wins frame holder shared between the
// producer and passive readers. The lock is held only for the assignment.
type Latest struct {
	mu      sync.RWMutex
	frame   source.Frame
	version uint64
	ok      bool
}

// Store replaces the held frame.
func (l *Latest) Store(f source.Frame) {
	l.mu.Lock()
	l.frame = f
	l.version++
	l.ok = true
	l.mu.Unlock()
}

// Load returns the held frame and its version. ok is false when empty.
// Versions increase with every Store, across Clear calls.
func (l *Latest) Load() (f source.Frame, version uint64, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.frame, l.version, l.ok
}

// Clear empties the slot.
func (l *Latest) Clear() {
	l.mu.Lock()
	l.frame = source.Frame{}
	l.ok = false
	l.mu.Unlock()
}
