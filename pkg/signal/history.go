// Package signal keeps a rolling window of eye-openness values and derives
// the windowed second difference ("EARM") used by the derivative detector.
package signal

// Default history parameters.
const (
	DefaultCapacity = 100
	DefaultWindow   = 11
)

// History is a fixed-capacity rolling window. When full, the oldest value is
// evicted. Index 0 is the oldest retained value.
//
// History is not safe for concurrent use; it belongs to the pipeline's
// processing goroutine.
type History struct {
	buf   []float64
	start int
	n     int
}

// NewHistory creates a history holding at most capacity values.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest value when full.
func (h *History) Push(v float64) {
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = v
		h.n++
		return
	}
	h.buf[h.start] = v
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of retained values.
func (h *History) Len() int {
	return h.n
}

// Cap returns the capacity.
func (h *History) Cap() int {
	return len(h.buf)
}

// At returns the i-th retained value, oldest first.
// It panics if i is out of range, like a slice index.
func (h *History) At(i int) float64 {
	if i < 0 || i >= h.n {
		panic("signal: history index out of range")
	}
	return h.buf[(h.start+i)%len(h.buf)]
}

// Values returns a copy of the retained values, oldest first.
func (h *History) Values() []float64 {
	out := make([]float64, h.n)
	for i := range out {
		out[i] = h.At(i)
	}
	return out
}

// Reset empties the history.
func (h *History) Reset() {
	h.start, h.n = 0, 0
}

// Center is the index the detector evaluates: the middle of the window, so
// that both sides have the same amount of history once it is full.
func (h *History) Center() int {
	return h.n / 2
}

// Offset is the distance from the center to the outer taps of the second
// difference for a window of the given width.
func Offset(width int) int {
	return (width + 1) / 2
}

// DerivativeAt computes the second difference around center:
//
//	h[c-o] + h[c-(o-1)] + h[c+(o-1)] + h[c+o] - 4*h[c]
//
// with o = Offset(width). It returns 0 when either side lacks history.
// The value spikes negative during a rapid eyelid close.
func (h *History) DerivativeAt(center, width int) float64 {
	o := Offset(width)
	if center-o < 0 || center+o >= h.n {
		return 0
	}
	return h.At(center-o) +
		h.At(center-(o-1)) +
		h.At(center+(o-1)) +
		h.At(center+o) -
		4*h.At(center)
}
