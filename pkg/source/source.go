// Package source defines the frame representation that flows through the
// blink pipeline and the sources that produce it.
package source

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by sources.
var (
	// ErrEndOfStream is returned by Next when the source has no more frames.
	ErrEndOfStream = errors.New("source: end of stream")

	// ErrClosed is returned when a closed source is used.
	ErrClosed = errors.New("source: closed")

	// ErrNotOpen is returned when a source is read before Open.
	ErrNotOpen = errors.New("source: not open")

	// ErrDecode is returned when an uploaded blob cannot be decoded.
	ErrDecode = errors.New("source: decode failed")
)

// Frame is one encoded video frame.
// JPEG is treated as immutable once the frame has been handed to the pipeline.
type Frame struct {
	Seq      uint64    // Monotonic sequence number within a source
	Width    int       // Pixel width
	Height   int       // Pixel height
	JPEG     []byte    // JPEG-encoded image
	Captured time.Time // When the frame was read or received
}

// Empty reports whether the frame carries no image.
func (f Frame) Empty() bool {
	return len(f.JPEG) == 0
}

// Source supplies frames to the pipeline.
type Source interface {
	// Open acquires the underlying device or resets a push source.
	Open(ctx context.Context) error

	// Next blocks until the newest frame is available.
	Next(ctx context.Context) (Frame, error)

	// Close releases the device so a later Open can reacquire it.
	Close() error
}

// Decoder turns an uploaded blob (JPEG, PNG, ...) into a Frame.
type Decoder interface {
	Decode(blob []byte) (Frame, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(blob []byte) (Frame, error)

// Decode calls f(blob).
func (f DecoderFunc) Decode(blob []byte) (Frame, error) {
	return f(blob)
}
