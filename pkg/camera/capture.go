package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-blink/internal/log"
	"github.com/teslashibe/go-blink/pkg/source"
)

// Capture is a source.Source backed by an OpenCV capture device.
type Capture struct {
	cfg Config
	log *slog.Logger

	mu  sync.Mutex
	vc  *gocv.VideoCapture
	img gocv.Mat
	seq uint64
}

// NewCapture creates a capture source. The device is not opened until Open.
func NewCapture(cfg Config) *Capture {
	return &Capture{
		cfg: cfg,
		log: log.Component("camera"),
	}
}

// Open acquires the device. Opening an already open capture is a no-op.
func (c *Capture) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.cfg.Device)
	if err != nil {
		return fmt.Errorf("camera: open device %d: %w", c.cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("camera: device %d is not available", c.cfg.Device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.cfg.Framerate))
	// Keep only the newest frame in the driver queue
	vc.Set(gocv.VideoCaptureBufferSize, 1)

	c.vc = vc
	c.img = gocv.NewMat()
	c.seq = 0

	c.log.Info("camera opened",
		"device", c.cfg.Device,
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight),
	)
	return nil
}

// Next reads the newest frame. A failed read ends the stream.
func (c *Capture) Next(ctx context.Context) (source.Frame, error) {
	if err := ctx.Err(); err != nil {
		return source.Frame{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc == nil {
		return source.Frame{}, source.ErrClosed
	}
	if ok := c.vc.Read(&c.img); !ok || c.img.Empty() {
		return source.Frame{}, source.ErrEndOfStream
	}

	img := c.img
	if c.cfg.Flip {
		flipped := gocv.NewMat()
		defer flipped.Close()
		gocv.Flip(c.img, &flipped, 1)
		img = flipped
	}

	data, err := encodeJPEG(img, c.cfg.Quality)
	if err != nil {
		return source.Frame{}, err
	}

	c.seq++
	return source.Frame{
		Seq:      c.seq,
		Width:    img.Cols(),
		Height:   img.Rows(),
		JPEG:     data,
		Captured: time.Now(),
	}, nil
}

// Close releases the device so a later Open can reacquire it.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc == nil {
		return nil
	}
	err := c.vc.Close()
	c.img.Close()
	c.vc = nil
	c.log.Info("camera released", "device", c.cfg.Device)
	return err
}

// encodeJPEG copies the encoded bytes out of OpenCV-owned memory.
func encodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("camera: encode jpeg: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
