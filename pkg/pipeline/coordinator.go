// Package pipeline drives frames from a source through landmark inference
// and blink detection, publishes the resulting events, and keeps the most
// recent frame available to passive display readers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-blink/internal/log"
	"github.com/teslashibe/go-blink/pkg/blink"
	"github.com/teslashibe/go-blink/pkg/ear"
	"github.com/teslashibe/go-blink/pkg/event"
	"github.com/teslashibe/go-blink/pkg/landmark"
	"github.com/teslashibe/go-blink/pkg/source"
)

var (
	// ErrSourceUnavailable is returned by Start when the frame source
	// cannot be opened.
	ErrSourceUnavailable = errors.New("pipeline: frame source unavailable")

	// ErrPushUnsupported is returned by Submit when the source does not
	// accept uploaded frames.
	ErrPushUnsupported = errors.New("pipeline: source does not accept uploads")
)

// Config holds the coordinator's timing and output settings.
type Config struct {
	FrameInterval  time.Duration `json:"frame_interval"`  // Yield between producer cycles
	StreamInterval time.Duration `json:"stream_interval"` // Reader poll period with a frame available
	StreamIdle     time.Duration `json:"stream_idle"`     // Reader poll period while the slot is empty
	StopTimeout    time.Duration `json:"stop_timeout"`    // Bound on waiting for the producer in Stop

	EmitLandmarks bool `json:"emit_landmarks"` // Publish eye_landmarks every frame with a face
	Annotate      bool `json:"annotate"`       // Draw landmarks on frames stored for readers
}

// DefaultConfig returns the reference timings: a 20ms yield, 25ms reader
// polling and a 2s stop bound.
func DefaultConfig() Config {
	return Config{
		FrameInterval:  20 * time.Millisecond,
		StreamInterval: 25 * time.Millisecond,
		StreamIdle:     100 * time.Millisecond,
		StopTimeout:    2 * time.Second,
		EmitLandmarks:  true,
		Annotate:       true,
	}
}

// Publisher accepts events without blocking and can be flushed.
// *event.Publisher implements it.
type Publisher interface {
	Publish(ev event.Event) bool
	Flush(ctx context.Context) error
}

// Annotator draws overlays onto a frame for display readers.
// face is nil when no face was found.
type Annotator interface {
	Annotate(frame source.Frame, face *landmark.Face, status blink.Status) (source.Frame, error)
}

// Submitter is implemented by push sources that accept uploaded blobs.
type Submitter interface {
	Submit(blob []byte) error
}

// Status is a snapshot of the coordinator.
type Status struct {
	Running   bool         `json:"running"`
	RunID     string       `json:"run_id,omitempty"`
	StartedAt *time.Time   `json:"started_at,omitempty"`
	Frames    uint64       `json:"frames"`
	Skipped   uint64       `json:"skipped"`
	Failed    uint64       `json:"failed"`
	Detector  blink.Status `json:"detector"`
}

// run describes one Start..Stop cycle.
type run struct {
	id      string
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

func (r *run) alive() bool {
	if r == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// Coordinator owns the producer loop. Start, Stop, Recalibrate, Frames and
// Status are safe for concurrent use.
type Coordinator struct {
	cfg       Config
	src       source.Source
	provider  landmark.Provider
	detector  *blink.Detector
	pub       Publisher
	annotator Annotator
	metrics   *Metrics
	log       *slog.Logger

	latest Latest

	// mu serializes Start and Stop
	mu  sync.Mutex
	cur atomic.Pointer[run]

	// stale is the last stopped run whose producer may still be in flight.
	// Guarded by mu.
	stale *run

	// gen is bumped on every Start and Stop; a producer only emits or
	// stores frames while its generation is current
	emitMu sync.RWMutex
	gen    uint64

	frames  atomic.Uint64
	skipped atomic.Uint64
	failed  atomic.Uint64
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.log = l
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithAnnotator sets the display annotator.
func WithAnnotator(a Annotator) Option {
	return func(c *Coordinator) {
		c.annotator = a
	}
}

// New creates a coordinator. Nothing runs until Start.
func New(cfg Config, src source.Source, provider landmark.Provider, detector *blink.Detector, pub Publisher, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		src:      src,
		provider: provider,
		detector: detector,
		pub:      pub,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = log.Component("pipeline")
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	return c
}

// Start opens the source and launches the producer loop. It is a no-op
// while a run is active. The run outlives ctx's cancellation; use Stop.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.cur.Load()
	if prev.alive() {
		return nil
	}
	if prev != nil {
		// The previous loop ended on its own; release what it held
		c.release()
	}
	c.awaitStale()

	if err := c.src.Open(ctx); err != nil {
		c.log.Error("failed to open frame source", "error", err)
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	c.latest.Clear()
	gen := c.bump()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		id:      uuid.NewString(),
		started: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	c.cur.Store(r)
	c.metrics.Running.Set(1)

	go c.loop(runCtx, r, gen)

	c.log.Info("pipeline started", "run_id", r.id)
	return nil
}

// Stop halts the producer, waits up to StopTimeout for it, releases the
// source, clears the latest frame and flushes queued events. No event from
// the stopped run is delivered after Stop returns. Safe to call when not
// running.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.cur.Load()
	if r == nil {
		c.latest.Clear()
		return nil
	}

	c.bump()
	r.cancel()

	timer := time.NewTimer(c.cfg.StopTimeout)
	select {
	case <-r.done:
		timer.Stop()
	case <-timer.C:
		c.log.Warn("producer did not stop in time", "run_id", r.id, "timeout", c.cfg.StopTimeout)
	}

	if r.alive() {
		c.stale = r
	}
	err := c.release()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.StopTimeout)
	defer cancel()
	if ferr := c.pub.Flush(ctx); ferr != nil {
		c.log.Warn("event flush incomplete", "error", ferr)
	}

	c.log.Info("pipeline stopped", "run_id", r.id, "frames", c.frames.Load())
	return err
}

// release closes the source and forgets the current run. Caller holds mu.
func (c *Coordinator) release() error {
	c.cur.Store(nil)
	c.metrics.Running.Set(0)
	err := c.src.Close()
	c.latest.Clear()
	if err != nil {
		return fmt.Errorf("close source: %w", err)
	}
	return nil
}

// awaitStale waits up to StopTimeout for a producer that outlived Stop.
// One that is still stuck cannot touch the detector or the latest slot:
// its generation is no longer current. Caller holds mu.
func (c *Coordinator) awaitStale() {
	r := c.stale
	if r == nil {
		return
	}
	timer := time.NewTimer(c.cfg.StopTimeout)
	defer timer.Stop()
	select {
	case <-r.done:
		c.stale = nil
	case <-timer.C:
		c.log.Warn("previous producer still running", "run_id", r.id)
	}
}

func (c *Coordinator) bump() uint64 {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.gen++
	return c.gen
}

// Recalibrate restarts threshold calibration.
func (c *Coordinator) Recalibrate() {
	c.detector.Recalibrate()
}

// Submit hands an uploaded blob to a push source, starting the pipeline
// first if it is not running.
func (c *Coordinator) Submit(ctx context.Context, blob []byte) error {
	sub, ok := c.src.(Submitter)
	if !ok {
		return ErrPushUnsupported
	}
	if !c.cur.Load().alive() {
		if err := c.Start(ctx); err != nil {
			return err
		}
	}
	return sub.Submit(blob)
}

// Running reports whether the producer loop is active.
func (c *Coordinator) Running() bool {
	return c.cur.Load().alive()
}

// Status returns a snapshot of the coordinator and its detector.
func (c *Coordinator) Status() Status {
	st := Status{
		Frames:   c.frames.Load(),
		Skipped:  c.skipped.Load(),
		Failed:   c.failed.Load(),
		Detector: c.detector.Status(),
	}
	if r := c.cur.Load(); r.alive() {
		started := r.started
		st.Running = true
		st.RunID = r.id
		st.StartedAt = &started
	}
	return st
}

// Latest returns the most recent display frame, if any.
func (c *Coordinator) Latest() (source.Frame, bool) {
	f, _, ok := c.latest.Load()
	return f, ok
}

// Frames returns a stream of display frames for one reader. The reader
// polls the latest slot every StreamInterval (StreamIdle while empty) and
// receives each stored frame at most once. The channel closes when ctx is
// done.
func (c *Coordinator) Frames(ctx context.Context) <-chan source.Frame {
	out := make(chan source.Frame)
	go func() {
		defer close(out)

		var last uint64
		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			wait := c.cfg.StreamInterval
			f, version, ok := c.latest.Load()
			switch {
			case !ok:
				wait = c.cfg.StreamIdle
			case version != last:
				select {
				case out <- f:
					last = version
				case <-ctx.Done():
					return
				}
			}
			timer.Reset(wait)
		}
	}()
	return out
}

func (c *Coordinator) loop(ctx context.Context, r *run, gen uint64) {
	defer close(r.done)
	defer c.ended(gen)

	for {
		frame, err := c.src.Next(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, source.ErrEndOfStream), errors.Is(err, source.ErrClosed):
			c.log.Info("frame source ended", "run_id", r.id, "reason", err)
			return
		case err != nil:
			c.failed.Add(1)
			c.metrics.FramesSkipped.WithLabelValues(skipSourceFailure).Inc()
			c.log.Warn("frame read failed", "error", err)
		default:
			c.process(ctx, gen, frame)
		}

		if !sleep(ctx, c.cfg.FrameInterval) {
			return
		}
	}
}

// process runs one frame through inference and detection. Per-frame
// failures are logged and absorbed.
func (c *Coordinator) process(ctx context.Context, gen uint64, frame source.Frame) {
	start := time.Now()
	defer func() {
		c.frames.Add(1)
		c.metrics.FramesProcessed.Inc()
		c.metrics.ProcessSeconds.Observe(time.Since(start).Seconds())
	}()

	faces, err := c.provider.Landmarks(ctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.failed.Add(1)
		c.metrics.FramesSkipped.WithLabelValues(skipProvider).Inc()
		c.log.Warn("landmark inference failed", "seq", frame.Seq, "error", err)
		c.store(gen, frame, nil)
		return
	}

	face := landmark.SelectPrimary(faces)
	if face == nil {
		c.skipped.Add(1)
		c.metrics.FramesSkipped.WithLabelValues(skipNoFace).Inc()
		c.store(gen, frame, nil)
		return
	}
	if face.Width <= 0 || face.Height <= 0 {
		face.Width, face.Height = frame.Width, frame.Height
	}

	current, err := c.advance(gen, *face)
	if !current {
		return
	}
	if err != nil {
		c.skipped.Add(1)
		c.metrics.FramesSkipped.WithLabelValues(skipBadLandmarks).Inc()
		c.log.Warn("unusable landmarks", "seq", frame.Seq, "error", err)
		c.store(gen, frame, nil)
		return
	}
	c.store(gen, frame, face)
}

// advance feeds the face to the detector and publishes the resulting
// events, both only while gen is current. Holding emitMu across the two
// makes a frame's detection and emission atomic with respect to Stop.
func (c *Coordinator) advance(gen uint64, face landmark.Face) (current bool, err error) {
	c.emitMu.RLock()
	defer c.emitMu.RUnlock()
	if gen != c.gen {
		return false, nil
	}
	evs, err := c.detect(face)
	if err != nil {
		return true, err
	}
	for _, ev := range evs {
		c.pub.Publish(ev)
	}
	c.metrics.observeEvents(evs)
	return true, nil
}

// ended clears the running gauge unless a newer run owns it.
func (c *Coordinator) ended(gen uint64) {
	c.emitMu.RLock()
	defer c.emitMu.RUnlock()
	if gen == c.gen {
		c.metrics.Running.Set(0)
	}
}

// detect computes ratios in pixel space and feeds the detector.
func (c *Coordinator) detect(face landmark.Face) ([]event.Event, error) {
	px, err := face.ToPixel()
	if err != nil {
		return nil, err
	}
	pair, err := ear.FromFace(px)
	if err != nil {
		return nil, err
	}

	var evs []event.Event
	if c.cfg.EmitLandmarks {
		ev, err := landmarksEvent(face)
		if err != nil {
			c.log.Debug("skipping eye_landmarks", "error", err)
		} else {
			evs = append(evs, ev)
		}
	}
	return append(evs, c.detector.Process(blink.Sample{Left: pair.Left, Right: pair.Right})...), nil
}

// store annotates the frame if configured and makes it the latest.
func (c *Coordinator) store(gen uint64, frame source.Frame, face *landmark.Face) {
	if c.annotator != nil && c.cfg.Annotate {
		out, err := c.annotator.Annotate(frame, face, c.detector.Status())
		if err != nil {
			c.log.Warn("annotation failed", "seq", frame.Seq, "error", err)
		} else {
			frame = out
		}
	}

	c.emitMu.RLock()
	defer c.emitMu.RUnlock()
	if gen != c.gen {
		return
	}
	c.latest.Store(frame)
}

// landmarksEvent builds eye_landmarks with normalized coordinates.
func landmarksEvent(face landmark.Face) (event.Event, error) {
	if face.Topology == nil {
		return event.Event{}, landmark.ErrNoTopology
	}
	norm, err := face.ToNormalized()
	if err != nil {
		return event.Event{}, err
	}
	t := face.Topology

	contours := make([][][3]float64, 4)
	for i, idx := range [][]int{t.LeftEye[:], t.RightEye[:], t.MouthOuter, t.MouthInner} {
		pts, err := norm.Contour(idx)
		if err != nil {
			return event.Event{}, err
		}
		out := make([][3]float64, len(pts))
		for j, p := range pts {
			out[j] = [3]float64{p.X, p.Y, p.Z}
		}
		contours[i] = out
	}
	return event.EyeLandmarks(contours[0], contours[1], contours[2], contours[3]), nil
}

// sleep waits d or until ctx is done. It reports whether to continue.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
