package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-blink/internal/log"
)

func TestPublisher_DeliversInOrder(t *testing.T) {
	rec := NewRecorder()
	p := NewPublisher(rec, 16, WithLogger(log.Discard()))
	defer p.Close()

	require.True(t, p.Publish(Calibrated(0.5)))
	require.True(t, p.Publish(EyeStateChanged(NameEyeState, "closed")))
	require.True(t, p.Publish(Blink(NameBlink, 1)))
	require.True(t, p.Publish(EyeStateChanged(NameEyeState, "open")))

	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, []string{NameCalibrated, NameEyeState, NameBlink, NameEyeState}, rec.Names())
	assert.Equal(t, uint64(4), p.Published())

	evs := rec.Events()
	assert.Equal(t, 0.5, evs[0].Payload["threshold"])
	assert.Equal(t, 1, evs[2].Payload["total"])
	assert.Equal(t, "open", evs[3].Payload["status"])
}

// blockingSink parks the worker inside Publish until released.
type blockingSink struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSink) Publish(string, Payload) error {
	s.entered <- struct{}{}
	<-s.release
	return nil
}

func TestPublisher_DropsWhenFull(t *testing.T) {
	sink := &blockingSink{entered: make(chan struct{}, 8), release: make(chan struct{})}
	p := NewPublisher(sink, 1, WithLogger(log.Discard()))

	require.True(t, p.Publish(EARValue(0.1)))
	<-sink.entered // worker holds the first event

	require.True(t, p.Publish(EARValue(0.2))) // fills the queue
	start := time.Now()
	assert.False(t, p.Publish(EARValue(0.3)))
	assert.Less(t, time.Since(start), 100*time.Millisecond, "Publish must not block")
	assert.Equal(t, uint64(1), p.Dropped())

	close(sink.release)
	require.NoError(t, p.Close())
	assert.Equal(t, uint64(2), p.Published())
}

func TestPublisher_SinkErrorsAreSwallowed(t *testing.T) {
	rec := NewRecorder()
	rec.FailWith(errors.New("socket gone"))
	p := NewPublisher(rec, 4, WithLogger(log.Discard()))
	defer p.Close()

	assert.True(t, p.Publish(EARValue(0.3)))
	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, uint64(1), p.Failed())
	assert.Equal(t, 0, rec.Len())

	rec.FailWith(nil)
	p.Publish(EARValue(0.4))
	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, 1, rec.Len())
}

func TestPublisher_FlushHonoursContext(t *testing.T) {
	sink := &blockingSink{entered: make(chan struct{}, 8), release: make(chan struct{})}
	p := NewPublisher(sink, 4, WithLogger(log.Discard()))

	p.Publish(EARValue(0.1))
	<-sink.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Flush(ctx), context.DeadlineExceeded)

	close(sink.release)
	require.NoError(t, p.Close())
}

func TestPublisher_Closed(t *testing.T) {
	rec := NewRecorder()
	p := NewPublisher(rec, 4, WithLogger(log.Discard()))
	p.Publish(EARValue(0.1))
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	assert.Equal(t, 1, rec.Len(), "Close drains the queue")
	assert.False(t, p.Publish(EARValue(0.2)))
	assert.ErrorIs(t, p.Flush(context.Background()), ErrPublisherClosed)
}

func TestPublisher_SinkGetsCopy(t *testing.T) {
	var got Payload
	sink := SinkFunc(func(_ string, payload Payload) error {
		got = payload
		return nil
	})
	p := NewPublisher(sink, 4, WithLogger(log.Discard()))
	defer p.Close()

	ev := Calibrated(0.3)
	p.Publish(ev)
	require.NoError(t, p.Flush(context.Background()))

	got["threshold"] = 99.0
	assert.Equal(t, 0.3, ev.Payload["threshold"])
}

func TestEyeLandmarks_EmptyContours(t *testing.T) {
	ev := EyeLandmarks([][3]float64{{0.1, 0.2, 0}}, nil, nil, nil)
	assert.Equal(t, NameEyeLandmarks, ev.Name)
	assert.Len(t, ev.Payload["left_eye"], 1)
	assert.NotNil(t, ev.Payload["mouth_inner"])
	assert.Empty(t, ev.Payload["mouth_inner"])
}
