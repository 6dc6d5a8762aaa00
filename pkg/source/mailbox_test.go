package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawDecoder treats the blob as an already-encoded 2x2 JPEG.
var rawDecoder = DecoderFunc(func(blob []byte) (Frame, error) {
	if string(blob) == "bad" {
		return Frame{}, errors.New("not an image")
	}
	return Frame{Width: 2, Height: 2, JPEG: blob}, nil
})

func TestMailbox_SubmitBeforeOpen(t *testing.T) {
	m := NewMailbox(rawDecoder)
	err := m.Submit([]byte("frame"))
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestMailbox_DecodeFailure(t *testing.T) {
	m := NewMailbox(rawDecoder)
	require.NoError(t, m.Open(context.Background()))

	assert.ErrorIs(t, m.Submit([]byte("bad")), ErrDecode)
	assert.ErrorIs(t, m.Submit(nil), ErrDecode)
}

func TestMailbox_NewestWins(t *testing.T) {
	m := NewMailbox(rawDecoder)
	require.NoError(t, m.Open(context.Background()))

	require.NoError(t, m.Submit([]byte("one")))
	require.NoError(t, m.Submit([]byte("two")))
	require.NoError(t, m.Submit([]byte("three")))

	f, err := m.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "three", string(f.JPEG))
	assert.Equal(t, uint64(3), f.Seq)
	assert.False(t, f.Captured.IsZero())
	assert.Equal(t, uint64(2), m.Drops())
}

func TestMailbox_NextBlocksUntilSubmit(t *testing.T) {
	m := NewMailbox(rawDecoder)
	require.NoError(t, m.Open(context.Background()))

	got := make(chan Frame, 1)
	go func() {
		f, err := m.Next(context.Background())
		if err == nil {
			got <- f
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.Submit([]byte("late")))

	select {
	case f := <-got:
		assert.Equal(t, "late", string(f.JPEG))
	case <-time.After(time.Second):
		t.Fatal("Next did not wake up")
	}
}

func TestMailbox_CloseWakesNext(t *testing.T) {
	m := NewMailbox(rawDecoder)
	require.NoError(t, m.Open(context.Background()))

	errc := make(chan error, 1)
	go func() {
		_, err := m.Next(context.Background())
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.Close())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Close did not wake Next")
	}
}

func TestMailbox_ContextCancel(t *testing.T) {
	m := NewMailbox(rawDecoder)
	require.NoError(t, m.Open(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMailbox_ReopenClearsSlot(t *testing.T) {
	m := NewMailbox(rawDecoder)
	require.NoError(t, m.Open(context.Background()))
	require.NoError(t, m.Submit([]byte("stale")))
	require.NoError(t, m.Close())
	require.NoError(t, m.Open(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
