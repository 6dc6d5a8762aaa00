package camera

import (
	"fmt"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-blink/pkg/source"
)

// BlobDecoder turns uploaded images (JPEG, PNG, WebP ...) into frames.
// It re-encodes to JPEG so every frame downstream has the same format.
type BlobDecoder struct {
	Quality int
	Flip    bool

	seq atomic.Uint64
}

// NewBlobDecoder creates a decoder that encodes at the given JPEG quality.
func NewBlobDecoder(quality int, flip bool) *BlobDecoder {
	return &BlobDecoder{Quality: quality, Flip: flip}
}

// Decode implements source.Decoder.
func (d *BlobDecoder) Decode(blob []byte) (source.Frame, error) {
	img, err := gocv.IMDecode(blob, gocv.IMReadColor)
	if err != nil {
		return source.Frame{}, fmt.Errorf("%w: %v", source.ErrDecode, err)
	}
	defer img.Close()
	if img.Empty() {
		return source.Frame{}, fmt.Errorf("%w: not an image", source.ErrDecode)
	}

	if d.Flip {
		gocv.Flip(img, &img, 1)
	}

	data, err := encodeJPEG(img, d.Quality)
	if err != nil {
		return source.Frame{}, err
	}

	return source.Frame{
		Seq:      d.seq.Add(1),
		Width:    img.Cols(),
		Height:   img.Rows(),
		JPEG:     data,
		Captured: time.Now(),
	}, nil
}
