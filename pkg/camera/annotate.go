package camera

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-blink/pkg/blink"
	"github.com/teslashibe/go-blink/pkg/landmark"
	"github.com/teslashibe/go-blink/pkg/source"
)

var (
	eyeColor   = color.RGBA{0, 255, 0, 255}
	mouthColor = color.RGBA{0, 165, 255, 255}
	textColor  = color.RGBA{255, 255, 255, 255}
)

// Annotator draws the eye and mouth contours and the blink count onto
// display frames.
type Annotator struct {
	Quality int
}

// NewAnnotator creates an annotator encoding at the given JPEG quality.
func NewAnnotator(quality int) *Annotator {
	return &Annotator{Quality: quality}
}

// Annotate returns a copy of frame with the overlay drawn. face may be nil,
// in which case only the counter is drawn.
func (a *Annotator) Annotate(frame source.Frame, face *landmark.Face, status blink.Status) (source.Frame, error) {
	img, err := gocv.IMDecode(frame.JPEG, gocv.IMReadColor)
	if err != nil {
		return frame, fmt.Errorf("camera: decode for annotation: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return frame, fmt.Errorf("camera: decode for annotation: empty image")
	}

	if face != nil && face.Topology != nil {
		f := *face
		if f.Width <= 0 || f.Height <= 0 {
			f.Width, f.Height = img.Cols(), img.Rows()
		}
		px, err := f.ToPixel()
		if err != nil {
			return frame, err
		}
		t := px.Topology
		drawPoints(&img, px, t.LeftEye[:], eyeColor)
		drawPoints(&img, px, t.RightEye[:], eyeColor)
		drawPoints(&img, px, t.MouthOuter, mouthColor)
		drawPoints(&img, px, t.MouthInner, mouthColor)
	}

	label := fmt.Sprintf("Blinks: %d", blinkTotal(status))
	if status.Calibration.Calibrating {
		label = fmt.Sprintf("Calibrating %d/%d", status.Calibration.Samples, status.Calibration.Target)
	}
	gocv.PutText(&img, label, image.Pt(10, 30), gocv.FontHersheySimplex, 0.8, textColor, 2)

	data, err := encodeJPEG(img, a.Quality)
	if err != nil {
		return frame, err
	}
	out := frame
	out.JPEG = data
	return out, nil
}

func drawPoints(img *gocv.Mat, face landmark.Face, idx []int, c color.RGBA) {
	pts, err := face.Contour(idx)
	if err != nil {
		return
	}
	for _, p := range pts {
		gocv.Circle(img, image.Pt(int(p.X), int(p.Y)), 2, c, -1)
	}
}

// blinkTotal prefers the combined region, falling back to the first tracked.
func blinkTotal(status blink.Status) int {
	for _, r := range status.Regions {
		if r.Region == blink.Combined {
			return r.Total
		}
	}
	if len(status.Regions) > 0 {
		return status.Regions[0].Total
	}
	return 0
}
