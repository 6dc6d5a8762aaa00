package landmark

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-blink/pkg/source"
)

func TestFace_Eye(t *testing.T) {
	face := SyntheticFace(Dlib68, 0.3, 0.2, 640, 480)

	left, err := face.Eye(Left)
	require.NoError(t, err)
	assert.Equal(t, Pixel, left.Space)
	assert.Equal(t, face.Points[36], left.Points[0])
	assert.Equal(t, face.Points[39], left.Points[3])

	right, err := face.Eye(Right)
	require.NoError(t, err)
	assert.Equal(t, face.Points[42], right.Points[0])
}

func TestFace_EyeErrors(t *testing.T) {
	_, err := Face{Points: make([]Point, 10)}.Eye(Left)
	assert.ErrorIs(t, err, ErrNoTopology)

	_, err = Face{Points: make([]Point, 10), Topology: Dlib68}.Eye(Left)
	assert.ErrorIs(t, err, ErrShortFace)
}

func TestFace_SpaceConversion(t *testing.T) {
	face := Face{
		Points:   []Point{{X: 0.5, Y: 0.25, Z: -0.1}},
		Space:    Normalized,
		Topology: Dlib68,
		Width:    640,
		Height:   480,
	}

	px, err := face.ToPixel()
	require.NoError(t, err)
	assert.Equal(t, Pixel, px.Space)
	assert.InDelta(t, 320.0, px.Points[0].X, 1e-9)
	assert.InDelta(t, 120.0, px.Points[0].Y, 1e-9)
	assert.InDelta(t, -64.0, px.Points[0].Z, 1e-9)

	// Receiver is untouched
	assert.Equal(t, 0.5, face.Points[0].X)

	back, err := px.ToNormalized()
	require.NoError(t, err)
	assert.Equal(t, Normalized, back.Space)
	assert.InDelta(t, 0.5, back.Points[0].X, 1e-12)
	assert.InDelta(t, 0.25, back.Points[0].Y, 1e-12)
	assert.InDelta(t, -0.1, back.Points[0].Z, 1e-12)
}

func TestFace_ConversionNeedsDimensions(t *testing.T) {
	_, err := Face{Space: Normalized}.ToPixel()
	assert.ErrorIs(t, err, ErrNoDimensions)

	_, err = Face{Space: Pixel}.ToNormalized()
	assert.ErrorIs(t, err, ErrNoDimensions)
}

func TestSelectPrimary(t *testing.T) {
	assert.Nil(t, SelectPrimary(nil))

	small := Face{Space: Normalized, Points: []Point{{0.4, 0.4, 0}, {0.5, 0.5, 0}}}
	large := Face{Space: Normalized, Points: []Point{{0.1, 0.1, 0}, {0.6, 0.7, 0}}}

	best := SelectPrimary([]Face{small, large})
	require.NotNil(t, best)
	assert.Equal(t, large.Points, best.Points)

	// Ties keep the first face
	tied := []Face{small, small}
	assert.Same(t, &tied[0], SelectPrimary(tied))
}

func TestTopologyByName(t *testing.T) {
	tests := []struct {
		name    string
		want    *Topology
		wantErr bool
	}{
		{"mediapipe", MediaPipe, false},
		{"facemesh", MediaPipe, false},
		{"dlib", Dlib68, false},
		{"dlib68", Dlib68, false},
		{"openface", nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := TopologyByName(tc.name)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Same(t, tc.want, got)
		})
	}
}

func TestTopology_IndicesInRange(t *testing.T) {
	for _, topo := range []*Topology{MediaPipe, Dlib68} {
		all := append(append([]int{}, topo.LeftEye[:]...), topo.RightEye[:]...)
		all = append(all, topo.MouthOuter...)
		all = append(all, topo.MouthInner...)
		for _, i := range all {
			assert.Less(t, i, topo.Size, "%s index %d", topo.Name, i)
		}
	}
	assert.Len(t, Dlib68.MouthOuter, 12)
	assert.Len(t, Dlib68.MouthInner, 8)
}

func TestHTTPProvider_Landmarks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "jpeg-bytes", string(body))

		points := make([][]float64, 68)
		for i := range points {
			points[i] = []float64{float64(i), float64(i) * 2}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"space":    "pixel",
			"topology": "dlib68",
			"faces":    []map[string]any{{"points": points, "score": 0.9}},
		})
	}))
	defer srv.Close()

	cfg := DefaultHTTPConfig()
	cfg.URL = srv.URL
	p, err := NewHTTPProvider(cfg)
	require.NoError(t, err)
	defer p.Close()

	faces, err := p.Landmarks(context.Background(), source.Frame{Width: 640, Height: 480, JPEG: []byte("jpeg-bytes")})
	require.NoError(t, err)
	require.Len(t, faces, 1)

	f := faces[0]
	assert.Equal(t, Pixel, f.Space)
	assert.Same(t, Dlib68, f.Topology)
	assert.Equal(t, 640, f.Width)
	assert.Equal(t, 480, f.Height)
	assert.Equal(t, 0.9, f.Confidence)
	assert.Equal(t, Point{X: 36, Y: 72}, f.Points[36])
}

func TestHTTPProvider_NoFaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"width":640,"height":480,"faces":[]}`))
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{URL: srv.URL, Topology: "mediapipe"})
	require.NoError(t, err)

	faces, err := p.Landmarks(context.Background(), source.Frame{JPEG: []byte("x")})
	require.NoError(t, err)
	assert.Empty(t, faces)
}

func TestHTTPProvider_Errors(t *testing.T) {
	_, err := NewHTTPProvider(HTTPConfig{})
	assert.ErrorIs(t, err, ErrNoURL)

	_, err = NewHTTPProvider(HTTPConfig{URL: "http://x", Topology: "unknown"})
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{URL: srv.URL, Topology: "mediapipe"})
	require.NoError(t, err)

	_, err = p.Landmarks(context.Background(), source.Frame{JPEG: []byte("x")})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.True(t, apiErr.IsServerError())
	assert.Contains(t, apiErr.Message, "model not loaded")
}

func TestHTTPProvider_BadPoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"faces":[{"points":[[1]]}]}`))
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(HTTPConfig{URL: srv.URL, Topology: "mediapipe"})
	require.NoError(t, err)

	_, err = p.Landmarks(context.Background(), source.Frame{JPEG: []byte("x")})
	assert.Error(t, err)
}

func TestMock(t *testing.T) {
	face := SyntheticFace(MediaPipe, 0.3, 0.3, 100, 100)
	m := NewMock(face)

	faces, err := m.Landmarks(context.Background(), source.Frame{})
	require.NoError(t, err)
	assert.Len(t, faces, 1)
	assert.Equal(t, 1, m.Calls())

	m.LandmarksFunc = nil
	faces, err = m.Landmarks(context.Background(), source.Frame{})
	require.NoError(t, err)
	assert.Empty(t, faces)
	assert.NoError(t, m.Close())
}
