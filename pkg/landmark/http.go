package landmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/teslashibe/go-blink/internal/httpc"
	"github.com/teslashibe/go-blink/pkg/source"
)

// HTTPConfig configures the sidecar provider.
type HTTPConfig struct {
	URL      string        // Endpoint accepting POSTed JPEG frames
	Timeout  time.Duration // Per-request timeout
	Topology string        // Used when the response does not name one
}

// DefaultHTTPConfig returns defaults for a local MediaPipe sidecar.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		URL:      "http://localhost:5001/landmarks",
		Timeout:  2 * time.Second,
		Topology: MediaPipe.Name,
	}
}

// HTTPProvider sends frames to an inference sidecar (MediaPipe face mesh or
// a dlib shape predictor) and decodes the landmarks it returns.
type HTTPProvider struct {
	cfg      HTTPConfig
	client   *http.Client
	topology *Topology
}

// NewHTTPProvider creates a provider for the sidecar at cfg.URL.
func NewHTTPProvider(cfg HTTPConfig) (*HTTPProvider, error) {
	if cfg.URL == "" {
		return nil, ErrNoURL
	}
	topo, err := TopologyByName(cfg.Topology)
	if err != nil {
		return nil, err
	}
	return &HTTPProvider{
		cfg:      cfg,
		client:   httpc.NewClient(cfg.Timeout),
		topology: topo,
	}, nil
}

// inferResponse is the sidecar's JSON body.
type inferResponse struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Space    string `json:"space"`
	Topology string `json:"topology"`
	Faces    []struct {
		Points [][]float64 `json:"points"`
		Score  float64     `json:"score"`
	} `json:"faces"`
}

// Landmarks implements Provider.
func (p *HTTPProvider) Landmarks(ctx context.Context, frame source.Frame) ([]Face, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(frame.JPEG))
	if err != nil {
		return nil, fmt.Errorf("landmark: build request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("landmark: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("landmark: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(body))}
	}

	var out inferResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("landmark: decode response: %w", err)
	}
	return p.toFaces(out, frame)
}

func (p *HTTPProvider) toFaces(out inferResponse, frame source.Frame) ([]Face, error) {
	space, err := ParseSpace(out.Space)
	if err != nil {
		return nil, err
	}
	topo := p.topology
	if out.Topology != "" {
		if topo, err = TopologyByName(out.Topology); err != nil {
			return nil, err
		}
	}

	width, height := out.Width, out.Height
	if width == 0 || height == 0 {
		width, height = frame.Width, frame.Height
	}

	faces := make([]Face, 0, len(out.Faces))
	for i, f := range out.Faces {
		pts := make([]Point, len(f.Points))
		for j, c := range f.Points {
			switch len(c) {
			case 2:
				pts[j] = Point{X: c[0], Y: c[1]}
			case 3:
				pts[j] = Point{X: c[0], Y: c[1], Z: c[2]}
			default:
				return nil, fmt.Errorf("landmark: face %d point %d has %d coordinates", i, j, len(c))
			}
		}
		faces = append(faces, Face{
			Points:     pts,
			Space:      space,
			Topology:   topo,
			Width:      width,
			Height:     height,
			Confidence: f.Score,
		})
	}
	return faces, nil
}

// Close releases idle connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
