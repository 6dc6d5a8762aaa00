// Package web serves the blink pipeline's control surface: start/stop and
// calibration routes, the MJPEG display feed, frame uploads, status,
// Prometheus metrics and the websocket event stream.
package web

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-blink/internal/log"
	"github.com/teslashibe/go-blink/pkg/hub"
	"github.com/teslashibe/go-blink/pkg/pipeline"
	"github.com/teslashibe/go-blink/pkg/source"
)

// Controller is the pipeline surface the server drives.
// *pipeline.Coordinator implements it.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	Recalibrate()
	Submit(ctx context.Context, blob []byte) error
	Frames(ctx context.Context) <-chan source.Frame
	Status() pipeline.Status
}

// Server is the HTTP control surface.
type Server struct {
	app  *fiber.App
	port string
	log  *slog.Logger

	ctrl     Controller
	events   *hub.Hub
	gatherer prometheus.Gatherer

	// Cancelled on Shutdown so open MJPEG streams end
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithGatherer serves metrics from g on /metrics.
// Without it the default Prometheus registry is used.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewServer creates the server and registers its routes.
func NewServer(port string, ctrl Controller, events *hub.Hub, opts ...Option) *Server {
	s := &Server{
		port:     port,
		ctrl:     ctrl,
		events:   events,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = log.Component("web")
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	app := fiber.New(fiber.Config{
		AppName:               "blinkd",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(s.log),
		BodyLimit:             8 * 1024 * 1024,
	})

	app.Use(requestid.New())
	app.Use(recoverer(s.log))
	app.Use(requestLogger(s.log))
	app.Use(cors.New())

	app.Get("/", s.handleIndex)
	app.Post("/start_stream", s.handleStartStream)
	app.Post("/stop_stream", s.handleStopStream)
	app.Post("/start_calibration", s.handleStartCalibration)
	app.Get("/video_feed", s.handleVideoFeed)
	app.Post("/frame", s.handleFrame)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	if events != nil {
		app.Use("/ws", hub.UpgradeMiddleware())
		app.Get("/ws", hub.Handler(events))
	}

	s.app = app
	return s
}

// Start listens on the configured port. It blocks until Shutdown.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", ":"+s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown ends open streams and gracefully stops the server.
func (s *Server) Shutdown() error {
	s.cancel()
	return s.app.Shutdown()
}
