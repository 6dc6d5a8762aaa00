// Command blinkd runs the blink detection service: it reads frames from a
// camera or from uploads, detects blinks and streams events over a
// websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/teslashibe/go-blink/internal/config"
	"github.com/teslashibe/go-blink/internal/log"
	"github.com/teslashibe/go-blink/pkg/blink"
	"github.com/teslashibe/go-blink/pkg/camera"
	"github.com/teslashibe/go-blink/pkg/event"
	"github.com/teslashibe/go-blink/pkg/hub"
	"github.com/teslashibe/go-blink/pkg/landmark"
	"github.com/teslashibe/go-blink/pkg/pipeline"
	"github.com/teslashibe/go-blink/pkg/source"
	"github.com/teslashibe/go-blink/pkg/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "blinkd: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags loads the environment and applies command line overrides.
func parseFlags() (*config.Config, error) {
	port := flag.Int("port", 0, "HTTP port (overrides BLINK_PORT)")
	strategy := flag.String("strategy", "", "Detection strategy: threshold, derivative")
	src := flag.String("source", "", "Frame source: camera, push")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if *port != 0 {
		cfg.Port = *port
	}
	if *strategy != "" {
		cfg.Strategy = *strategy
	}
	if *src != "" {
		cfg.Source = *src
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid flags: %v", errs)
	}
	return cfg, nil
}

func run() error {
	cfg, err := parseFlags()
	if err != nil {
		return err
	}

	log.Init(cfg.LogLevel, cfg.IsProduction())
	logger := log.Component("blinkd")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Detection
	blinkCfg, err := cfg.BlinkConfig()
	if err != nil {
		return err
	}
	detector, err := blink.NewDetector(blinkCfg)
	if err != nil {
		return fmt.Errorf("create detector: %w", err)
	}

	provider, err := landmark.NewHTTPProvider(cfg.LandmarkConfig())
	if err != nil {
		return fmt.Errorf("create landmark provider: %w", err)
	}
	defer provider.Close()

	camCfg, err := cfg.CameraConfig()
	if err != nil {
		return err
	}
	var src source.Source
	switch cfg.Source {
	case config.SourcePush:
		src = source.NewMailbox(camera.NewBlobDecoder(camCfg.Quality, false))
	default:
		src = camera.NewCapture(camCfg)
	}

	// Events
	events := hub.New("events")
	go events.Run(ctx)

	pub := event.NewPublisher(events, cfg.EventBuffer)
	defer pub.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := pipeline.NewMetrics(reg)
	metrics.ObservePublisher(pub)

	coord := pipeline.New(cfg.PipelineConfig(), src, provider, detector, pub,
		pipeline.WithMetrics(metrics),
		pipeline.WithAnnotator(camera.NewAnnotator(camCfg.Quality)),
	)

	server := web.NewServer(strconv.Itoa(cfg.Port), coord, events, web.WithGatherer(reg))
	events.OnBinary(server.HandleUpload)

	logger.Info("starting blinkd",
		"port", cfg.Port,
		"source", cfg.Source,
		"strategy", blinkCfg.Strategy,
		"regions", cfg.Regions,
		"landmarks", cfg.LandmarkURL,
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	if cfg.AutoStart {
		if err := coord.Start(ctx); err != nil {
			logger.Error("auto start failed", "error", err)
		}
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	if err := coord.Stop(); err != nil {
		logger.Warn("pipeline stop", "error", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pub.Flush(flushCtx); err != nil {
		logger.Warn("event flush", "error", err)
	}

	if err := server.Shutdown(); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("stopped",
		"events_published", pub.Published(),
		"events_dropped", pub.Dropped(),
	)
	return nil
}
