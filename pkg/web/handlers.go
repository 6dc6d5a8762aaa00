package web

import (
	"bufio"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-blink/pkg/pipeline"
	"github.com/teslashibe/go-blink/pkg/source"
)

// handleIndex is the liveness probe
func (s *Server) handleIndex(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "backend is live"})
}

// handleStartStream starts the pipeline
func (s *Server) handleStartStream(c *fiber.Ctx) error {
	if err := s.ctrl.Start(c.UserContext()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "error",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "started"})
}

// handleStopStream stops the pipeline
func (s *Server) handleStopStream(c *fiber.Ctx) error {
	if err := s.ctrl.Stop(); err != nil {
		// The pipeline is stopped either way; the source just closed uncleanly
		s.log.Warn("stop reported an error", "error", err)
	}
	return c.JSON(fiber.Map{"status": "stopped"})
}

// handleStartCalibration restarts threshold calibration
func (s *Server) handleStartCalibration(c *fiber.Ctx) error {
	s.ctrl.Recalibrate()
	return c.JSON(fiber.Map{"status": "calibrating"})
}

// handleStatus returns the pipeline status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	st := s.ctrl.Status()
	clients := 0
	if s.events != nil {
		clients = s.events.ClientCount()
	}
	return c.JSON(fiber.Map{
		"pipeline": st,
		"clients":  clients,
	})
}

// handleFrame accepts one uploaded image for the push source
func (s *Server) handleFrame(c *fiber.Ctx) error {
	// fasthttp reuses the body buffer after the handler returns
	blob := append([]byte(nil), c.Body()...)

	err := s.submit(blob)
	switch {
	case err == nil:
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
	case errors.Is(err, source.ErrDecode):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrPushUnsupported):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, pipeline.ErrSourceUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}

// HandleUpload submits a frame received over the websocket. Decode failures
// are logged and dropped.
func (s *Server) HandleUpload(clientID uuid.UUID, data []byte) {
	if err := s.submit(data); err != nil {
		s.log.Warn("frame upload rejected", "client_id", clientID, "bytes", len(data), "error", err)
	}
}

func (s *Server) submit(blob []byte) error {
	return s.ctrl.Submit(s.ctx, blob)
}

// handleVideoFeed streams display frames as MJPEG until the client goes
// away or the server shuts down.
func (s *Server) handleVideoFeed(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "multipart/x-mixed-replace; boundary=frame")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	ctx, cancel := context.WithCancel(s.ctx)
	frames := s.ctrl.Frames(ctx)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for f := range frames {
			if _, err := w.WriteString("--frame\r\nContent-Type: image/jpeg\r\n\r\n"); err != nil {
				return
			}
			if _, err := w.Write(f.JPEG); err != nil {
				return
			}
			if _, err := w.WriteString("\r\n"); err != nil {
				return
			}
			// A failed flush means the client disconnected
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}
