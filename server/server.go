// Package server - HTTP control surface and live display feed for the posture trainer.
package server

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nvr-ai/go-posture/controller"
	"github.com/nvr-ai/go-posture/training"
)

// Config controls the HTTP listener.
type Config struct {
	// Enabled starts the HTTP server.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Address is the listen address, e.g. ":8080".
	Address string `json:"address" yaml:"address" validate:"required_if=Enabled true"`
	// RequestsPerSecond is the sustained per-client rate for the control API.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" validate:"gt=0"`
	// Burst is the per-client burst size for the control API.
	Burst int `json:"burst" yaml:"burst" validate:"gt=0"`
}

// DefaultConfig listens on :8080 with 5 requests per second and a burst of 10.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		Address:           ":8080",
		RequestsPerSecond: 5,
		Burst:             10,
	}
}

// Controls is the control surface the server drives.
type Controls interface {
	StartTraining(ctx context.Context) (<-chan error, error)
	ToggleMonitoring() bool
	StartCountdown(seconds int)
	Status() controller.Status
}

// CountdownRequest starts a countdown.
type CountdownRequest struct {
	Seconds *int `json:"seconds" validate:"required,min=0,max=3600"`
}

// Server serves the control API and the websocket display feed.
type Server struct {
	config   Config
	app      *fiber.App
	controls Controls
	hub      *Hub
	validate *validator.Validate
	limiter  *rateLimiter
	log      *zap.Logger

	// mu orders training starts against Shutdown so no capture is added to wg
	// once Shutdown waits on it.
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a server and registers its routes.
//
// Arguments:
//   - config: Listener and rate limit settings.
//   - controls: The controller.
//   - hub: The websocket hub carrying display updates.
//   - log: Logger, nil for none.
//
// Returns:
//   - *Server: The server; call Listen to serve.
//
// @example
// srv := server.New(cfg.Server, ctrl, hub, log)
// go srv.Listen()
// defer srv.Shutdown()
func New(config Config, controls Controls, hub *Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config:   config,
		controls: controls,
		hub:      hub,
		validate: validator.New(),
		limiter:  newRateLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "posture",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	api := s.app.Group("/api", s.rateLimit)
	api.Post("/training", s.train)
	api.Post("/monitoring/toggle", s.toggleMonitoring)
	api.Post("/countdown", s.startCountdown)
	api.Get("/status", s.status)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(hub.Serve))

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until Shutdown is called.
func (s *Server) Listen() error {
	s.log.Info("control server listening", zap.String("address", s.config.Address))
	if err := s.app.Listen(s.config.Address); err != nil {
		return errors.Wrapf(err, "listen on %s", s.config.Address)
	}
	return nil
}

// Shutdown stops the listener, cancels running trainings and disconnects clients.
func (s *Server) Shutdown() error {
	err := s.app.Shutdown()
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
	s.hub.Close()
	return err
}

func (s *Server) train(c *fiber.Ctx) error {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return fiber.NewError(fiber.StatusServiceUnavailable, "server shutting down")
	}
	result, err := s.controls.StartTraining(s.ctx)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, training.ErrCaptureInProgress) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return err
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if err := <-result; err != nil {
			s.log.Warn("training request failed", zap.Error(err))
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"training": true})
}

func (s *Server) toggleMonitoring(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"monitoring": s.controls.ToggleMonitoring()})
}

func (s *Server) startCountdown(c *fiber.Ctx) error {
	var req CountdownRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	s.controls.StartCountdown(*req.Seconds)
	return c.JSON(fiber.Map{"seconds": *req.Seconds})
}

func (s *Server) status(c *fiber.Ctx) error {
	return c.JSON(s.controls.Status())
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
