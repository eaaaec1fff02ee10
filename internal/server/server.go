// Package server is the HTTP relay: pathfinding, robot commands and
// transcription behind one fiber app.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/sync/errgroup"

	"github.com/pdrpinto/roboroute"
	"github.com/pdrpinto/roboroute/internal/config"
	"github.com/pdrpinto/roboroute/internal/metrics"
	"github.com/pdrpinto/roboroute/internal/pathstore"
	"github.com/pdrpinto/roboroute/internal/robot"
	"github.com/pdrpinto/roboroute/internal/speech"
)

const shutdownTimeout = 5 * time.Second

// MetricsSource serves GET /metrics.
type MetricsSource interface {
	Snapshot(ctx context.Context) ([]metrics.Point, error)
}

// Deps are the collaborators the relay talks to. Transcriber may be nil, in
// which case /api/transcribe answers 503. /metrics is only routed when
// MetricsSource is set.
type Deps struct {
	Store         pathstore.Store
	Robot         robot.Dispatcher
	Transcriber   speech.Transcriber
	Metrics       metrics.Recorder
	MetricsSource MetricsSource
	Logger        *slog.Logger
}

// Server is the relay.
type Server struct {
	app *fiber.App
	cfg config.Config

	store       pathstore.Store
	robot       robot.Dispatcher
	transcriber speech.Transcriber
	metrics     metrics.Recorder
	logger      *slog.Logger
}

// New wires the routes. Store and Robot are required.
func New(cfg config.Config, deps Deps) *Server {
	s := &Server{
		cfg:         cfg,
		store:       deps.Store,
		robot:       deps.Robot,
		transcriber: deps.Transcriber,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
	if s.metrics == nil {
		s.metrics = metrics.Noop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:               "roboroute",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(requestid.New())
	app.Use(cors.New())

	app.Get("/healthz", s.handleHealth)
	if deps.MetricsSource != nil {
		app.Get("/metrics", func(c *fiber.Ctx) error {
			points, err := deps.MetricsSource.Snapshot(c.UserContext())
			if err != nil {
				return err
			}
			return c.JSON(fiber.Map{"metrics": points})
		})
	}

	app.Post("/api/optimize-path", s.handleOptimizePath)
	app.Get("/get-path", s.handleGetPath)

	app.Post("/command", s.handleCommand)
	app.Post("/record/send", s.handleRecordSend)

	app.Post("/api/transcribe", s.handleTranscribe)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/trace", websocket.New(s.handleTraceWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App { return s.app }

// Run serves on the configured address until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("relay listening", slog.String("addr", s.cfg.Server.Addr))
		return s.app.Listen(s.cfg.Server.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("relay shutting down")
		return s.app.ShutdownWithTimeout(shutdownTimeout)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// pathfinder builds a pathfinder for one request. An empty name uses the
// configured heuristic.
func (s *Server) pathfinder(name string) (*roboroute.Pathfinder, error) {
	if name == "" {
		name = s.cfg.Search.Heuristic
	}
	heuristic, err := roboroute.ParseHeuristic(name)
	if err != nil {
		return nil, err
	}
	return roboroute.NewPathfinder(
		roboroute.WithHeuristic(heuristic),
		roboroute.WithSearchOptions(roboroute.WithWorkers(s.cfg.Search.Workers)),
	), nil
}

// searchContext applies the configured search deadline.
func (s *Server) searchContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Search.Timeout.Duration <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.cfg.Search.Timeout.Duration)
}

func (s *Server) requestLogger(c *fiber.Ctx) *slog.Logger {
	id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
	return s.logger.With(slog.String("request_id", id), slog.String("route", c.Path()))
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.requestLogger(c).Error("request failed", slog.String("error", err.Error()))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
