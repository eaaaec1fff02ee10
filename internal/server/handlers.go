package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pdrpinto/roboroute"
	"github.com/pdrpinto/roboroute/internal/metrics"
	"github.com/pdrpinto/roboroute/internal/pathstore"
	"github.com/pdrpinto/roboroute/internal/speech"
)

// errNoPathFound is the error text of every failed search response.
const errNoPathFound = "No path found"

// OptimizeRequest is the body of POST /api/optimize-path.
type OptimizeRequest struct {
	Grid      [][]int         `json:"grid" yaml:"grid"`
	Start     *roboroute.Cell `json:"start" yaml:"start"`
	Goal      *roboroute.Cell `json:"goal" yaml:"goal"`
	Heuristic string          `json:"heuristic,omitempty" yaml:"heuristic,omitempty"`
}

// validate checks what JSON decoding cannot: both endpoints present and the
// grid within the configured size.
func (r OptimizeRequest) validate(maxCells int) error {
	if r.Start == nil || r.Goal == nil {
		return fiber.NewError(fiber.StatusBadRequest, "start and goal are required")
	}
	if len(r.Grid) > 0 && len(r.Grid)*len(r.Grid[0]) > maxCells {
		return fiber.NewError(fiber.StatusBadRequest, "grid exceeds the maximum cell count")
	}
	return nil
}

// PathResponse is the success body of the path endpoints.
type PathResponse struct {
	Path          []roboroute.Cell `json:"path"`
	Steps         int              `json:"steps"`
	ExpandedNodes int              `json:"expanded_nodes,omitempty"`
	ID            string           `json:"id"`
	ComputedAt    time.Time        `json:"computed_at"`
}

// CommandRequest is the body of POST /command.
type CommandRequest struct {
	Command string `json:"command"`
}

// RecordSendRequest is the body of POST /record/send.
type RecordSendRequest struct {
	Commands []string `json:"commands"`
}

// handleHealth is a liveness probe
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleOptimizePath runs the pathfinder and records a successful result as
// the last path.
func (s *Server) handleOptimizePath(c *fiber.Ctx) error {
	logger := s.requestLogger(c)

	var req OptimizeRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if err := req.validate(s.cfg.Server.MaxGridCells); err != nil {
		return err
	}
	pathfinder, err := s.pathfinder(req.Heuristic)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := s.searchContext(c.UserContext())
	defer cancel()

	began := time.Now()
	result, err := pathfinder.FindPath(ctx, req.Grid, *req.Start, *req.Goal)
	elapsed := time.Since(began)

	outcome := searchOutcome(err)
	s.metrics.RecordSearch(ctx, outcome, string(pathfinder.Heuristic()), result.ExpandedNodes, elapsed)
	logger = logger.With(
		slog.String("outcome", outcome),
		slog.Int("expanded_nodes", result.ExpandedNodes),
		slog.Float64("duration_ms", float64(elapsed.Microseconds())/1000),
	)

	switch {
	case err == nil:
	case errors.Is(err, roboroute.ErrInvalidInput):
		logger.Info("rejected path request", slog.String("error", err.Error()))
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, roboroute.ErrSearchTimedOut):
		logger.Warn("path search timed out")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  errNoPathFound,
			"reason": roboroute.ErrSearchTimedOut.Error(),
		})
	case errors.Is(err, roboroute.ErrNoPath):
		logger.Info("no path found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": errNoPathFound})
	default:
		return err
	}

	record := pathstore.NewRecord(*req.Start, *req.Goal, result)
	if err := s.store.Save(c.UserContext(), record); err != nil {
		logger.Error("failed to store path", slog.String("error", err.Error()))
	}
	logger.Info("path computed", slog.String("path_id", record.ID.String()), slog.Int("steps", result.Steps))

	if s.cfg.Robot.ForwardPath {
		err := s.robot.SendPath(c.UserContext(), result.Path)
		s.metrics.RecordDispatch(c.UserContext(), "path", err)
		if err != nil {
			logger.Warn("failed to send path to robot", slog.String("error", err.Error()))
		}
	}

	return c.JSON(PathResponse{
		Path:          result.Path,
		Steps:         result.Steps,
		ExpandedNodes: result.ExpandedNodes,
		ID:            record.ID.String(),
		ComputedAt:    record.ComputedAt,
	})
}

func searchOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeFound
	case errors.Is(err, roboroute.ErrInvalidInput):
		return metrics.OutcomeInvalid
	case errors.Is(err, roboroute.ErrSearchTimedOut):
		return metrics.OutcomeTimedOut
	default:
		return metrics.OutcomeNoPath
	}
}

// handleGetPath returns the last successfully computed path
func (s *Server) handleGetPath(c *fiber.Ctx) error {
	record, err := s.store.Load(c.UserContext())
	if errors.Is(err, pathstore.ErrEmpty) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No path computed"})
	}
	if err != nil {
		return err
	}
	return c.JSON(PathResponse{
		Path:       record.Path,
		Steps:      len(record.Path) - 1,
		ID:         record.ID.String(),
		ComputedAt: record.ComputedAt,
	})
}

// handleCommand relays one driving command. Robot failures are logged and
// the command is still acknowledged.
func (s *Server) handleCommand(c *fiber.Ctx) error {
	var req CommandRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "No command received"})
	}

	s.requestLogger(c).Info("received command", slog.String("command", req.Command))
	s.dispatch(c, req.Command)
	return c.JSON(fiber.Map{"status": "command received"})
}

// handleRecordSend relays a recorded command sequence in order.
func (s *Server) handleRecordSend(c *fiber.Ctx) error {
	var req RecordSendRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if len(req.Commands) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "No commands received"})
	}

	for _, command := range req.Commands {
		s.dispatch(c, command)
	}
	return c.JSON(fiber.Map{"status": "command sent"})
}

func (s *Server) dispatch(c *fiber.Ctx, command string) {
	err := s.robot.SendCommand(c.UserContext(), command)
	s.metrics.RecordDispatch(c.UserContext(), "command", err)
	if err != nil {
		s.requestLogger(c).Warn("failed to send command to robot",
			slog.String("command", command),
			slog.String("error", err.Error()))
	}
}

// handleTranscribe relays a raw LINEAR16 upload to the speech API.
func (s *Server) handleTranscribe(c *fiber.Ctx) error {
	if s.transcriber == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "transcription is not configured")
	}

	began := time.Now()
	transcripts, err := s.transcriber.Transcribe(c.UserContext(), c.Body())
	s.metrics.RecordTranscription(c.UserContext(), time.Since(began), err)
	switch {
	case errors.Is(err, speech.ErrEmptyAudio):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case err != nil:
		s.requestLogger(c).Error("transcription failed", slog.String("error", err.Error()))
		return fiber.NewError(fiber.StatusBadGateway, "transcription failed")
	}
	return c.JSON(fiber.Map{"transcripts": transcripts})
}
