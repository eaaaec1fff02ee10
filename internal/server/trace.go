package server

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/pdrpinto/roboroute"
)

// TraceFrame is one websocket message of /ws/trace.
type TraceFrame struct {
	Step    int              `json:"step"`
	Current roboroute.Cell   `json:"current"`
	Open    []roboroute.Cell `json:"open"`
	Closed  []roboroute.Cell `json:"closed"`
	Done    bool             `json:"done"`
	Found   bool             `json:"found"`
	Path    []roboroute.Cell `json:"path,omitempty"`
	Error   string           `json:"error,omitempty"`
	Reason  string           `json:"reason,omitempty"`
}

func sortedCells(set map[roboroute.Cell]bool) []roboroute.Cell {
	out := make([]roboroute.Cell, 0, len(set))
	for c, ok := range set {
		if ok {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b roboroute.Cell) int {
		return cmp.Or(cmp.Compare(a.Row, b.Row), cmp.Compare(a.Col, b.Col))
	})
	return out
}

func frameFromSnapshot(snapshot roboroute.StepSnapshot[roboroute.Cell]) TraceFrame {
	return TraceFrame{
		Step:    snapshot.StepIndex,
		Current: snapshot.Current,
		Open:    sortedCells(snapshot.Open),
		Closed:  sortedCells(snapshot.Closed),
		Done:    snapshot.Done,
		Found:   snapshot.Found,
		Path:    snapshot.Path,
	}
}

// handleTraceWS reads one OptimizeRequest and streams a TraceFrame per
// expansion until the search is done. Traces do not touch the path store.
//
// The search timeout is a budget on time spent stepping; time spent writing
// frames to the client does not count against it.
func (s *Server) handleTraceWS(conn *websocket.Conn) {
	logger := s.logger.With(slog.String("route", "/ws/trace"))
	defer conn.Close()

	var req OptimizeRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(TraceFrame{Done: true, Error: "invalid request body: " + err.Error()})
		return
	}
	if err := req.validate(s.cfg.Server.MaxGridCells); err != nil {
		_ = conn.WriteJSON(TraceFrame{Done: true, Error: err.Error()})
		return
	}
	pathfinder, err := s.pathfinder(req.Heuristic)
	if err != nil {
		_ = conn.WriteJSON(TraceFrame{Done: true, Error: err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stepper, grid, err := pathfinder.NewStepper(ctx, req.Grid, *req.Start, *req.Goal)
	if err != nil {
		frame := TraceFrame{Done: true, Error: err.Error()}
		if errors.Is(err, roboroute.ErrNoPath) {
			frame.Error = ""
		}
		_ = conn.WriteJSON(frame)
		return
	}
	defer stepper.Close()

	budget := s.cfg.Search.Timeout.Duration
	var spent time.Duration

	// every cell is expanded at most once, plus one final exhausted step
	limit := grid.Rows()*grid.Cols() + 1
	for i := 0; i < limit; i++ {
		began := time.Now()
		snapshot, err := stepper.Step()
		spent += time.Since(began)

		frame := frameFromSnapshot(snapshot)
		switch {
		case err != nil:
			frame.Done = true
			frame.Error = err.Error()
		case !frame.Done && budget > 0 && spent > budget:
			logger.Warn("trace search timed out", slog.Int("step", frame.Step))
			frame.Done = true
			frame.Error = errNoPathFound
			frame.Reason = roboroute.ErrSearchTimedOut.Error()
		}
		if writeErr := conn.WriteJSON(frame); writeErr != nil {
			logger.Debug("trace client went away", slog.String("error", writeErr.Error()))
			return
		}
		if frame.Done {
			return
		}
	}
}
