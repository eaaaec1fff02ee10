package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/pdrpinto/roboroute"
	"github.com/pdrpinto/roboroute/internal/log"
	"github.com/pdrpinto/roboroute/internal/server"
)

var (
	solveHeuristic string
	solveFormat    string
	solveDraw      bool
)

func init() {
	solveCmd.Flags().StringVar(&solveHeuristic, "heuristic", "", "heuristic (euclidean|manhattan), defaults to config")
	solveCmd.Flags().StringVar(&solveFormat, "format", "pretty", "output format (pretty|json)")
	solveCmd.Flags().BoolVar(&solveDraw, "draw", true, "draw the grid with the path")
}

var solveCmd = &cobra.Command{
	Use:   "solve <request.json|request.yaml>...",
	Short: "Solve path requests from files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		format := strings.ToLower(solveFormat)
		if format != "pretty" && format != "json" {
			return fmt.Errorf("unsupported format %q (must be pretty or json)", solveFormat)
		}
		log.Init(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			color.NoColor = true
		}

		name := solveHeuristic
		if name == "" {
			name = cfg.Search.Heuristic
		}
		heuristic, err := roboroute.ParseHeuristic(name)
		if err != nil {
			return err
		}
		pathfinder := roboroute.NewPathfinder(
			roboroute.WithHeuristic(heuristic),
			roboroute.WithSearchOptions(roboroute.WithWorkers(cfg.Search.Workers)),
		)

		outcomes := solveFiles(cmd.Context(), pathfinder, args, cfg.Search.Timeout.Duration)
		out := cmd.OutOrStdout()
		failed := 0
		for _, o := range outcomes {
			switch {
			case o.err == nil:
				log.Debug("solved request",
					slog.String("file", o.file),
					slog.Int("steps", o.result.Steps),
					slog.Int("expanded_nodes", o.result.ExpandedNodes),
					slog.String("heuristic", string(o.result.Heuristic)))
			case errors.Is(o.err, roboroute.ErrNoPath):
				log.Debug("no path", slog.String("file", o.file), slog.String("error", o.err.Error()))
			default:
				failed++
				log.Warn("request failed", slog.String("file", o.file), slog.String("error", o.err.Error()))
			}
			if format == "json" {
				if err := renderOutcomeJSON(out, o); err != nil {
					return err
				}
				continue
			}
			renderOutcome(out, o, solveDraw)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d requests failed", failed, len(outcomes))
		}
		return nil
	},
}

// solveOutcome is the result of one request file.
type solveOutcome struct {
	file    string
	request server.OptimizeRequest
	result  roboroute.PathResult
	err     error
}

// solveFiles runs every file concurrently. Outcomes keep argument order.
func solveFiles(ctx context.Context, pathfinder *roboroute.Pathfinder, files []string, timeout time.Duration) []solveOutcome {
	outcomes := make([]solveOutcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, file := range files {
		g.Go(func() error {
			o := solveOutcome{file: file}
			defer func() { outcomes[i] = o }()

			o.request, o.err = readRequest(file)
			if o.err != nil {
				return nil
			}
			if o.request.Start == nil || o.request.Goal == nil {
				o.err = fmt.Errorf("%w: start and goal are required", roboroute.ErrInvalidInput)
				return nil
			}
			searchCtx, cancel := gctx, context.CancelFunc(func() {})
			if timeout > 0 {
				searchCtx, cancel = context.WithTimeout(gctx, timeout)
			}
			defer cancel()

			p := pathfinder
			if o.request.Heuristic != "" {
				var h roboroute.HeuristicName
				if h, o.err = roboroute.ParseHeuristic(o.request.Heuristic); o.err != nil {
					return nil
				}
				p = pathfinder.UsingHeuristic(h)
			}
			o.result, o.err = p.FindPath(searchCtx, o.request.Grid, *o.request.Start, *o.request.Goal)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// readRequest decodes a request file, YAML for .yaml/.yml and JSON otherwise.
func readRequest(file string) (server.OptimizeRequest, error) {
	var req server.OptimizeRequest
	data, err := os.ReadFile(file)
	if err != nil {
		return req, err
	}
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &req)
	default:
		err = json.Unmarshal(data, &req)
	}
	if err != nil {
		return req, fmt.Errorf("%w: decode %s: %v", roboroute.ErrInvalidInput, file, err)
	}
	return req, nil
}

var (
	labelColor = color.New(color.Bold)
	okColor    = color.New(color.FgGreen, color.Bold)
	failColor  = color.New(color.FgRed, color.Bold)
	wallColor  = color.New(color.FgHiBlack)
	pathColor  = color.New(color.FgYellow, color.Bold)
	endColor   = color.New(color.FgGreen, color.Bold)
)

func renderOutcome(out io.Writer, o solveOutcome, draw bool) {
	labelColor.Fprintf(out, "%s: ", o.file)
	switch {
	case o.err == nil:
		okColor.Fprintf(out, "%d steps", o.result.Steps)
		fmt.Fprintf(out, " (%d expanded, %s)\n", o.result.ExpandedNodes, o.result.Heuristic)
		fmt.Fprintln(out, formatPath(o.result.Path))
	case errors.Is(o.err, roboroute.ErrSearchTimedOut):
		failColor.Fprintln(out, "no path (search timed out)")
	case errors.Is(o.err, roboroute.ErrNoPath):
		failColor.Fprintln(out, "no path")
	default:
		failColor.Fprintln(out, o.err.Error())
		return
	}
	if draw {
		drawGrid(out, o.request, o.result.Path)
	}
}

func formatPath(path []roboroute.Cell) string {
	parts := make([]string, len(path))
	for i, c := range path {
		parts[i] = c.String()
	}
	return strings.Join(parts, " -> ")
}

// drawGrid prints the grid with S and G at the endpoints, # for walls and *
// along the path.
func drawGrid(out io.Writer, req server.OptimizeRequest, path []roboroute.Cell) {
	onPath := make(map[roboroute.Cell]bool, len(path))
	for _, c := range path {
		onPath[c] = true
	}
	for r, row := range req.Grid {
		var b strings.Builder
		for c, v := range row {
			cell := roboroute.Cell{Row: r, Col: c}
			switch {
			case req.Start != nil && cell == *req.Start:
				b.WriteString(endColor.Sprint("S"))
			case req.Goal != nil && cell == *req.Goal:
				b.WriteString(endColor.Sprint("G"))
			case v == roboroute.Blocked:
				b.WriteString(wallColor.Sprint("#"))
			case onPath[cell]:
				b.WriteString(pathColor.Sprint("*"))
			default:
				b.WriteString(".")
			}
		}
		fmt.Fprintln(out, b.String())
	}
}

type outcomePayload struct {
	File  string                `json:"file"`
	Found bool                  `json:"found"`
	Path  *roboroute.PathResult `json:"result,omitempty"`
	Error string                `json:"error,omitempty"`
}

func renderOutcomeJSON(out io.Writer, o solveOutcome) error {
	payload := outcomePayload{File: o.file, Found: o.err == nil}
	if o.err == nil {
		payload.Path = &o.result
	} else {
		payload.Error = o.err.Error()
	}
	enc := json.NewEncoder(out)
	return enc.Encode(payload)
}
