package roboroute

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// PathResult is a successful route from start to goal, both inclusive.
type PathResult struct {
	Path []Cell `json:"path"`
	// Steps is len(Path)-1.
	Steps         int           `json:"steps"`
	ExpandedNodes int           `json:"expanded_nodes"`
	Heuristic     HeuristicName `json:"heuristic"`
}

// Pathfinder finds shortest four-directional routes through occupancy grids.
// It holds no per-search state and is safe for concurrent use.
type Pathfinder struct {
	heuristic HeuristicName
	options   []Option
}

// PathfinderOption configures a Pathfinder.
type PathfinderOption func(*Pathfinder)

// WithHeuristic selects the heuristic. The default is HeuristicEuclidean.
func WithHeuristic(name HeuristicName) PathfinderOption {
	return func(p *Pathfinder) { p.heuristic = name }
}

// WithSearchOptions passes engine options such as WithWorkers to every search.
func WithSearchOptions(options ...Option) PathfinderOption {
	return func(p *Pathfinder) { p.options = append(p.options, options...) }
}

// NewPathfinder returns a Pathfinder with the given options applied.
func NewPathfinder(options ...PathfinderOption) *Pathfinder {
	p := &Pathfinder{heuristic: HeuristicEuclidean}
	for _, option := range options {
		option(p)
	}
	return p
}

// Heuristic returns the configured heuristic name.
func (p *Pathfinder) Heuristic() HeuristicName { return p.heuristic }

// UsingHeuristic returns a copy of p that searches with name. Engine options
// carry over.
func (p *Pathfinder) UsingHeuristic(name HeuristicName) *Pathfinder {
	return &Pathfinder{heuristic: name, options: slices.Clone(p.options)}
}

// FindPath runs FindPath on a default Pathfinder without a deadline.
func FindPath(cells [][]int, start, goal Cell) (PathResult, error) {
	return NewPathfinder().FindPath(context.Background(), cells, start, goal)
}

// FindPath returns the shortest route from start to goal.
//
// Malformed grids and out-of-bounds endpoints fail with ErrInvalidInput before
// any search work. When start and goal are not connected through free cells,
// including when either is blocked, the error is ErrNoPath. If ctx expires
// first the error matches both ErrNoPath and ErrSearchTimedOut. When start
// equals goal the path is the single cell.
func (p *Pathfinder) FindPath(ctx context.Context, cells [][]int, start, goal Cell) (PathResult, error) {
	grid, heuristic, err := p.prepare(cells, start, goal)
	if err != nil {
		return PathResult{}, err
	}
	if grid.IsBlocked(start) || grid.IsBlocked(goal) {
		return PathResult{Heuristic: p.heuristic}, fmt.Errorf("%w: endpoint is blocked", ErrNoPath)
	}

	result, err := Search[Cell](ctx, grid, start, goal, heuristic, p.options...)
	if err != nil {
		partial := PathResult{ExpandedNodes: result.ExpandedNodes, Heuristic: p.heuristic}
		switch {
		case errors.Is(err, ErrNoPath):
			return partial, err
		case errors.Is(err, context.DeadlineExceeded):
			return partial, fmt.Errorf("%w: %w: %w", ErrNoPath, ErrSearchTimedOut, err)
		default:
			return partial, fmt.Errorf("search aborted: %w", err)
		}
	}

	return PathResult{
		Path:          result.Path,
		Steps:         len(result.Path) - 1,
		ExpandedNodes: result.ExpandedNodes,
		Heuristic:     p.heuristic,
	}, nil
}

// NewStepper validates the request and returns a Stepper over it, for callers
// that want to watch the expansion order. The caller must Close it.
func (p *Pathfinder) NewStepper(ctx context.Context, cells [][]int, start, goal Cell) (*Stepper[Cell], *Grid, error) {
	grid, heuristic, err := p.prepare(cells, start, goal)
	if err != nil {
		return nil, nil, err
	}
	if grid.IsBlocked(start) || grid.IsBlocked(goal) {
		return nil, nil, fmt.Errorf("%w: endpoint is blocked", ErrNoPath)
	}
	return NewStepper[Cell](ctx, grid, start, goal, heuristic, p.options...), grid, nil
}

func (p *Pathfinder) prepare(cells [][]int, start, goal Cell) (*Grid, Heuristic[Cell], error) {
	heuristic, ok := p.heuristic.Func()
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown heuristic %q", ErrInvalidInput, p.heuristic)
	}
	grid, err := NewGrid(cells)
	if err != nil {
		return nil, nil, err
	}
	if !grid.Contains(start) {
		return nil, nil, fmt.Errorf("%w: start %v outside %dx%d grid", ErrInvalidInput, start, grid.Rows(), grid.Cols())
	}
	if !grid.Contains(goal) {
		return nil, nil, fmt.Errorf("%w: goal %v outside %dx%d grid", ErrInvalidInput, goal, grid.Rows(), grid.Cols())
	}
	return grid, heuristic, nil
}
