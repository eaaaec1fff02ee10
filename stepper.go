package roboroute

import (
	"context"
	"maps"
)

// StepSnapshot exposes the per-iteration state of the search
type StepSnapshot[NodeType comparable] struct {
	Current   NodeType
	Open      map[NodeType]bool
	Closed    map[NodeType]bool
	CameFrom  map[NodeType]NodeType
	Done      bool
	Found     bool
	Path      []NodeType
	StepIndex int
}

// Stepper runs the same orchestrator as Search, one node expansion per Step.
type Stepper[NodeType comparable] struct {
	ctx    context.Context
	cancel context.CancelFunc
	state  *searchState[NodeType]

	stepCount int
	done      bool
	found     bool
	path      []NodeType
	// last node popped; reported as Current once the search is done
	lastExpanded NodeType
}

// NewStepper creates a new stepper. Close releases its workers.
func NewStepper[NodeType comparable](
	parent context.Context,
	graph Graph[NodeType],
	startNode NodeType,
	goalNode NodeType,
	heuristic Heuristic[NodeType],
	options ...Option,
) *Stepper[NodeType] {
	opts := applyOptions(options)

	ctx, cancel := context.WithCancel(parent)
	var pool *workerPool[NodeType]
	if opts.NumberOfWorkers > 0 {
		pool = startWorkerPool[NodeType](ctx, opts.NumberOfWorkers)
	}
	return &Stepper[NodeType]{
		ctx:    ctx,
		cancel: cancel,
		state:  newSearchState(graph, startNode, goalNode, heuristic, pool),
	}
}

// Close stops the workers
func (s *Stepper[NodeType]) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Done reports whether the search has finished.
func (s *Stepper[NodeType]) Done() bool { return s.done }

// Step advances the search by one node expansion and returns a snapshot.
// Once the search is done every further call returns the final snapshot.
func (s *Stepper[NodeType]) Step() (StepSnapshot[NodeType], error) {
	if s.done {
		return s.snapshot(s.lastExpanded), nil
	}

	outcome, err := s.state.advance(s.ctx)
	if err != nil {
		s.done = true
		return StepSnapshot[NodeType]{Current: s.lastExpanded, Done: true, Found: false, StepIndex: s.stepCount}, err
	}

	switch outcome.status {
	case stepExhausted:
		s.done = true
	case stepGoal:
		s.stepCount++
		s.done = true
		s.found = true
		s.lastExpanded = outcome.current.Node
		s.path = s.state.pathTo(s.lastExpanded)
	default:
		s.stepCount++
		s.lastExpanded = outcome.current.Node
	}
	return s.snapshot(s.lastExpanded), nil
}

func (s *Stepper[NodeType]) snapshot(current NodeType) StepSnapshot[NodeType] {
	open := make(map[NodeType]bool, len(s.state.openSetMap))
	for node := range s.state.openSetMap {
		open[node] = true
	}
	var path []NodeType
	if s.found {
		path = append([]NodeType(nil), s.path...)
	}
	return StepSnapshot[NodeType]{
		Current:   current,
		Open:      open,
		Closed:    maps.Clone(s.state.closedSet),
		CameFrom:  maps.Clone(s.state.cameFrom),
		Done:      s.done,
		Found:     s.found,
		Path:      path,
		StepIndex: s.stepCount,
	}
}
