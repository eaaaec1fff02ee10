package roboroute

import (
	"container/heap"
	"context"
	"errors"

	"github.com/pdrpinto/roboroute/internal"
)

// Graph is generic over node type N.
// N must be comparable so it can be used in maps.
type Graph[NodeType comparable] interface {
	Neighbors(node NodeType) []Neighbor[NodeType]
}

// Neighbor represents a reachable node with a cost.
type Neighbor[NodeType comparable] struct {
	ID   NodeType
	Cost float64
}

// Heuristic returns the estimated cost from node a to node b
type Heuristic[NodeType comparable] func(from NodeType, to NodeType) float64

// Result contains the outcome of a search
type Result[NodeType comparable] struct {
	Path          []NodeType
	TotalCost     float64
	ExpandedNodes int
	Found         bool
}

// ErrNoPath is returned when the frontier empties before the goal is reached.
var ErrNoPath = errors.New("no path found")

// Options defines parameters for the search.
type Options struct {
	// NumberOfWorkers is the size of the expansion pool. Zero expands
	// neighbors on the calling goroutine.
	NumberOfWorkers int
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithWorkers specifies how many worker goroutines should expand neighbors.
func WithWorkers(numberOfWorkers int) Option {
	return func(options *Options) { options.NumberOfWorkers = numberOfWorkers }
}

func applyOptions(options []Option) Options {
	searchOptions := Options{}
	for _, option := range options {
		option(&searchOptions)
	}
	if searchOptions.NumberOfWorkers < 0 {
		searchOptions.NumberOfWorkers = 0
	}
	return searchOptions
}

// Search executes the A* search algorithm.
//
// A neighbor that is already on the frontier with a lower or equal GScore is
// discarded; a cheaper one updates the frontier entry in place. Every node is
// expanded at most once.
func Search[NodeType comparable](
	contextObject context.Context,
	graph Graph[NodeType],
	startNode NodeType,
	goalNode NodeType,
	heuristic Heuristic[NodeType],
	options ...Option,
) (Result[NodeType], error) {
	searchOptions := applyOptions(options)

	contextObject, cancel := context.WithCancel(contextObject)
	defer cancel()

	var pool *workerPool[NodeType]
	if searchOptions.NumberOfWorkers > 0 {
		pool = startWorkerPool[NodeType](contextObject, searchOptions.NumberOfWorkers)
	}
	state := newSearchState(graph, startNode, goalNode, heuristic, pool)

	for {
		outcome, err := state.advance(contextObject)
		if err != nil {
			return Result[NodeType]{ExpandedNodes: state.expandedNodes}, err
		}
		switch outcome.status {
		case stepExhausted:
			return Result[NodeType]{ExpandedNodes: state.expandedNodes}, ErrNoPath
		case stepGoal:
			return Result[NodeType]{
				Path:          state.pathTo(outcome.current.Node),
				TotalCost:     outcome.current.GScore,
				ExpandedNodes: state.expandedNodes,
				Found:         true,
			}, nil
		}
	}
}

type stepStatus int

const (
	stepExpanded stepStatus = iota
	stepGoal
	stepExhausted
)

type stepOutcome[NodeType comparable] struct {
	status  stepStatus
	current *PriorityQueueItem[NodeType]
}

// searchState is the orchestrator state shared by Search and Stepper.
type searchState[NodeType comparable] struct {
	graph     Graph[NodeType]
	startNode NodeType
	goalNode  NodeType
	heuristic Heuristic[NodeType]
	pool      *workerPool[NodeType]

	openSet       PriorityQueue[NodeType]
	openSetMap    map[NodeType]*PriorityQueueItem[NodeType]
	closedSet     map[NodeType]bool
	cameFrom      map[NodeType]NodeType
	nextSequence  int
	expandedNodes int
}

func newSearchState[NodeType comparable](
	graph Graph[NodeType],
	startNode NodeType,
	goalNode NodeType,
	heuristic Heuristic[NodeType],
	pool *workerPool[NodeType],
) *searchState[NodeType] {
	state := &searchState[NodeType]{
		graph:      graph,
		startNode:  startNode,
		goalNode:   goalNode,
		heuristic:  heuristic,
		pool:       pool,
		openSet:    make(PriorityQueue[NodeType], 0),
		openSetMap: make(map[NodeType]*PriorityQueueItem[NodeType]),
		closedSet:  make(map[NodeType]bool),
		cameFrom:   make(map[NodeType]NodeType),
	}
	heap.Init(&state.openSet)

	h := heuristic(startNode, goalNode)
	state.push(&PriorityQueueItem[NodeType]{Node: startNode, GScore: 0, HCost: h, FCost: h})
	return state
}

func (state *searchState[NodeType]) push(item *PriorityQueueItem[NodeType]) {
	item.Sequence = state.nextSequence
	state.nextSequence++
	heap.Push(&state.openSet, item)
	state.openSetMap[item.Node] = item
}

// advance pops the best frontier entry and, unless it is the goal, relaxes
// its neighbors.
func (state *searchState[NodeType]) advance(contextObject context.Context) (stepOutcome[NodeType], error) {
	for {
		if err := contextObject.Err(); err != nil {
			return stepOutcome[NodeType]{}, err
		}
		if state.openSet.Len() == 0 {
			return stepOutcome[NodeType]{status: stepExhausted}, nil
		}

		currentItem := heap.Pop(&state.openSet).(*PriorityQueueItem[NodeType])
		currentNode := currentItem.Node
		delete(state.openSetMap, currentNode)

		if state.closedSet[currentNode] {
			continue
		}
		state.closedSet[currentNode] = true
		state.expandedNodes++

		if currentNode == state.goalNode {
			return stepOutcome[NodeType]{status: stepGoal, current: currentItem}, nil
		}

		neighbors := state.graph.Neighbors(currentNode)
		tasks := make([]ExpandTask[NodeType], 0, len(neighbors))
		for _, neighbor := range neighbors {
			if state.closedSet[neighbor.ID] {
				continue
			}
			tasks = append(tasks, ExpandTask[NodeType]{
				Index:         len(tasks),
				FromNode:      currentNode,
				Neighbor:      neighbor,
				CurrentGScore: currentItem.GScore,
				GoalNode:      state.goalNode,
				HeuristicFunc: state.heuristic,
			})
		}

		proposals, err := state.pool.expand(contextObject, tasks)
		if err != nil {
			return stepOutcome[NodeType]{}, err
		}
		for _, proposal := range proposals {
			state.relax(proposal)
		}
		return stepOutcome[NodeType]{status: stepExpanded, current: currentItem}, nil
	}
}

func (state *searchState[NodeType]) relax(proposal RelaxProposal[NodeType]) {
	if state.closedSet[proposal.ToNode] {
		return
	}
	item, inOpen := state.openSetMap[proposal.ToNode]
	if inOpen && item.GScore <= proposal.GScore {
		return
	}
	state.cameFrom[proposal.ToNode] = proposal.FromNode
	if !inOpen {
		state.push(&PriorityQueueItem[NodeType]{
			Node:   proposal.ToNode,
			GScore: proposal.GScore,
			HCost:  proposal.HCost,
			FCost:  proposal.FCost,
		})
		return
	}
	item.GScore = proposal.GScore
	item.HCost = proposal.HCost
	item.FCost = proposal.FCost
	heap.Fix(&state.openSet, item.IndexInQueue)
}

func (state *searchState[NodeType]) pathTo(node NodeType) []NodeType {
	return internal.ReconstructPath(state.cameFrom, node, state.startNode)
}
