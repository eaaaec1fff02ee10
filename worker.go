package roboroute

import "context"

// ExpandTask represents a request from the orchestrator to the workers.
type ExpandTask[NodeType comparable] struct {
	// Index is the neighbor's position in Graph.Neighbors output.
	Index         int
	FromNode      NodeType
	Neighbor      Neighbor[NodeType]
	CurrentGScore float64
	GoalNode      NodeType
	HeuristicFunc Heuristic[NodeType]
}

// RelaxProposal is the worker's suggestion for updating a path
type RelaxProposal[NodeType comparable] struct {
	Index    int
	FromNode NodeType
	ToNode   NodeType
	GScore   float64
	HCost    float64
	FCost    float64
}

func (task ExpandTask[NodeType]) propose() RelaxProposal[NodeType] {
	tentativeG := task.CurrentGScore + task.Neighbor.Cost
	h := task.HeuristicFunc(task.Neighbor.ID, task.GoalNode)
	return RelaxProposal[NodeType]{
		Index:    task.Index,
		FromNode: task.FromNode,
		ToNode:   task.Neighbor.ID,
		GScore:   tentativeG,
		HCost:    h,
		FCost:    tentativeG + h,
	}
}

// workerPool computes relax proposals on a fixed set of goroutines.
// The goroutines exit when the context passed to startWorkerPool is done.
type workerPool[NodeType comparable] struct {
	tasks     chan ExpandTask[NodeType]
	proposals chan RelaxProposal[NodeType]
}

func startWorkerPool[NodeType comparable](contextObject context.Context, numberOfWorkers int) *workerPool[NodeType] {
	pool := &workerPool[NodeType]{
		tasks:     make(chan ExpandTask[NodeType]),
		proposals: make(chan RelaxProposal[NodeType]),
	}
	for i := 0; i < numberOfWorkers; i++ {
		go func() {
			for {
				select {
				case <-contextObject.Done():
					return
				case task := <-pool.tasks:
					select {
					case pool.proposals <- task.propose():
					case <-contextObject.Done():
						return
					}
				}
			}
		}()
	}
	return pool
}

// expand returns one proposal per task, ordered like tasks. A nil pool
// computes the proposals on the calling goroutine.
func (pool *workerPool[NodeType]) expand(
	contextObject context.Context,
	tasks []ExpandTask[NodeType],
) ([]RelaxProposal[NodeType], error) {
	proposals := make([]RelaxProposal[NodeType], len(tasks))
	if pool == nil {
		for i, task := range tasks {
			proposals[i] = task.propose()
		}
		return proposals, nil
	}

	go func() {
		for _, task := range tasks {
			select {
			case pool.tasks <- task:
			case <-contextObject.Done():
				return
			}
		}
	}()

	for range tasks {
		select {
		case <-contextObject.Done():
			return nil, contextObject.Err()
		case proposal := <-pool.proposals:
			proposals[proposal.Index] = proposal
		}
	}
	return proposals, nil
}
