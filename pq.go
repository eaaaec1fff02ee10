package roboroute

// PriorityQueueItem is one frontier entry.
type PriorityQueueItem[NodeType comparable] struct {
	Node   NodeType
	GScore float64
	HCost  float64
	FCost  float64
	// Sequence is the discovery order, kept across decrease-key updates.
	Sequence     int
	IndexInQueue int
}

// PriorityQueue is a min-heap over FCost. Ties go to the lower HCost, then to
// the entry discovered first, so a search always expands nodes in the same order.
type PriorityQueue[NodeType comparable] []*PriorityQueueItem[NodeType]

func (queue PriorityQueue[NodeType]) Len() int { return len(queue) }

func (queue PriorityQueue[NodeType]) Less(i, j int) bool {
	a, b := queue[i], queue[j]
	if a.FCost != b.FCost {
		return a.FCost < b.FCost
	}
	if a.HCost != b.HCost {
		return a.HCost < b.HCost
	}
	return a.Sequence < b.Sequence
}

func (queue PriorityQueue[NodeType]) Swap(i, j int) {
	queue[i], queue[j] = queue[j], queue[i]
	queue[i].IndexInQueue = i
	queue[j].IndexInQueue = j
}

func (queue *PriorityQueue[NodeType]) Push(x any) {
	item := x.(*PriorityQueueItem[NodeType])
	item.IndexInQueue = len(*queue)
	*queue = append(*queue, item)
}

func (queue *PriorityQueue[NodeType]) Pop() any {
	oldQueue := *queue
	n := len(oldQueue)
	item := oldQueue[n-1]
	oldQueue[n-1] = nil
	item.IndexInQueue = -1
	*queue = oldQueue[:n-1]
	return item
}
