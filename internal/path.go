package internal

import "slices"

// ReconstructPath rebuilds the path from the cameFrom map, start first.
// The walk stops early if a predecessor is missing.
func ReconstructPath[NodeType comparable](
	cameFrom map[NodeType]NodeType,
	current NodeType,
	start NodeType,
) []NodeType {
	path := []NodeType{current}
	for current != start {
		previousNode, exists := cameFrom[current]
		if !exists {
			break
		}
		path = append(path, previousNode)
		current = previousNode
	}
	slices.Reverse(path)
	return path
}
