package roboroute

import (
	"fmt"
	"math"
	"strings"
)

// HeuristicName selects the remaining-cost estimate used by a Pathfinder.
type HeuristicName string

const (
	// HeuristicEuclidean is the straight-line distance. It never exceeds the
	// Manhattan distance, so it is admissible and consistent for unit
	// four-directional moves, but it is less informed and expands more cells.
	HeuristicEuclidean HeuristicName = "euclidean"
	// HeuristicManhattan is the exact step count on an empty grid.
	HeuristicManhattan HeuristicName = "manhattan"
)

// ParseHeuristic maps a user-supplied name to a HeuristicName. The empty
// string selects HeuristicEuclidean.
func ParseHeuristic(name string) (HeuristicName, error) {
	switch HeuristicName(strings.ToLower(strings.TrimSpace(name))) {
	case "", HeuristicEuclidean:
		return HeuristicEuclidean, nil
	case HeuristicManhattan:
		return HeuristicManhattan, nil
	default:
		return "", fmt.Errorf("%w: unknown heuristic %q", ErrInvalidInput, name)
	}
}

// Func returns the heuristic function for name.
func (name HeuristicName) Func() (Heuristic[Cell], bool) {
	switch name {
	case HeuristicEuclidean:
		return Euclidean, true
	case HeuristicManhattan:
		return Manhattan, true
	}
	return nil, false
}

// Euclidean returns the straight-line distance between two cells.
func Euclidean(from, to Cell) float64 {
	return math.Hypot(float64(from.Row-to.Row), float64(from.Col-to.Col))
}

// Manhattan returns the number of orthogonal steps between two cells on an
// empty grid.
func Manhattan(from, to Cell) float64 {
	return math.Abs(float64(from.Row-to.Row)) + math.Abs(float64(from.Col-to.Col))
}
