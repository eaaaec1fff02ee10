package watch

import (
	"math/rand/v2"

	"github.com/pdrpinto/roboroute"
)

// Layout describes a random obstacle field. Walls are laid by random walks
// so they come out clustered rather than as salt-and-pepper noise.
type Layout struct {
	Rows, Cols int
	Clusters   int
	WalkSteps  int
	Density    float64
}

// DefaultLayout matches a terminal of roughly 80x24.
func DefaultLayout() Layout {
	return Layout{Rows: 20, Cols: 36, Clusters: 8, WalkSteps: 120, Density: 0.3}
}

// Generate builds a grid from layout and picks distinct free start and goal
// cells. The same seed always yields the same field.
func Generate(layout Layout, seed uint64) (cells [][]int, start, goal roboroute.Cell) {
	rows, cols := max(layout.Rows, 2), max(layout.Cols, 2)
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	start = roboroute.Cell{Row: r.IntN(rows), Col: r.IntN(cols)}
	for {
		goal = roboroute.Cell{Row: r.IntN(rows), Col: r.IntN(cols)}
		if goal != start {
			break
		}
	}

	cells = make([][]int, rows)
	for i := range cells {
		cells[i] = make([]int, cols)
	}
	for c := 0; c < layout.Clusters; c++ {
		p := roboroute.Cell{Row: r.IntN(rows), Col: r.IntN(cols)}
		for s := 0; s < layout.WalkSteps; s++ {
			if r.Float64() < layout.Density && p != start && p != goal {
				cells[p.Row][p.Col] = roboroute.Blocked
			}
			d := walkDirections[r.IntN(len(walkDirections))]
			next := roboroute.Cell{Row: p.Row + d.Row, Col: p.Col + d.Col}
			if next.Row >= 0 && next.Row < rows && next.Col >= 0 && next.Col < cols {
				p = next
			}
		}
	}
	return cells, start, goal
}

var walkDirections = []roboroute.Cell{{Row: 0, Col: 1}, {Row: 1, Col: 0}, {Row: 0, Col: -1}, {Row: -1, Col: 0}}
