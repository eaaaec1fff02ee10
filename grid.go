package roboroute

import (
	"encoding/json"
	"fmt"
)

// Cell markers accepted by NewGrid.
const (
	Free    = 0
	Blocked = 1
)

// Cell is a (row, column) grid coordinate. It encodes to JSON as [row, col].
type Cell struct {
	Row int
	Col int
}

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.Row, c.Col) }

// MarshalJSON implements json.Marshaler.
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.Row, c.Col})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("cell must be [row, col]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("cell must be [row, col], got %d values", len(pair))
	}
	c.Row, c.Col = pair[0], pair[1]
	return nil
}

// UnmarshalYAML accepts the same [row, col] form in request files.
func (c *Cell) UnmarshalYAML(unmarshal func(any) error) error {
	var pair []int
	if err := unmarshal(&pair); err != nil {
		return fmt.Errorf("cell must be [row, col]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("cell must be [row, col], got %d values", len(pair))
	}
	c.Row, c.Col = pair[0], pair[1]
	return nil
}

// right, down, left, up
var directions = [4]Cell{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}

// Grid is an immutable occupancy grid. It implements Graph[Cell] with
// unit-cost moves between orthogonally adjacent free cells.
type Grid struct {
	rows    int
	cols    int
	blocked []bool
}

// NewGrid validates and copies cells.
func NewGrid(cells [][]int) (*Grid, error) {
	if len(cells) == 0 || len(cells[0]) == 0 {
		return nil, fmt.Errorf("%w: grid is empty", ErrInvalidInput)
	}
	rows, cols := len(cells), len(cells[0])
	grid := &Grid{rows: rows, cols: cols, blocked: make([]bool, rows*cols)}
	for r, row := range cells {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidInput, r, len(row), cols)
		}
		for c, value := range row {
			switch value {
			case Free:
			case Blocked:
				grid.blocked[r*cols+c] = true
			default:
				return nil, fmt.Errorf("%w: cell (%d,%d) has value %d, want %d or %d",
					ErrInvalidInput, r, c, value, Free, Blocked)
			}
		}
	}
	return grid, nil
}

func (g *Grid) Rows() int { return g.rows }
func (g *Grid) Cols() int { return g.cols }

// Contains reports whether c lies inside the grid.
func (g *Grid) Contains(c Cell) bool {
	return c.Row >= 0 && c.Row < g.rows && c.Col >= 0 && c.Col < g.cols
}

// IsBlocked reports whether c is blocked. Cells outside the grid count as blocked.
func (g *Grid) IsBlocked(c Cell) bool {
	if !g.Contains(c) {
		return true
	}
	return g.blocked[c.Row*g.cols+c.Col]
}

// Neighbors returns the free orthogonal neighbors of c in right, down, left,
// up order.
func (g *Grid) Neighbors(c Cell) []Neighbor[Cell] {
	if g.IsBlocked(c) {
		return nil
	}
	out := make([]Neighbor[Cell], 0, len(directions))
	for _, d := range directions {
		next := Cell{Row: c.Row + d.Row, Col: c.Col + d.Col}
		if g.IsBlocked(next) {
			continue
		}
		out = append(out, Neighbor[Cell]{ID: next, Cost: 1})
	}
	return out
}
