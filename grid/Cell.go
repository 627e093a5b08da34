package grid

import "math"

// Cell is a discrete grid position.
type Cell struct {
	X, Y int
}

// Equal returns whether two cells are the same position.
func (c Cell) Equal(o Cell) bool {
	return c.X == o.X && c.Y == o.Y
}

// In returns whether the cell lies inside a width×height grid.
func (c Cell) In(width, height int) bool {
	return c.X >= 0 && c.X < width && c.Y >= 0 && c.Y < height
}

// Euclidean returns the straight-line distance between two cells.
func (c Cell) Euclidean(o Cell) float64 {
	dx := float64(c.X - o.X)
	dy := float64(c.Y - o.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Chebyshev returns the king-move distance between two cells, which is
// the minimum number of 8-directional steps between them.
func (c Cell) Chebyshev(o Cell) int {
	dx := c.X - o.X
	if dx < 0 {
		dx = -dx
	}
	dy := c.Y - o.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// Toward returns the compass direction that points most directly from
// c to target. Ties between a diagonal and a cardinal direction
// resolve to the diagonal, since a diagonal step reduces both
// coordinate gaps at once. Toward of a cell onto itself returns North.
func (c Cell) Toward(target Cell) Direction {
	dx := target.X - c.X
	dy := target.Y - c.Y
	if dx == 0 && dy == 0 {
		return North
	}

	// Angle of the target vector, rotated so that North is 0 and
	// directions proceed clockwise in 45° sectors.
	angle := math.Atan2(float64(dx), float64(-dy))
	if angle < 0 {
		angle += 2 * math.Pi
	}
	sector := int(math.Round(angle/(math.Pi/4))) % NumDirections
	return Direction(sector)
}

// Contains reports whether cells contains the given cell.
func Contains(cells []Cell, c Cell) bool {
	for _, o := range cells {
		if o.Equal(c) {
			return true
		}
	}
	return false
}
