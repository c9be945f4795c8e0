package field

var searchOffsets = [...]Cell{
	{Col: 0, Row: 1},
	{Col: 0, Row: -1},
	{Col: 1, Row: 0},
	{Col: -1, Row: 0},
	{Col: 1, Row: 1},
	{Col: -1, Row: -1},
	{Col: -1, Row: 1},
	{Col: 1, Row: -1},
}

// FindNearestOpenNode searches outward from the floored cell over
// 8-connectivity and returns the centre of the first Empty, non-scoring cell.
func (f *Field) FindNearestOpenNode(x, y float64) (Vec2, bool) {
	return f.FindNearestOpenNodeWithin(x, y, 0)
}

// FindNearestOpenNodeWithin is FindNearestOpenNode bounded to a Chebyshev
// radius around the start cell. A radius <= 0 searches the whole grid.
func (f *Field) FindNearestOpenNodeWithin(x, y float64, radius int) (Vec2, bool) {
	start := CellAt(x, y)
	start.Col = clampInt(start.Col, 0, f.width-1)
	start.Row = clampInt(start.Row, 0, f.height-1)

	visited := make([]bool, f.width*f.height)
	visited[f.index(start.Col, start.Row)] = true
	queue := []Cell{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if f.grid[f.index(current.Col, current.Row)] == TileEmpty && !f.isScoringCell(current) {
			return current.Center(), true
		}

		for _, d := range searchOffsets {
			next := Cell{Col: current.Col + d.Col, Row: current.Row + d.Row}
			if !f.inBounds(next.Col, next.Row) {
				continue
			}
			if radius > 0 && (absInt(next.Col-start.Col) > radius || absInt(next.Row-start.Row) > radius) {
				continue
			}
			idx := f.index(next.Col, next.Row)
			if visited[idx] {
				continue
			}
			visited[idx] = true
			queue = append(queue, next)
		}
	}
	return Vec2{}, false
}

// neutralOpenCells lists Empty, non-scoring cells inside the neutral band in
// row-major order.
func (f *Field) neutralOpenCells() []Cell {
	var open []Cell
	for row := 1; row < f.height-1; row++ {
		for col := f.leftBoundary + 1; col <= f.rightBoundary-1; col++ {
			c := Cell{Col: col, Row: row}
			if f.grid[f.index(col, row)] == TileEmpty && !f.isScoringCell(c) {
				open = append(open, c)
			}
		}
	}
	return open
}

// RespawnBall converts a uniformly random open cell in the neutral band into
// a Ball tile. It reports false, without side effects, when no cell is open.
func (f *Field) RespawnBall() bool {
	open := f.neutralOpenCells()
	if len(open) == 0 {
		return false
	}
	c := open[f.rng.Intn(len(open))]
	return f.SetTileAtCell(c, TileBall)
}

// SeedBalls places up to count balls on open, non-scoring cells. Balls are
// placed in pairs mirrored across the vertical centre line so neither team
// starts ahead. It returns the number of balls placed.
func (f *Field) SeedBalls(count int) int {
	if count <= 0 {
		return 0
	}
	var candidates []Cell
	for row := 1; row < f.height-1; row++ {
		for col := 1; col < f.width/2; col++ {
			c := Cell{Col: col, Row: row}
			m := f.mirror(c)
			if c == m {
				continue
			}
			if f.seedable(c) && f.seedable(m) {
				candidates = append(candidates, c)
			}
		}
	}
	f.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	placed := 0
	for _, c := range candidates {
		if placed+2 > count {
			break
		}
		f.SetTileAtCell(c, TileBall)
		f.SetTileAtCell(f.mirror(c), TileBall)
		placed += 2
	}
	if placed < count && f.width%2 == 1 {
		for _, c := range f.centreColumnCells() {
			if placed >= count {
				break
			}
			f.SetTileAtCell(c, TileBall)
			placed++
		}
	}
	return placed
}

func (f *Field) mirror(c Cell) Cell {
	return Cell{Col: f.width - 1 - c.Col, Row: c.Row}
}

func (f *Field) seedable(c Cell) bool {
	return f.grid[f.index(c.Col, c.Row)] == TileEmpty && !f.isScoringCell(c)
}

func (f *Field) centreColumnCells() []Cell {
	col := f.width / 2
	var cells []Cell
	for row := 1; row < f.height-1; row++ {
		c := Cell{Col: col, Row: row}
		if f.seedable(c) {
			cells = append(cells, c)
		}
	}
	f.rng.Shuffle(len(cells), func(i, j int) { cells[i], cells[j] = cells[j], cells[i] })
	return cells
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
