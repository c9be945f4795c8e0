// Package field models the competition grid: static tiles, the ball index,
// agent occupancy, the two scoring locations and the balls in flight.
package field

import (
	"math/rand"
	"sort"
	"strings"

	"ballfield/server/internal/simutil"
)

// Field owns the grid and every index derived from it. All tile mutations go
// through SetTile so the ball index never drifts from the grid.
type Field struct {
	layout Layout
	width  int
	height int
	grid   []Tile

	balls      map[int]struct{}
	ballList   []Cell
	ballsDirty bool

	occupants    map[int]map[string]struct{}
	occupantCell map[string]int

	scoring       []*ScoringLocation
	leftBoundary  int
	rightBoundary int

	flying     []FlyingBall
	nextBallID uint64

	rng *rand.Rand
}

// New builds an empty field (walls and scoring locations, no balls) from the
// normalized layout. rng drives respawn placement and initial seeding.
func New(layout Layout, rng *rand.Rand) *Field {
	l := layout.Normalized()
	if rng == nil {
		rng = simutil.NewDeterministicRNG(simutil.DefaultSeed, "field")
	}
	red, blue := l.scoringCells()
	f := &Field{
		layout:        l,
		width:         l.Width,
		height:        l.Height,
		grid:          l.buildGrid(),
		balls:         make(map[int]struct{}),
		occupants:     make(map[int]map[string]struct{}),
		occupantCell:  make(map[string]int),
		leftBoundary:  l.leftBoundary(),
		rightBoundary: l.rightBoundary(),
		rng:           rng,
		scoring: []*ScoringLocation{
			{Cell: red, Team: TeamRed, Active: true},
			{Cell: blue, Team: TeamBlue, Active: false},
		},
	}
	return f
}

// Layout returns the normalized layout the field was built from.
func (f *Field) Layout() Layout { return f.layout }

// Width returns the number of columns.
func (f *Field) Width() int { return f.width }

// Height returns the number of rows.
func (f *Field) Height() int { return f.height }

func (f *Field) inBounds(col, row int) bool {
	return col >= 0 && row >= 0 && col < f.width && row < f.height
}

func (f *Field) index(col, row int) int {
	return row*f.width + col
}

// TileAt floors the coordinates to a cell. Out-of-bounds reads return Wall.
func (f *Field) TileAt(x, y float64) Tile {
	c := CellAt(x, y)
	return f.TileAtCell(c)
}

// TileAtCell returns the tile at c, or Wall when c is out of bounds.
func (f *Field) TileAtCell(c Cell) Tile {
	if !f.inBounds(c.Col, c.Row) {
		return TileWall
	}
	return f.grid[f.index(c.Col, c.Row)]
}

// SetTile floors the coordinates to a cell and writes kind, keeping the ball
// index in sync. Returns false when the cell is out of bounds.
func (f *Field) SetTile(x, y float64, kind Tile) bool {
	return f.SetTileAtCell(CellAt(x, y), kind)
}

// SetTileAtCell is SetTile for an already-floored cell.
func (f *Field) SetTileAtCell(c Cell, kind Tile) bool {
	if !f.inBounds(c.Col, c.Row) {
		return false
	}
	idx := f.index(c.Col, c.Row)
	prev := f.grid[idx]
	if prev == kind {
		return true
	}
	f.grid[idx] = kind
	if prev == TileBall {
		delete(f.balls, idx)
		f.ballsDirty = true
	}
	if kind == TileBall {
		f.balls[idx] = struct{}{}
		f.ballsDirty = true
	}
	return true
}

// IsPassable reports whether an agent may enter the cell. Walls and
// out-of-bounds cells are never passable; cells held by another agent are
// impassable unless ignoreAgents is set or the occupant is ignoreAgentID.
func (f *Field) IsPassable(row, col int, ignoreAgents bool, ignoreAgentID string) bool {
	if !f.inBounds(col, row) {
		return false
	}
	idx := f.index(col, row)
	if f.grid[idx] == TileWall {
		return false
	}
	if ignoreAgents {
		return true
	}
	for id := range f.occupants[idx] {
		if id != ignoreAgentID {
			return false
		}
	}
	return true
}

// SetOccupant records that agent id stands at pos.
func (f *Field) SetOccupant(id string, pos Vec2) {
	c := pos.Cell()
	if !f.inBounds(c.Col, c.Row) {
		f.RemoveOccupant(id)
		return
	}
	idx := f.index(c.Col, c.Row)
	if prev, ok := f.occupantCell[id]; ok {
		if prev == idx {
			return
		}
		f.dropOccupant(id, prev)
	}
	set := f.occupants[idx]
	if set == nil {
		set = make(map[string]struct{}, 1)
		f.occupants[idx] = set
	}
	set[id] = struct{}{}
	f.occupantCell[id] = idx
}

// RemoveOccupant forgets agent id.
func (f *Field) RemoveOccupant(id string) {
	if prev, ok := f.occupantCell[id]; ok {
		f.dropOccupant(id, prev)
	}
}

func (f *Field) dropOccupant(id string, idx int) {
	if set := f.occupants[idx]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(f.occupants, idx)
		}
	}
	delete(f.occupantCell, id)
}

// ClearOccupants empties the occupancy index.
func (f *Field) ClearOccupants() {
	f.occupants = make(map[int]map[string]struct{})
	f.occupantCell = make(map[string]int)
}

// BallCount returns the number of Ball tiles on the grid.
func (f *Field) BallCount() int { return len(f.balls) }

// HasBall reports whether c holds a ball.
func (f *Field) HasBall(c Cell) bool {
	if !f.inBounds(c.Col, c.Row) {
		return false
	}
	_, ok := f.balls[f.index(c.Col, c.Row)]
	return ok
}

// Balls returns every ball cell in row-major order. The returned slice is
// shared until the next mutation and must not be modified.
func (f *Field) Balls() []Cell {
	if f.ballsDirty || f.ballList == nil {
		indices := make([]int, 0, len(f.balls))
		for idx := range f.balls {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		list := make([]Cell, len(indices))
		for i, idx := range indices {
			list[i] = Cell{Col: idx % f.width, Row: idx / f.width}
		}
		f.ballList = list
		f.ballsDirty = false
	}
	return f.ballList
}

// Rows renders the grid as one string per row using '#', '.' and 'O'.
func (f *Field) Rows() []string {
	rows := make([]string, f.height)
	var b strings.Builder
	for row := 0; row < f.height; row++ {
		b.Reset()
		b.Grow(f.width)
		for col := 0; col < f.width; col++ {
			b.WriteByte(f.grid[f.index(col, row)].glyph())
		}
		rows[row] = b.String()
	}
	return rows
}
