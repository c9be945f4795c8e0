// Package nav implements grid pathfinding over any passability oracle.
package nav

import (
	"container/heap"
	"math"

	"ballfield/server/internal/field"
)

// substituteRadius bounds the local search for a passable stand-in when the
// requested destination is blocked.
const substituteRadius = 5

// Grid is the passability view the pathfinder searches.
type Grid interface {
	Width() int
	Height() int
	IsPassable(row, col int, ignoreAgents bool, ignoreAgentID string) bool
}

// Options selects how agent occupancy is treated.
type Options struct {
	IgnoreAgents  bool
	IgnoreAgentID string
}

type neighbor struct {
	col      int
	row      int
	cost     float64
	diagonal bool
}

var neighborOffsets = [...]neighbor{
	{col: 0, row: -1, cost: 1},
	{col: 1, row: 0, cost: 1},
	{col: 0, row: 1, cost: 1},
	{col: -1, row: 0, cost: 1},
	{col: 1, row: -1, cost: math.Sqrt2, diagonal: true},
	{col: 1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: -1, cost: math.Sqrt2, diagonal: true},
}

// Octile is the exact cost of an unobstructed 8-directional walk between two
// cells with orthogonal cost 1 and diagonal cost √2.
func Octile(a, b field.Cell) float64 {
	dx := math.Abs(float64(a.Col - b.Col))
	dy := math.Abs(float64(a.Row - b.Row))
	if dx > dy {
		return dx + (math.Sqrt2-1)*dy
	}
	return dy + (math.Sqrt2-1)*dx
}

// PathCost sums the euclidean step lengths along path.
func PathCost(path []field.Vec2) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += path[i-1].Dist(path[i])
	}
	return total
}

type searcher struct {
	grid Grid
	opts Options
	cols int
	rows int
}

func (s *searcher) passable(col, row int) bool {
	return s.grid.IsPassable(row, col, s.opts.IgnoreAgents, s.opts.IgnoreAgentID)
}

func (s *searcher) inBounds(col, row int) bool {
	return col >= 0 && row >= 0 && col < s.cols && row < s.rows
}

// FindPath searches from the cell containing start to the cell containing
// goal and returns the centres of every cell on the way, both ends included.
// A blocked destination is replaced by the nearest passable cell within a
// small box around it.
func FindPath(grid Grid, start, goal field.Vec2, opts Options) ([]field.Vec2, bool) {
	if grid == nil {
		return nil, false
	}
	s := &searcher{grid: grid, opts: opts, cols: grid.Width(), rows: grid.Height()}
	from := start.Cell()
	to := goal.Cell()
	if !s.inBounds(from.Col, from.Row) {
		return nil, false
	}
	if !s.passable(to.Col, to.Row) {
		sub, ok := s.nearestPassable(to)
		if !ok {
			return nil, false
		}
		to = sub
	}
	cells, ok := s.astar(from, to)
	if !ok {
		return nil, false
	}
	path := make([]field.Vec2, len(cells))
	for i, c := range cells {
		path[i] = c.Center()
	}
	return path, true
}

// Plan tries a path that routes around other agents first and, failing that,
// one that ignores agent occupancy entirely, so a contested destination still
// yields forward progress.
func Plan(grid Grid, start, goal field.Vec2, agentID string) ([]field.Vec2, bool) {
	if path, ok := FindPath(grid, start, goal, Options{IgnoreAgentID: agentID}); ok {
		return path, true
	}
	return FindPath(grid, start, goal, Options{IgnoreAgents: true})
}

func (s *searcher) nearestPassable(origin field.Cell) (field.Cell, bool) {
	visited := map[field.Cell]struct{}{origin: {}}
	queue := []field.Cell{origin}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if s.passable(current.Col, current.Row) {
			return current, true
		}
		for _, d := range neighborOffsets[:4] {
			next := field.Cell{Col: current.Col + d.col, Row: current.Row + d.row}
			if !s.inBounds(next.Col, next.Row) {
				continue
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			if absInt(next.Col-origin.Col) < substituteRadius && absInt(next.Row-origin.Row) < substituteRadius {
				queue = append(queue, next)
			}
		}
	}
	return field.Cell{}, false
}

// canTraverseDiagonal rejects diagonal steps that would clip a blocked
// orthogonal neighbour.
func (s *searcher) canTraverseDiagonal(col, row int, delta neighbor) bool {
	if !delta.diagonal {
		return true
	}
	return s.passable(col+delta.col, row) && s.passable(col, row+delta.row)
}

type pathNode struct {
	idx   int
	g     float64
	f     float64
	seq   uint64
	index int
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	return pq[i].seq < pq[j].seq
}

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	item := x.(*pathNode)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

func (s *searcher) astar(start, goal field.Cell) ([]field.Cell, bool) {
	total := s.cols * s.rows
	gScore := make([]float64, total)
	for i := range gScore {
		gScore[i] = math.Inf(1)
	}
	parent := make([]int32, total)
	closed := make([]bool, total)

	startIdx := start.Row*s.cols + start.Col
	goalIdx := goal.Row*s.cols + goal.Col
	gScore[startIdx] = 0
	parent[startIdx] = -1

	var seq uint64
	open := &pathQueue{}
	heap.Push(open, &pathNode{idx: startIdx, f: Octile(start, goal), seq: seq})

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if closed[current.idx] || current.g > gScore[current.idx] {
			continue
		}
		closed[current.idx] = true
		if current.idx == goalIdx {
			return s.reconstruct(parent, goalIdx), true
		}

		col, row := current.idx%s.cols, current.idx/s.cols
		for _, delta := range neighborOffsets {
			nc, nr := col+delta.col, row+delta.row
			if !s.inBounds(nc, nr) || !s.passable(nc, nr) {
				continue
			}
			nIdx := nr*s.cols + nc
			if closed[nIdx] {
				continue
			}
			if !s.canTraverseDiagonal(col, row, delta) {
				continue
			}
			tentative := current.g + delta.cost
			if tentative >= gScore[nIdx] {
				continue
			}
			gScore[nIdx] = tentative
			parent[nIdx] = int32(current.idx)
			seq++
			next := field.Cell{Col: nc, Row: nr}
			heap.Push(open, &pathNode{idx: nIdx, g: tentative, f: tentative + Octile(next, goal), seq: seq})
		}
	}
	return nil, false
}

func (s *searcher) reconstruct(parent []int32, goalIdx int) []field.Cell {
	var path []field.Cell
	for idx := goalIdx; idx >= 0; idx = int(parent[idx]) {
		path = append(path, field.Cell{Col: idx % s.cols, Row: idx / s.cols})
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
