package field

import "math"

// Vec2 is a continuous position measured in tiles.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale returns v * s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{X: v.X * s, Y: v.Y * s} }

// Len returns the euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the euclidean distance between v and o.
func (v Vec2) Dist(o Vec2) float64 { return math.Hypot(o.X-v.X, o.Y-v.Y) }

// Cell returns the tile containing v.
func (v Vec2) Cell() Cell {
	return Cell{Col: int(math.Floor(v.X)), Row: int(math.Floor(v.Y))}
}

// Cell addresses a single tile by column and row.
type Cell struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Center returns the continuous coordinates of the middle of the tile.
func (c Cell) Center() Vec2 {
	return Vec2{X: float64(c.Col) + 0.5, Y: float64(c.Row) + 0.5}
}

// CellAt floors continuous coordinates to a tile.
func CellAt(x, y float64) Cell {
	return Cell{Col: int(math.Floor(x)), Row: int(math.Floor(y))}
}
