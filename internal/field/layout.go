package field

import "math"

const (
	DefaultWidth          = 100
	DefaultHeight         = 60
	DefaultWallCoverage   = 0.7
	DefaultZoneRatioLeft  = 1.0 / 3.0
	DefaultZoneRatioRight = 2.0 / 3.0

	minWidth  = 12
	minHeight = 5
)

// Layout describes the static geometry of the field.
type Layout struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
	// WallCoverage is the fraction of the inner height covered by each
	// internal wall. The remainder is split into gaps above and below.
	WallCoverage   float64 `json:"wallCoverage" yaml:"wallCoverage"`
	ZoneRatioLeft  float64 `json:"zoneRatioLeft" yaml:"zoneRatioLeft"`
	ZoneRatioRight float64 `json:"zoneRatioRight" yaml:"zoneRatioRight"`
}

// DefaultLayout returns the standard 100x60 competition field.
func DefaultLayout() Layout {
	return Layout{
		Width:          DefaultWidth,
		Height:         DefaultHeight,
		WallCoverage:   DefaultWallCoverage,
		ZoneRatioLeft:  DefaultZoneRatioLeft,
		ZoneRatioRight: DefaultZoneRatioRight,
	}
}

// Normalized replaces out-of-range values with defaults.
func (l Layout) Normalized() Layout {
	n := l
	if n.Width < minWidth {
		n.Width = DefaultWidth
	}
	if n.Height < minHeight {
		n.Height = DefaultHeight
	}
	if n.WallCoverage < 0 || n.WallCoverage > 1 || math.IsNaN(n.WallCoverage) {
		n.WallCoverage = DefaultWallCoverage
	}
	if !(n.ZoneRatioLeft > 0 && n.ZoneRatioLeft < n.ZoneRatioRight && n.ZoneRatioRight < 1) {
		n.ZoneRatioLeft = DefaultZoneRatioLeft
		n.ZoneRatioRight = DefaultZoneRatioRight
	}
	return n
}

// leftBoundary is the column of the wall closing RED's zone.
func (l Layout) leftBoundary() int {
	return int(math.Floor(float64(l.Width)*l.ZoneRatioLeft - 0.001))
}

// rightBoundary is the column of the wall closing BLUE's zone.
func (l Layout) rightBoundary() int {
	return int(math.Ceil(float64(l.Width)*l.ZoneRatioRight - 0.001))
}

// wallRows returns the first row and the number of rows covered by each
// internal wall. At least one inner row is always left open.
func (l Layout) wallRows() (int, int) {
	inner := l.Height - 2
	if inner <= 1 {
		return 1, 0
	}
	blocked := int(math.Round(l.WallCoverage * float64(inner)))
	if blocked > inner-1 {
		blocked = inner - 1
	}
	if blocked < 0 {
		blocked = 0
	}
	topSkip := (inner - blocked) / 2
	return 1 + topSkip, blocked
}

// scoringCells returns the RED and BLUE scoring cells.
func (l Layout) scoringCells() (Cell, Cell) {
	row := l.Height / 2
	red := Cell{Col: l.Width/4 - 1, Row: row}
	blue := Cell{Col: (3 * l.Width) / 4, Row: row}
	return red, blue
}

func (l Layout) buildGrid() []Tile {
	grid := make([]Tile, l.Width*l.Height)
	set := func(col, row int) { grid[row*l.Width+col] = TileWall }

	for row := 0; row < l.Height; row++ {
		set(0, row)
		set(l.Width-1, row)
	}
	for col := 0; col < l.Width; col++ {
		set(col, 0)
		set(col, l.Height-1)
	}

	first, count := l.wallRows()
	left, right := l.leftBoundary(), l.rightBoundary()
	for row := first; row < first+count; row++ {
		if row <= 0 || row >= l.Height-1 {
			continue
		}
		set(left, row)
		set(right, row)
	}
	return grid
}
