package field

// Team identifies one side of the match.
type Team string

const (
	TeamRed  Team = "RED"
	TeamBlue Team = "BLUE"
)

// Opponent returns the other team.
func (t Team) Opponent() Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

// Valid reports whether t names one of the two teams.
func (t Team) Valid() bool {
	return t == TeamRed || t == TeamBlue
}

// Tile enumerates the static contents of a grid cell.
type Tile uint8

const (
	TileEmpty Tile = iota
	TileWall
	TileBall
)

func (t Tile) String() string {
	switch t {
	case TileEmpty:
		return "empty"
	case TileWall:
		return "wall"
	case TileBall:
		return "ball"
	default:
		return "unknown"
	}
}

// glyph renders the tile for compact text snapshots.
func (t Tile) glyph() byte {
	switch t {
	case TileWall:
		return '#'
	case TileBall:
		return 'O'
	default:
		return '.'
	}
}

// ScoringLocation is the single cell per team that accepts balls for score.
type ScoringLocation struct {
	Cell   Cell `json:"cell"`
	Team   Team `json:"team"`
	Active bool `json:"active"`
}

// Center returns the middle of the scoring cell.
func (s ScoringLocation) Center() Vec2 {
	return s.Cell.Center()
}

// Contains reports whether the continuous point lies on the scoring cell.
func (s ScoringLocation) Contains(x, y float64) bool {
	return CellAt(x, y) == s.Cell
}

// FlyingBall is a ball in transit between a shot's origin and its landing point.
type FlyingBall struct {
	ID     uint64  `json:"id"`
	Owner  string  `json:"owner"`
	Pos    Vec2    `json:"pos"`
	Target Vec2    `json:"target"`
	Speed  float64 `json:"speed"`
	Origin Vec2    `json:"origin"`
}
