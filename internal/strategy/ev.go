package strategy

import (
	"math"

	"ballfield/server/internal/field"
)

const (
	EVOwnZone      = 0.9
	EVNeutralZone  = 0.3
	EVOpponentZone = 0.1
	// EVScored is the value of a ball that has been delivered for score.
	EVScored = 1.0
	// DistanceEVCost is the EV charged per tile travelled.
	DistanceEVCost = 0.01
	// ProximityBonus is the largest bonus awarded for sitting on the team's
	// scoring cell; it fades linearly to zero across the field diagonal.
	ProximityBonus = 0.09

	minGain     = 0.01
	minDistance = 0.001
)

// easeZone flattens the curve inside a zone and steepens it at the border.
func easeZone(t float64) float64 {
	if t < 0.5 {
		return 0.5 * math.Pow(2*t, 4)
	}
	return 1 - 0.5*math.Pow(2*(1-t), 4)
}

// BallEV rates a ball at (x, y) for team. The base value is interpolated
// between control points at the centre of each zone and a small bonus is
// added the closer the point is to team's scoring cell.
func BallEV(f *field.Field, x, y float64, team field.Team) float64 {
	layout := f.Layout()
	ratio := x / float64(f.Width())

	cpLeft := layout.ZoneRatioLeft / 2
	cpMid := (layout.ZoneRatioLeft + layout.ZoneRatioRight) / 2
	cpRight := (layout.ZoneRatioRight + 1) / 2

	evLeft, evMid, evRight := EVOpponentZone, EVNeutralZone, EVOwnZone
	if team == field.TeamRed {
		evLeft, evRight = EVOwnZone, EVOpponentZone
	}

	var base float64
	switch {
	case ratio <= cpLeft:
		base = evLeft
	case ratio >= cpRight:
		base = evRight
	case ratio < cpMid:
		t := (ratio - cpLeft) / (cpMid - cpLeft)
		base = evLeft + easeZone(t)*(evMid-evLeft)
	default:
		t := (ratio - cpMid) / (cpRight - cpMid)
		base = evMid + easeZone(t)*(evRight-evMid)
	}

	loc, ok := f.ScoringLocationFor(team)
	if !ok {
		return base
	}
	dist := field.Vec2{X: x, Y: y}.Dist(loc.Center())
	diagonal := math.Hypot(float64(f.Width()), float64(f.Height()))
	return base + ProximityBonus*(1-math.Min(dist/diagonal, 1))
}

// SelectionScore rates fetching the ball at ball from start and carrying it
// to target. Gains are traded against DistanceEVCost per tile travelled. A
// degenerate zero-length trip scores +Inf.
func SelectionScore(start, ball, target field.Vec2, currentEV, targetEV float64) float64 {
	total := start.Dist(ball) + ball.Dist(target)
	if total < minDistance {
		return math.Inf(1)
	}
	return (targetEV - currentEV) - total*DistanceEVCost
}

// BallQuery tunes FindBestEVBall.
type BallQuery struct {
	// Target and TargetEV enable gain scoring via SelectionScore. Without a
	// target, or with Absolute set, balls are rated by their own EV minus the
	// travel cost to reach them.
	Target   *field.Vec2
	TargetEV float64
	Absolute bool
	// Filter, when set, drops balls it returns false for.
	Filter func(c field.Cell) bool
}

// BallChoice is the outcome of FindBestEVBall.
type BallChoice struct {
	Ball         field.Vec2
	Found        bool
	BallsOnField int
	MaxScore     float64
}

// FindBestEVBall scans every ball on the field and returns the best scoring
// candidate for r. BallsOnField counts balls that passed the filter.
func FindBestEVBall(f *field.Field, r Robot, q BallQuery) BallChoice {
	choice := BallChoice{MaxScore: math.Inf(-1)}
	pos := r.Position()
	for _, c := range f.Balls() {
		if q.Filter != nil && !q.Filter(c) {
			continue
		}
		choice.BallsOnField++
		ball := c.Center()
		current := BallEV(f, ball.X, ball.Y, r.Team())

		var score float64
		if q.Target != nil && !q.Absolute {
			score = SelectionScore(pos, ball, *q.Target, current, q.TargetEV)
		} else {
			score = current - pos.Dist(ball)*DistanceEVCost
		}
		if score > choice.MaxScore {
			choice.MaxScore = score
			choice.Ball = ball
			choice.Found = true
		}
	}
	return choice
}

// CollectionVector sums a pull toward every ball whose EV would improve by
// more than a small margin if moved to staging. Each pull is a unit vector
// toward the ball weighted by gain / totalDistance². The result is
// normalized, or zero when the net pull is negligible.
func CollectionVector(f *field.Field, r Robot, staging field.Vec2, stagingEV float64, exclude *field.Cell) field.Vec2 {
	pos := r.Position()
	var sum field.Vec2
	for _, c := range f.Balls() {
		if exclude != nil && c == *exclude {
			continue
		}
		ball := c.Center()
		gain := stagingEV - BallEV(f, ball.X, ball.Y, r.Team())
		if gain <= minGain {
			continue
		}
		toBall := pos.Dist(ball)
		total := toBall + ball.Dist(staging)
		if total < minDistance || toBall <= minDistance {
			continue
		}
		force := gain / (total * total)
		dir := ball.Sub(pos).Scale(1 / toBall)
		sum = sum.Add(dir.Scale(force))
	}
	if mag := sum.Len(); mag > minDistance {
		return sum.Scale(1 / mag)
	}
	return field.Vec2{}
}

// FindNearestEmptyTile scans the square of the given radius around centre
// and returns the middle of the Empty tile with the smallest Manhattan
// distance to centre, skipping exclude. Earlier rows win ties.
func FindNearestEmptyTile(f *field.Field, centre field.Cell, radius int, exclude *field.Cell) (field.Vec2, bool) {
	best := field.Vec2{}
	bestDist := math.MaxInt
	found := false
	rowLo, rowHi := max(0, centre.Row-radius), min(f.Height()-1, centre.Row+radius)
	colLo, colHi := max(0, centre.Col-radius), min(f.Width()-1, centre.Col+radius)
	for row := rowLo; row <= rowHi; row++ {
		for col := colLo; col <= colHi; col++ {
			c := field.Cell{Col: col, Row: row}
			if exclude != nil && c == *exclude {
				continue
			}
			if f.TileAtCell(c) != field.TileEmpty {
				continue
			}
			d := absInt(col-centre.Col) + absInt(row-centre.Row)
			if d < bestDist {
				bestDist = d
				best = c.Center()
				found = true
			}
		}
	}
	return best, found
}

// StagingLocation is the cell two tiles in front of team's scoring cell,
// toward the field centre.
func StagingLocation(f *field.Field, team field.Team) (field.Cell, bool) {
	loc, ok := f.ScoringLocationFor(team)
	if !ok {
		return field.Cell{}, false
	}
	offset := 2
	if team == field.TeamBlue {
		offset = -2
	}
	return field.Cell{Col: loc.Cell.Col + offset, Row: loc.Cell.Row}, true
}

// ScoringTarget returns the centre of team's scoring cell.
func ScoringTarget(f *field.Field, team field.Team) (field.Vec2, bool) {
	loc, ok := f.ScoringLocationFor(team)
	if !ok {
		return field.Vec2{}, false
	}
	return loc.Center(), true
}

// Heading returns the angle in radians from from to to.
func Heading(from, to field.Vec2) float64 {
	return math.Atan2(to.Y-from.Y, to.X-from.X)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
