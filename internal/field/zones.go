package field

import "math"

// ScoringLocations returns copies of both scoring locations, RED first.
func (f *Field) ScoringLocations() []ScoringLocation {
	out := make([]ScoringLocation, len(f.scoring))
	for i, loc := range f.scoring {
		out[i] = *loc
	}
	return out
}

// ScoringLocationAt matches the floored coordinates against both scoring cells.
func (f *Field) ScoringLocationAt(x, y float64) (ScoringLocation, bool) {
	return f.scoringAtCell(CellAt(x, y))
}

func (f *Field) scoringAtCell(c Cell) (ScoringLocation, bool) {
	for _, loc := range f.scoring {
		if loc.Cell == c {
			return *loc, true
		}
	}
	return ScoringLocation{}, false
}

func (f *Field) isScoringCell(c Cell) bool {
	_, ok := f.scoringAtCell(c)
	return ok
}

// ScoringLocationFor returns the scoring location owned by team.
func (f *Field) ScoringLocationFor(team Team) (ScoringLocation, bool) {
	for _, loc := range f.scoring {
		if loc.Team == team {
			return *loc, true
		}
	}
	return ScoringLocation{}, false
}

// SetActiveTeam activates team's scoring location and deactivates the other.
func (f *Field) SetActiveTeam(team Team) {
	for _, loc := range f.scoring {
		loc.Active = loc.Team == team
	}
}

// ActiveTeam returns the team whose scoring location is active.
func (f *Field) ActiveTeam() Team {
	for _, loc := range f.scoring {
		if loc.Active {
			return loc.Team
		}
	}
	return ""
}

// LeftBoundary is the column of the internal wall closing RED's zone.
func (f *Field) LeftBoundary() int { return f.leftBoundary }

// RightBoundary is the column of the internal wall closing BLUE's zone.
func (f *Field) RightBoundary() int { return f.rightBoundary }

// InTeamZone reports whether the horizontal coordinate lies in team's home band.
func (f *Field) InTeamZone(x float64, team Team) bool {
	switch team {
	case TeamRed:
		return x < float64(f.leftBoundary)
	case TeamBlue:
		return x >= float64(f.rightBoundary+1)
	default:
		return false
	}
}

// InNeutralZone reports whether the column of x lies strictly between the
// two internal walls.
func (f *Field) InNeutralZone(x float64) bool {
	col := int(math.Floor(x))
	return col > f.leftBoundary && col < f.rightBoundary
}
