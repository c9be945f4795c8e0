package field

import (
	"testing"

	"ballfield/server/internal/simutil"
)

func newTestField(t *testing.T) *Field {
	t.Helper()
	return New(DefaultLayout(), simutil.NewDeterministicRNG("field-test", "field"))
}

func TestDefaultLayoutGeometry(t *testing.T) {
	f := newTestField(t)
	if f.LeftBoundary() != 33 || f.RightBoundary() != 67 {
		t.Fatalf("expected boundaries 33/67, got %d/%d", f.LeftBoundary(), f.RightBoundary())
	}
	red, _ := f.ScoringLocationFor(TeamRed)
	blue, _ := f.ScoringLocationFor(TeamBlue)
	if red.Cell != (Cell{Col: 24, Row: 30}) {
		t.Fatalf("unexpected red scoring cell %+v", red.Cell)
	}
	if blue.Cell != (Cell{Col: 75, Row: 30}) {
		t.Fatalf("unexpected blue scoring cell %+v", blue.Cell)
	}
	for col := 0; col < f.Width(); col++ {
		if f.TileAtCell(Cell{Col: col, Row: 0}) != TileWall || f.TileAtCell(Cell{Col: col, Row: f.Height() - 1}) != TileWall {
			t.Fatalf("expected border wall at column %d", col)
		}
	}
	if f.TileAtCell(Cell{Col: 33, Row: 30}) != TileWall {
		t.Fatalf("expected internal wall at the middle row")
	}
}

func TestInternalWallsAlwaysLeaveGap(t *testing.T) {
	for _, coverage := range []float64{0, 0.5, 0.7, 0.99, 1} {
		layout := DefaultLayout()
		layout.WallCoverage = coverage
		f := New(layout, nil)
		for _, col := range []int{f.LeftBoundary(), f.RightBoundary()} {
			open := 0
			for row := 1; row < f.Height()-1; row++ {
				if f.TileAtCell(Cell{Col: col, Row: row}) != TileWall {
					open++
				}
			}
			if open < 1 {
				t.Fatalf("coverage %v: expected a gap in column %d", coverage, col)
			}
		}
	}
}

func TestSetTileKeepsBallIndexInSync(t *testing.T) {
	f := newTestField(t)
	if !f.SetTile(10.7, 5.2, TileBall) {
		t.Fatalf("expected in-bounds write to succeed")
	}
	if !f.HasBall(Cell{Col: 10, Row: 5}) || f.BallCount() != 1 {
		t.Fatalf("expected indexed ball at (10,5), count=%d", f.BallCount())
	}
	if balls := f.Balls(); len(balls) != 1 || balls[0] != (Cell{Col: 10, Row: 5}) {
		t.Fatalf("unexpected ball list %+v", balls)
	}
	f.SetTile(10.1, 5.9, TileEmpty)
	if f.HasBall(Cell{Col: 10, Row: 5}) || f.BallCount() != 0 || len(f.Balls()) != 0 {
		t.Fatalf("expected ball index cleared")
	}
	if f.SetTile(-1, 3, TileBall) || f.SetTile(3, float64(f.Height()), TileBall) {
		t.Fatalf("expected out-of-bounds writes to fail")
	}
}

func TestTileAtOutOfBoundsIsWall(t *testing.T) {
	f := newTestField(t)
	for _, p := range []Vec2{{X: -0.5, Y: 4}, {X: 4, Y: -3}, {X: 1000, Y: 4}, {X: 4, Y: 61}} {
		if got := f.TileAt(p.X, p.Y); got != TileWall {
			t.Fatalf("expected wall at %+v, got %s", p, got)
		}
	}
}

func TestIsPassableRespectsOccupants(t *testing.T) {
	f := newTestField(t)
	f.SetOccupant("R1", Vec2{X: 5.5, Y: 5.5})

	if f.IsPassable(5, 5, false, "") {
		t.Fatalf("expected occupied cell to block")
	}
	if !f.IsPassable(5, 5, false, "R1") {
		t.Fatalf("expected own cell to be passable when ignored")
	}
	if !f.IsPassable(5, 5, true, "") {
		t.Fatalf("expected ignoreAgents to bypass occupancy")
	}
	if f.IsPassable(0, 5, true, "") {
		t.Fatalf("expected wall to block even when ignoring agents")
	}
	if f.IsPassable(-1, 5, true, "") {
		t.Fatalf("expected out of bounds to block")
	}

	f.SetOccupant("R1", Vec2{X: 6.5, Y: 5.5})
	if !f.IsPassable(5, 5, false, "") || f.IsPassable(5, 6, false, "") {
		t.Fatalf("expected occupancy to follow the agent")
	}
	f.RemoveOccupant("R1")
	if !f.IsPassable(5, 6, false, "") {
		t.Fatalf("expected removed occupant to free the cell")
	}
}

func TestFindNearestOpenNodeSkipsScoringCells(t *testing.T) {
	f := newTestField(t)
	red, _ := f.ScoringLocationFor(TeamRed)
	center := red.Center()

	got, ok := f.FindNearestOpenNode(center.X, center.Y)
	if !ok {
		t.Fatalf("expected an open node")
	}
	if got.Cell() == red.Cell {
		t.Fatalf("expected scoring cell to be skipped")
	}
	if d := got.Cell(); absInt(d.Col-red.Cell.Col) > 1 || absInt(d.Row-red.Cell.Row) > 1 {
		t.Fatalf("expected an adjacent cell, got %+v", d)
	}
}

func TestFindNearestOpenNodeWithinRadius(t *testing.T) {
	f := newTestField(t)
	for row := 8; row <= 12; row++ {
		for col := 8; col <= 12; col++ {
			f.SetTileAtCell(Cell{Col: col, Row: row}, TileBall)
		}
	}
	if _, ok := f.FindNearestOpenNodeWithin(10.5, 10.5, 2); ok {
		t.Fatalf("expected no open node inside a fully occupied radius")
	}
	got, ok := f.FindNearestOpenNodeWithin(10.5, 10.5, 3)
	if !ok {
		t.Fatalf("expected an open node at radius 3")
	}
	if c := got.Cell(); absInt(c.Col-10) != 3 && absInt(c.Row-10) != 3 {
		t.Fatalf("expected ring-3 cell, got %+v", c)
	}
	if got.X != float64(got.Cell().Col)+0.5 || got.Y != float64(got.Cell().Row)+0.5 {
		t.Fatalf("expected a tile centre, got %+v", got)
	}
}

func TestRespawnBallStaysInNeutralBand(t *testing.T) {
	f := newTestField(t)
	for i := 0; i < 200; i++ {
		if !f.RespawnBall() {
			t.Fatalf("expected respawn %d to succeed", i)
		}
	}
	for _, c := range f.Balls() {
		if !f.InNeutralZone(float64(c.Col) + 0.5) {
			t.Fatalf("respawned ball outside neutral band at %+v", c)
		}
	}
	if f.BallCount() != 200 {
		t.Fatalf("expected 200 balls, got %d", f.BallCount())
	}
}

func TestRespawnBallNoOpWhenFull(t *testing.T) {
	f := newTestField(t)
	for _, c := range f.neutralOpenCells() {
		f.SetTileAtCell(c, TileBall)
	}
	before := f.BallCount()
	if f.RespawnBall() {
		t.Fatalf("expected respawn to report no open slot")
	}
	if f.BallCount() != before {
		t.Fatalf("expected ball count unchanged, got %d want %d", f.BallCount(), before)
	}
}

func TestSeedBallsMirrored(t *testing.T) {
	f := newTestField(t)
	placed := f.SeedBalls(400)
	if placed != 400 || f.BallCount() != 400 {
		t.Fatalf("expected 400 balls, placed=%d count=%d", placed, f.BallCount())
	}
	for _, c := range f.Balls() {
		if !f.HasBall(f.mirror(c)) {
			t.Fatalf("ball at %+v has no mirror", c)
		}
		if f.isScoringCell(c) {
			t.Fatalf("ball seeded on scoring cell %+v", c)
		}
	}
}

func TestSetActiveTeamComplementary(t *testing.T) {
	f := newTestField(t)
	for _, team := range []Team{TeamBlue, TeamRed, TeamBlue} {
		f.SetActiveTeam(team)
		active := 0
		for _, loc := range f.ScoringLocations() {
			if loc.Active {
				active++
				if loc.Team != team {
					t.Fatalf("expected %s active, got %s", team, loc.Team)
				}
			}
		}
		if active != 1 || f.ActiveTeam() != team {
			t.Fatalf("expected exactly one active location for %s, got %d", team, active)
		}
	}
}

func TestInTeamZone(t *testing.T) {
	f := newTestField(t)
	cases := []struct {
		x    float64
		team Team
		want bool
	}{
		{x: 32.9, team: TeamRed, want: true},
		{x: 33.0, team: TeamRed, want: false},
		{x: 67.5, team: TeamBlue, want: false},
		{x: 68.0, team: TeamBlue, want: true},
		{x: 50, team: TeamBlue, want: false},
	}
	for _, tc := range cases {
		if got := f.InTeamZone(tc.x, tc.team); got != tc.want {
			t.Fatalf("InTeamZone(%v, %s): expected %v, got %v", tc.x, tc.team, tc.want, got)
		}
	}
}

func TestStepFlyingBallsRemovesLanded(t *testing.T) {
	f := newTestField(t)
	a := f.LaunchBall("R1", Vec2{X: 1, Y: 1}, Vec2{X: 2, Y: 1}, 1)
	b := f.LaunchBall("R1", Vec2{X: 1, Y: 1}, Vec2{X: 9, Y: 1}, 1)
	if a.ID == b.ID {
		t.Fatalf("expected unique flying ball ids")
	}
	f.StepFlyingBalls(func(ball *FlyingBall) bool {
		ball.Pos.X += ball.Speed
		return ball.ID == a.ID
	})
	remaining := f.FlyingBalls()
	if len(remaining) != 1 || remaining[0].ID != b.ID || remaining[0].Pos.X != 2 {
		t.Fatalf("unexpected remaining flight %+v", remaining)
	}
}

func TestRemoveFlyingBall(t *testing.T) {
	f := newTestField(t)
	a := f.LaunchBall("R1", Vec2{X: 1, Y: 1}, Vec2{X: 2, Y: 1}, 1)
	b := f.LaunchBall("B1", Vec2{X: 5, Y: 1}, Vec2{X: 9, Y: 1}, 1)

	if !f.RemoveFlyingBall(a.ID) {
		t.Fatalf("expected ball %d to be removed", a.ID)
	}
	if f.RemoveFlyingBall(a.ID) {
		t.Fatalf("expected second removal to report false")
	}
	remaining := f.FlyingBalls()
	if len(remaining) != 1 || remaining[0].ID != b.ID {
		t.Fatalf("expected only ball %d in flight, got %+v", b.ID, remaining)
	}
}
