package sim

import (
	"context"

	"ballfield/server/internal/field"
	"ballfield/server/logging"
	matchlog "ballfield/server/logging/match"
)

const (
	rejectInactive    = "inactive"
	rejectWrongOrigin = "wrong_origin"
)

// advanceFlyingBalls moves every ball in flight by its per-tick speed and
// resolves the ones that reach their target.
func (e *Engine) advanceFlyingBalls() {
	e.field.StepFlyingBalls(func(ball *field.FlyingBall) bool {
		delta := ball.Target.Sub(ball.Pos)
		dist := delta.Len()
		if ball.Speed >= dist {
			ball.Pos = ball.Target
			e.land(*ball)
			return true
		}
		ball.Pos = ball.Pos.Add(delta.Scale(ball.Speed / dist))
		return false
	})
}

// land resolves a ball arriving at its target. A ball on the active zone
// scores only when it was shot from inside the owning team's home zone;
// every other ball comes to rest on the nearest open cell.
func (e *Engine) land(ball field.FlyingBall) {
	pos := ball.Pos
	if loc, ok := e.field.ScoringLocationAt(pos.X, pos.Y); ok {
		if loc.Active && e.field.InTeamZone(ball.Origin.X, loc.Team) {
			e.score(ball, loc.Team)
			return
		}
		reason := rejectInactive
		if loc.Active {
			reason = rejectWrongOrigin
		}
		e.stats.RejectedScores++
		matchlog.ScoreRejected(context.Background(), e.deps.Publisher, uint64(e.tick), ownerRef(ball.Owner), matchlog.ScoreRejectedPayload{
			Team:   string(loc.Team),
			Reason: reason,
		}, nil)
	} else if e.field.TileAt(pos.X, pos.Y) == field.TileEmpty {
		if e.field.SetTile(pos.X, pos.Y, field.TileBall) {
			return
		}
	}
	e.deposit(ball.Owner, pos)
}

// score credits team and replaces the consumed ball with one in the neutral
// band.
func (e *Engine) score(ball field.FlyingBall, team field.Team) {
	total := 0
	if team == field.TeamRed {
		e.scoreRed++
		e.stats.ScoresRed++
		total = e.scoreRed
	} else {
		e.scoreBlue++
		e.stats.ScoresBlue++
		total = e.scoreBlue
	}
	if !e.field.RespawnBall() {
		e.deps.Logger.Warnf("no open neutral cell to respawn a ball after %s scored", team)
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.Add(metricScoresTotal, 1)
	}
	matchlog.BallScored(context.Background(), e.deps.Publisher, uint64(e.tick), ownerRef(ball.Owner), matchlog.BallScoredPayload{
		Team:    string(team),
		OriginX: ball.Origin.X,
		OriginY: ball.Origin.Y,
		Score:   total,
	}, nil)
}

func (e *Engine) loseBall(owner string, pos field.Vec2) {
	e.stats.LostBalls++
	if e.deps.Metrics != nil {
		e.deps.Metrics.Add(metricLostBallsTotal, 1)
	}
	matchlog.BallLost(context.Background(), e.deps.Publisher, uint64(e.tick), ownerRef(owner), matchlog.BallLostPayload{
		X: pos.X,
		Y: pos.Y,
	}, nil)
}

func ownerRef(owner string) logging.EntityRef {
	if owner == "" {
		return logging.EntityRef{Kind: logging.EntityKindBall}
	}
	return logging.EntityRef{ID: owner, Kind: logging.EntityKindRobot}
}
