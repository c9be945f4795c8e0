package sim

import (
	"math"

	"ballfield/server/internal/agent"
	"ballfield/server/internal/field"
	"ballfield/server/internal/simutil"
	"ballfield/server/internal/strategy"
)

func (e *Engine) resolveAction(r *agent.Robot) {
	s := r.ActiveStrategy()
	if s == nil {
		return
	}
	action := s.DecideAction(r, e.field)
	switch action.Kind {
	case strategy.ActionCollect:
		e.collect(r)
	case strategy.ActionShoot:
		e.shoot(r, action.Distance, action.Angle)
	case strategy.ActionDrop:
		e.drop(r)
	}
}

// collect picks up the ball under the robot if it has room.
func (e *Engine) collect(r *agent.Robot) bool {
	pos := r.Position()
	if e.field.TileAt(pos.X, pos.Y) != field.TileBall || r.BallCount() >= r.MaxBalls() {
		return false
	}
	if !e.field.SetTile(pos.X, pos.Y, field.TileEmpty) {
		return false
	}
	r.AddBall()
	e.stats.Collected++
	return true
}

// drop leaves a held ball on the robot's tile when that tile is empty.
func (e *Engine) drop(r *agent.Robot) bool {
	pos := r.Position()
	if r.BallCount() <= 0 || e.field.TileAt(pos.X, pos.Y) != field.TileEmpty {
		return false
	}
	if !e.field.SetTile(pos.X, pos.Y, field.TileBall) {
		return false
	}
	r.RemoveBall()
	e.stats.Dropped++
	return true
}

// shoot launches a held ball toward the point distance tiles away along
// angle, scattered by the robot's accuracy at that distance.
func (e *Engine) shoot(r *agent.Robot, distance, angle float64) bool {
	if !r.CanShoot() {
		return false
	}
	r.RemoveBall()

	origin := r.Position()
	target := e.aim(origin, distance, angle, r.Accuracy(distance))
	e.field.LaunchBall(r.ID(), origin, target, e.ballStep)
	r.ResetCooldown()

	e.stats.Shots++
	if e.deps.Metrics != nil {
		e.deps.Metrics.Add(metricShotsTotal, 1)
	}
	return true
}

// aim computes the landing point of a shot. The spread is applied on both
// axes and is exactly zero at full accuracy. A non-finite result falls back
// to the unscattered aim point, and if that is also non-finite the ball
// lands where it was shot from.
func (e *Engine) aim(origin field.Vec2, distance, angle, accuracy float64) field.Vec2 {
	spread := (1 - accuracy) * e.cfg.SpreadScale
	dx := simutil.RoughGaussian(e.shotRNG) * spread
	dy := simutil.RoughGaussian(e.shotRNG) * spread

	clean := field.Vec2{
		X: origin.X + math.Cos(angle)*distance,
		Y: origin.Y + math.Sin(angle)*distance,
	}
	target := field.Vec2{X: clean.X + dx, Y: clean.Y + dy}
	if simutil.Finite(target.X) && simutil.Finite(target.Y) {
		return target
	}
	e.deps.Logger.Warnf("shot from (%.2f, %.2f) produced a non-finite target, firing without spread", origin.X, origin.Y)
	if simutil.Finite(clean.X) && simutil.Finite(clean.Y) {
		return clean
	}
	return origin
}

// deposit places a ball at the nearest open cell to pos, or records it as
// lost when the landing search finds none.
func (e *Engine) deposit(owner string, pos field.Vec2) bool {
	node, ok := e.field.FindNearestOpenNodeWithin(pos.X, pos.Y, e.cfg.LandingSearchRadius)
	if ok && e.field.SetTile(node.X, node.Y, field.TileBall) {
		e.stats.Deposits++
		return true
	}
	e.loseBall(owner, pos)
	return false
}
