package field

// LaunchBall registers a new ball in flight from origin toward target.
// owner names the shooter and is carried through to the landing.
func (f *Field) LaunchBall(owner string, origin, target Vec2, speed float64) FlyingBall {
	f.nextBallID++
	ball := FlyingBall{
		ID:     f.nextBallID,
		Owner:  owner,
		Pos:    origin,
		Target: target,
		Speed:  speed,
		Origin: origin,
	}
	f.flying = append(f.flying, ball)
	return ball
}

// FlyingBalls returns a copy of the balls currently in flight.
func (f *Field) FlyingBalls() []FlyingBall {
	if len(f.flying) == 0 {
		return nil
	}
	out := make([]FlyingBall, len(f.flying))
	copy(out, f.flying)
	return out
}

// RemoveFlyingBall takes the ball with id out of flight without landing it.
func (f *Field) RemoveFlyingBall(id uint64) bool {
	for i, ball := range f.flying {
		if ball.ID != id {
			continue
		}
		copy(f.flying[i:], f.flying[i+1:])
		f.flying[len(f.flying)-1] = FlyingBall{}
		f.flying = f.flying[:len(f.flying)-1]
		return true
	}
	return false
}

// FlyingCount returns the number of balls in flight.
func (f *Field) FlyingCount() int { return len(f.flying) }

// StepFlyingBalls calls step for every ball in flight, in launch order.
// step may mutate the ball; returning true removes it from flight. The
// callback may mutate tiles but must not launch new balls.
func (f *Field) StepFlyingBalls(step func(ball *FlyingBall) bool) {
	kept := f.flying[:0]
	for i := range f.flying {
		ball := f.flying[i]
		if step(&ball) {
			continue
		}
		kept = append(kept, ball)
	}
	for i := len(kept); i < len(f.flying); i++ {
		f.flying[i] = FlyingBall{}
	}
	f.flying = kept
}
