package session

import (
	"math"

	"github.com/mcoot/pongrelay/internal/dependencies/random"
	"github.com/mcoot/pongrelay/internal/model"
)

// Field and physics constants. These are shared presentation-space values;
// both ends render the same 800x600 court, so the host simulates in it
// directly and snapshots need no coordinate mapping.
const (
	FieldWidth  = 800.0
	FieldHeight = 600.0

	PaddleWidth  = 15.0
	PaddleHeight = 100.0
	PaddleSpeed  = 500.0
	PaddleMargin = 20.0

	BallRadius        = 10.0
	BallSpeed         = 400.0
	BallSpeedIncrease = 1.05
	MaxBallSpeed      = 800.0

	// MaxDeflectionAngle bounds how sharply an edge hit redirects the ball
	MaxDeflectionAngle = math.Pi / 3

	// ServeAngleRange is the half-spread of the random serve direction
	ServeAngleRange = math.Pi / 4

	// powerUpSpawnRate is expected spawns per second in chaos mode
	powerUpSpawnRate = 0.15
	powerUpRadius    = 14.0
	maxPowerUps      = 3
)

// StepResult reports what happened during one simulation step
type StepResult struct {
	// Scored is the player number that won a point this step, or 0
	Scored int
	// Winner is the player number that won the match this step, or 0
	Winner int
	// RallyEnded is set when a point ended the current rally
	RallyEnded bool
}

// Engine is the host-side pong simulation. Exactly one end of a match runs
// it; the other end only mirrors its snapshots.
type Engine struct {
	ball     model.Ball
	paddleY  [3]float64 // indexed by player number, 0 unused
	score    model.Score
	settings model.RoomSettings
	random   random.Random
	powerUps []model.PowerUp

	currentRally int
	longestRally int
	totalRallies int
}

// NewEngine creates a simulation with centered paddles and a fresh serve
func NewEngine(settings model.RoomSettings, rnd random.Random) *Engine {
	settings = settings.Normalize()
	e := &Engine{
		settings: settings,
		random:   rnd,
	}
	e.paddleY[1] = (FieldHeight - PaddleHeight) / 2
	e.paddleY[2] = (FieldHeight - PaddleHeight) / 2
	e.serve(1)
	return e
}

// serve resets the ball to center, moving toward the given player's side at
// a random angle
func (e *Engine) serve(toward int) {
	angle := (e.random.Float64()*2 - 1) * ServeAngleRange
	direction := 1.0
	if toward == 1 {
		direction = -1.0
	}

	e.ball = model.Ball{
		X:      FieldWidth / 2,
		Y:      FieldHeight / 2,
		VX:     direction * BallSpeed * math.Cos(angle),
		VY:     BallSpeed * math.Sin(angle),
		Speed:  BallSpeed,
		Radius: BallRadius,
	}
}

// MovePaddle positions a paddle, clamped to the field
func (e *Engine) MovePaddle(player int, y float64) {
	if player < 1 || player > 2 {
		return
	}
	e.paddleY[player] = clampPaddle(y)
}

func clampPaddle(y float64) float64 {
	if y < 0 {
		return 0
	}
	if y > FieldHeight-PaddleHeight {
		return FieldHeight - PaddleHeight
	}
	return y
}

// Step advances the simulation by dt seconds
func (e *Engine) Step(dt float64) StepResult {
	e.ball.X += e.ball.VX * dt
	e.ball.Y += e.ball.VY * dt

	// Top and bottom walls reflect
	if e.ball.Y-e.ball.Radius < 0 {
		e.ball.Y = e.ball.Radius
		e.ball.VY = -e.ball.VY
	} else if e.ball.Y+e.ball.Radius > FieldHeight {
		e.ball.Y = FieldHeight - e.ball.Radius
		e.ball.VY = -e.ball.VY
	}

	e.collidePaddles()

	if e.settings.GameMode == model.GameModeChaos {
		e.updatePowerUps(dt)
	}

	// A ball past a goal line scores for the other player
	if e.ball.X+e.ball.Radius < 0 {
		return e.pointScored(2)
	}
	if e.ball.X-e.ball.Radius > FieldWidth {
		return e.pointScored(1)
	}

	return StepResult{}
}

func (e *Engine) collidePaddles() {
	// Player 1 on the left
	leftEdge := PaddleMargin + PaddleWidth
	if e.ball.VX < 0 && e.ball.X-e.ball.Radius <= leftEdge && e.ball.X-e.ball.Radius >= PaddleMargin {
		if e.paddleHit(1) {
			e.ball.X = leftEdge + e.ball.Radius
			e.deflect(1)
		}
	}

	// Player 2 on the right
	rightEdge := FieldWidth - PaddleMargin - PaddleWidth
	if e.ball.VX > 0 && e.ball.X+e.ball.Radius >= rightEdge && e.ball.X+e.ball.Radius <= FieldWidth-PaddleMargin {
		if e.paddleHit(2) {
			e.ball.X = rightEdge - e.ball.Radius
			e.deflect(2)
		}
	}
}

func (e *Engine) paddleHit(player int) bool {
	top := e.paddleY[player]
	return e.ball.Y+e.ball.Radius >= top && e.ball.Y-e.ball.Radius <= top+PaddleHeight
}

// deflect redirects the ball off a paddle. The exit angle scales with how
// far from the paddle center the ball struck, and each return speeds the
// rally up toward the cap.
func (e *Engine) deflect(player int) {
	center := e.paddleY[player] + PaddleHeight/2
	offset := (e.ball.Y - center) / (PaddleHeight / 2)
	if offset > 1 {
		offset = 1
	} else if offset < -1 {
		offset = -1
	}
	angle := offset * MaxDeflectionAngle

	speed := e.ball.Speed * BallSpeedIncrease
	if speed > MaxBallSpeed {
		speed = MaxBallSpeed
	}

	direction := 1.0
	if player == 2 {
		direction = -1.0
	}

	e.ball.VX = direction * speed * math.Cos(angle)
	e.ball.VY = speed * math.Sin(angle)
	e.ball.Speed = speed
	e.currentRally++
}

func (e *Engine) pointScored(player int) StepResult {
	if player == 1 {
		e.score.Player1++
	} else {
		e.score.Player2++
	}

	if e.currentRally > e.longestRally {
		e.longestRally = e.currentRally
	}
	e.totalRallies++
	e.currentRally = 0
	e.powerUps = nil

	result := StepResult{Scored: player, RallyEnded: true}
	if e.score.Player1 >= e.settings.PointsToWin {
		result.Winner = 1
		return result
	}
	if e.score.Player2 >= e.settings.PointsToWin {
		result.Winner = 2
		return result
	}

	// Loser receives the next serve
	e.serve(3 - player)
	return result
}

// updatePowerUps handles chaos-mode spawning and ball pickups. Only speed
// effects act on the simulation; paddle-size kinds ride the snapshot for
// the presentation layer to apply.
func (e *Engine) updatePowerUps(dt float64) {
	if len(e.powerUps) < maxPowerUps && e.random.Float64() < powerUpSpawnRate*dt {
		kinds := []model.PowerUpKind{
			model.PowerUpBigPaddle,
			model.PowerUpSmallEnemy,
			model.PowerUpSpeedBall,
			model.PowerUpSlowBall,
		}
		e.powerUps = append(e.powerUps, model.PowerUp{
			Kind: kinds[e.random.Intn(len(kinds))],
			// Keep spawns in the middle half so paddles can't camp them
			X: FieldWidth/4 + e.random.Float64()*FieldWidth/2,
			Y: powerUpRadius + e.random.Float64()*(FieldHeight-2*powerUpRadius),
		})
	}

	kept := e.powerUps[:0]
	for _, p := range e.powerUps {
		dx := e.ball.X - p.X
		dy := e.ball.Y - p.Y
		if math.Hypot(dx, dy) <= e.ball.Radius+powerUpRadius {
			e.applyPowerUp(p.Kind)
			continue
		}
		kept = append(kept, p)
	}
	e.powerUps = kept
}

func (e *Engine) applyPowerUp(kind model.PowerUpKind) {
	switch kind {
	case model.PowerUpSpeedBall:
		e.scaleBallSpeed(1.3)
	case model.PowerUpSlowBall:
		e.scaleBallSpeed(0.7)
	}
}

func (e *Engine) scaleBallSpeed(factor float64) {
	speed := e.ball.Speed * factor
	if speed > MaxBallSpeed {
		speed = MaxBallSpeed
	} else if speed < BallSpeed/2 {
		speed = BallSpeed / 2
	}
	scale := speed / e.ball.Speed
	e.ball.VX *= scale
	e.ball.VY *= scale
	e.ball.Speed = speed
}

// Score returns the current scoreboard
func (e *Engine) Score() model.Score {
	return e.score
}

// Stats returns rally statistics accumulated so far
func (e *Engine) Stats() model.MatchStats {
	return model.MatchStats{
		LongestRally: e.longestRally,
		TotalRallies: e.totalRallies,
	}
}

// Snapshot builds the wire state for the opponent. hostPlayerNumber tells
// the receiver which slot the HostPaddle belongs to.
func (e *Engine) Snapshot(hostPlayerNumber int) model.SyncedGameState {
	powerUps := make([]model.PowerUp, len(e.powerUps))
	copy(powerUps, e.powerUps)

	return model.SyncedGameState{
		Ball:             e.ball,
		Score:            e.score,
		HostPaddle:       model.HostPaddle{Y: e.paddleY[hostPlayerNumber]},
		HostPlayerNumber: hostPlayerNumber,
		PowerUps:         powerUps,
	}
}
