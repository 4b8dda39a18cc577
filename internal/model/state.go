package model

// Ball is the host-simulated ball state
type Ball struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Speed  float64 `json:"speed"`
	Radius float64 `json:"radius"`
}

// HostPaddle is the host's own paddle position within a snapshot
type HostPaddle struct {
	Y float64 `json:"y"`
}

// PowerUpKind identifies an on-field power-up
type PowerUpKind string

const (
	PowerUpBigPaddle  PowerUpKind = "bigPaddle"
	PowerUpSmallEnemy PowerUpKind = "smallEnemy"
	PowerUpSpeedBall  PowerUpKind = "speedBall"
	PowerUpSlowBall   PowerUpKind = "slowBall"
)

// PowerUp is a spawned, not-yet-collected power-up. Spawn and collection are
// host-authoritative; non-hosts only mirror the list.
type PowerUp struct {
	Kind PowerUpKind `json:"kind"`
	X    float64     `json:"x"`
	Y    float64     `json:"y"`
}

// SyncedGameState is the snapshot the host produces once per simulation tick.
// The non-host applies it wholesale, never merging with local physics.
// HostPlayerNumber lets the receiver map the host paddle to the right slot:
// in matchmaking-formed rooms the host is not always the local player 1 view.
type SyncedGameState struct {
	Ball             Ball       `json:"ball"`
	Score            Score      `json:"score"`
	HostPaddle       HostPaddle `json:"hostPaddle"`
	HostPlayerNumber int        `json:"hostPlayerNumber"`
	PowerUps         []PowerUp  `json:"powerUps"`
}
