package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/pongrelay/internal/dependencies/clock"
	"github.com/mcoot/pongrelay/internal/dependencies/random"
	"github.com/mcoot/pongrelay/internal/model"
)

// Sync is the outbound slice of the multiplayer client the session uses
type Sync interface {
	SendGameState(state model.SyncedGameState) error
	SendPaddleUpdate(y, velocity float64) error
	SendScoreUpdate(score model.Score) error
	SendGameOver(winner int, score model.Score, stats model.MatchStats) error
}

// Cues fires local presentation effects. The adapter guarantees
// ScoreChanged fires exactly once per score change, however many identical
// snapshots arrive in between.
type Cues interface {
	ScoreChanged(score model.Score)
	GameEnded(winner int)
}

// Adapter binds one match to the multiplayer client. The host end runs the
// simulation and streams snapshots out; the non-host end applies incoming
// snapshots wholesale and never simulates the ball.
type Adapter struct {
	sync   Sync
	cues   Cues
	clock  clock.Clock
	random random.Random
	logger *slog.Logger

	mu           sync.Mutex
	active       bool
	finished     bool
	isHost       bool
	playerNumber int
	settings     model.RoomSettings

	engine    *Engine               // host only
	mirrored  model.SyncedGameState // non-host only
	lastScore model.Score

	localPaddleY  float64
	remotePaddleY float64
	startedAt     time.Time
}

// NewAdapter creates a session adapter
func NewAdapter(syncClient Sync, cues Cues, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Adapter {
	return &Adapter{
		sync:   syncClient,
		cues:   cues,
		clock:  clk,
		random: rnd,
		logger: logger.With(slog.String("component", "session")),
	}
}

// StartMatch resets the session for a new match. Only the host end builds
// a simulation; the non-host starts from a zero mirror.
func (a *Adapter) StartMatch(assignment model.RoomAssignment, settings model.RoomSettings) {
	settings = settings.Normalize()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.active = true
	a.finished = false
	a.isHost = assignment.IsHost
	a.playerNumber = assignment.PlayerNumber
	a.settings = settings
	a.mirrored = model.SyncedGameState{}
	a.lastScore = model.Score{}
	a.localPaddleY = (FieldHeight - PaddleHeight) / 2
	a.remotePaddleY = (FieldHeight - PaddleHeight) / 2
	a.startedAt = a.clock.Now()

	if a.isHost {
		a.engine = NewEngine(settings, a.random)
	} else {
		a.engine = nil
	}

	a.logger.Info("match started",
		slog.String("room", string(assignment.RoomCode)),
		slog.Bool("host", a.isHost),
		slog.Int("player", a.playerNumber),
	)
}

// Tick advances the host simulation by dt seconds and streams the
// resulting snapshot. On a non-host end it does nothing; mirrored state
// only moves when a snapshot arrives.
func (a *Adapter) Tick(dt float64) {
	a.mu.Lock()
	if !a.active || a.finished || !a.isHost {
		a.mu.Unlock()
		return
	}

	a.engine.MovePaddle(a.playerNumber, a.localPaddleY)
	a.engine.MovePaddle(3-a.playerNumber, a.remotePaddleY)

	result := a.engine.Step(dt)
	score := a.engine.Score()
	stats := a.engine.Stats()
	stats.GameTime = a.clock.Since(a.startedAt).Seconds()
	snapshot := a.engine.Snapshot(a.playerNumber)

	scoreChanged := score != a.lastScore
	if scoreChanged {
		a.lastScore = score
	}
	if result.Winner != 0 {
		a.finished = true
	}
	a.mu.Unlock()

	if scoreChanged {
		a.cues.ScoreChanged(score)
		if err := a.sync.SendScoreUpdate(score); err != nil {
			a.logger.Warn("score update failed", slog.String("error", err.Error()))
		}
	}

	if err := a.sync.SendGameState(snapshot); err != nil {
		a.logger.Warn("snapshot send failed", slog.String("error", err.Error()))
	}

	if result.Winner != 0 {
		a.cues.GameEnded(result.Winner)
		if err := a.sync.SendGameOver(result.Winner, score, stats); err != nil {
			a.logger.Warn("game over send failed", slog.String("error", err.Error()))
		}
	}
}

// ApplySnapshot mirrors a host snapshot wholesale. Host ends ignore it;
// their own simulation is the authority.
func (a *Adapter) ApplySnapshot(state model.SyncedGameState) {
	a.mu.Lock()
	if !a.active || a.isHost {
		a.mu.Unlock()
		return
	}

	a.mirrored = state
	a.remotePaddleY = state.HostPaddle.Y

	scoreChanged := state.Score != a.lastScore
	if scoreChanged {
		a.lastScore = state.Score
	}
	a.mu.Unlock()

	if scoreChanged {
		a.cues.ScoreChanged(state.Score)
	}
}

// ApplyRemotePaddle records the opponent's paddle position
func (a *Adapter) ApplyRemotePaddle(update model.PaddleUpdatePayload) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if update.PlayerNumber == a.playerNumber {
		return
	}
	a.remotePaddleY = clampPaddle(update.Y)
}

// MoveLocalPaddle positions this player's paddle and reports it to the
// opponent. Paddles stay locally driven on both ends.
func (a *Adapter) MoveLocalPaddle(y, velocity float64) {
	a.mu.Lock()
	if !a.active {
		a.mu.Unlock()
		return
	}
	a.localPaddleY = clampPaddle(y)
	clamped := a.localPaddleY
	a.mu.Unlock()

	if err := a.sync.SendPaddleUpdate(clamped, velocity); err != nil {
		a.logger.Warn("paddle update failed", slog.String("error", err.Error()))
	}
}

// EndMatch handles a reported result from the other end
func (a *Adapter) EndMatch(result model.GameOverPayload) {
	a.mu.Lock()
	if !a.active || a.finished {
		a.mu.Unlock()
		return
	}
	a.finished = true
	a.mu.Unlock()

	a.cues.GameEnded(result.Winner)
}

// Snapshot returns the state the renderer should draw this frame
func (a *Adapter) Snapshot() model.SyncedGameState {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isHost && a.engine != nil {
		return a.engine.Snapshot(a.playerNumber)
	}
	return a.mirrored
}

// LocalPaddleY returns this player's paddle position
func (a *Adapter) LocalPaddleY() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.localPaddleY
}

// RemotePaddleY returns the opponent's last reported paddle position
func (a *Adapter) RemotePaddleY() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remotePaddleY
}

// Finished reports whether the match has ended
func (a *Adapter) Finished() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finished
}
