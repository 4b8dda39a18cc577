package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/pongrelay/internal/dependencies/clock"
	"github.com/mcoot/pongrelay/internal/model"
)

// Config holds client configuration
type Config struct {
	ServerURL  string
	PlayerID   string
	PlayerName string

	// ConnectTimeout bounds both the dial and how long a second Connect
	// call waits for an in-flight handshake.
	ConnectTimeout time.Duration

	// OperationTimeout bounds createRoom and joinRoom round trips.
	OperationTimeout time.Duration

	// MatchmakingTimeout bounds how long QuickMatch waits for a partner.
	MatchmakingTimeout time.Duration

	// PingInterval is how often a latency probe is sent.
	PingInterval time.Duration
}

// DefaultConfig returns sensible client defaults
func DefaultConfig() Config {
	return Config{
		ServerURL:          "ws://localhost:8080/ws",
		ConnectTimeout:     10 * time.Second,
		OperationTimeout:   5 * time.Second,
		MatchmakingTimeout: 30 * time.Second,
		PingInterval:       2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.ServerURL == "" {
		c.ServerURL = defaults.ServerURL
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaults.ConnectTimeout
	}
	if c.OperationTimeout == 0 {
		c.OperationTimeout = defaults.OperationTimeout
	}
	if c.MatchmakingTimeout == 0 {
		c.MatchmakingTimeout = defaults.MatchmakingTimeout
	}
	if c.PingInterval == 0 {
		c.PingInterval = defaults.PingInterval
	}
	return c
}

// Handlers receives server-pushed events. Nil fields are skipped. All
// handlers are invoked from the client's read goroutine, so they must not
// block on other client calls.
type Handlers struct {
	OnRoomCreated    func(assignment model.RoomAssignment)
	OnRoomJoined     func(assignment model.RoomAssignment)
	OnMatchFound     func(assignment model.RoomAssignment)
	OnMatchmaking    func(status model.MatchmakingStatusPayload)
	OnOpponentJoined func(opponent model.OpponentInfo)
	OnOpponentLeft   func()
	OnGameStart      func(countdown int)
	OnPaddleUpdate   func(update model.PaddleUpdatePayload)
	OnGameState      func(state model.SyncedGameState)
	OnScoreUpdate    func(update model.ScoreUpdatePayload)
	OnGameOver       func(result model.GameOverPayload)
	OnChat           func(message model.ChatBroadcast)
	OnError          func(message string)
	OnLatency        func(latency time.Duration)
	OnDisconnect     func(cause error)
}

type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

// connectPollInterval is how often a waiting Connect call re-checks an
// in-flight handshake.
const connectPollInterval = 100 * time.Millisecond

type opResult struct {
	assignment model.RoomAssignment
	err        error
}

// pendingOp is one in-flight room operation. It settles exactly once, to
// whichever of success event, error event, timeout, or disconnect comes
// first; later outcomes are ignored.
type pendingOp struct {
	settleOn map[model.EventType]bool
	result   chan opResult
	once     sync.Once
}

func newPendingOp(settleOn ...model.EventType) *pendingOp {
	kinds := make(map[model.EventType]bool, len(settleOn))
	for _, t := range settleOn {
		kinds[t] = true
	}
	return &pendingOp{
		settleOn: kinds,
		result:   make(chan opResult, 1),
	}
}

func (p *pendingOp) settle(res opResult) {
	p.once.Do(func() {
		p.result <- res
	})
}

// Client keeps one connection to the relay server and exposes the game's
// multiplayer operations over it.
type Client struct {
	config   Config
	handlers Handlers
	dialer   Dialer
	clock    clock.Clock
	logger   *slog.Logger

	mu        sync.Mutex
	connState connState
	transport Transport
	done      chan struct{}
	pending   *pendingOp

	roomCode     model.RoomCode
	playerNumber int
	isHost       bool
	latency      time.Duration

	writeMu sync.Mutex
}

// New creates a client over a real websocket transport
func New(cfg Config, handlers Handlers, logger *slog.Logger) *Client {
	return newClient(cfg, handlers, NewWebsocketDialer(), clock.New(), logger)
}

func newClient(cfg Config, handlers Handlers, dialer Dialer, clk clock.Clock, logger *slog.Logger) *Client {
	return &Client{
		config:   cfg.withDefaults(),
		handlers: handlers,
		dialer:   dialer,
		clock:    clk,
		logger:   logger.With(slog.String("component", "client")),
	}
}

// Connect establishes the connection and registers the player identity.
// Calling it while connected is a no-op; calling it while another Connect
// is in flight waits for that handshake instead of starting a second one.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.connState {
	case stateConnected:
		c.mu.Unlock()
		return nil
	case stateConnecting:
		c.mu.Unlock()
		return c.awaitConnected(ctx)
	}
	c.connState = stateConnecting
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	transport, err := c.dialer.Dial(dialCtx, c.config.ServerURL)
	if err != nil {
		c.mu.Lock()
		c.connState = stateDisconnected
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", model.ErrServerUnavailable, err)
	}

	c.mu.Lock()
	c.transport = transport
	c.done = make(chan struct{})
	done := c.done
	c.connState = stateConnected
	c.mu.Unlock()

	if err := c.write(model.EventRegister, model.RegisterPayload{
		PlayerID:   model.PlayerID(c.config.PlayerID),
		PlayerName: c.config.PlayerName,
	}); err != nil {
		c.teardown(err, done)
		return fmt.Errorf("%w: %v", model.ErrServerUnavailable, err)
	}

	go c.readLoop(transport, done)
	go c.pingLoop(done)

	c.logger.Info("connected", slog.String("server", c.config.ServerURL))
	return nil
}

// awaitConnected polls until a concurrent Connect finishes, the bound
// elapses, or the context is cancelled
func (c *Client) awaitConnected(ctx context.Context) error {
	deadline := time.NewTimer(c.config.ConnectTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(connectPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return model.ErrServerUnavailable
		case <-ticker.C:
			c.mu.Lock()
			state := c.connState
			c.mu.Unlock()
			switch state {
			case stateConnected:
				return nil
			case stateDisconnected:
				return model.ErrServerUnavailable
			}
		}
	}
}

// Close tears the connection down. The read goroutine observes the closed
// transport and runs the full disconnect path.
func (c *Client) Close() error {
	c.mu.Lock()
	transport := c.transport
	c.mu.Unlock()
	if transport == nil {
		return nil
	}
	return transport.Close()
}

// CreateRoom asks the server for a fresh room and waits for the assignment
func (c *Client) CreateRoom(ctx context.Context, settings model.RoomSettings) (model.RoomAssignment, error) {
	return c.roomOp(ctx,
		model.EventCreateRoom,
		model.CreateRoomPayload{PlayerID: model.PlayerID(c.config.PlayerID), Settings: settings},
		newPendingOp(model.EventRoomCreated),
		c.config.OperationTimeout,
		model.ErrOperationTimeout,
	)
}

// JoinRoom joins an existing room by code and waits for the assignment
func (c *Client) JoinRoom(ctx context.Context, code string) (model.RoomAssignment, error) {
	return c.roomOp(ctx,
		model.EventJoinRoom,
		model.JoinRoomPayload{PlayerID: model.PlayerID(c.config.PlayerID), RoomCode: code},
		newPendingOp(model.EventRoomJoined),
		c.config.OperationTimeout,
		model.ErrOperationTimeout,
	)
}

// QuickMatch enters the matchmaking queue and waits for a partner. The
// waiting acknowledgement arrives through Handlers.OnMatchmaking; only a
// found match resolves the call.
func (c *Client) QuickMatch(ctx context.Context) (model.RoomAssignment, error) {
	return c.roomOp(ctx,
		model.EventQuickMatch,
		model.QuickMatchPayload{PlayerID: model.PlayerID(c.config.PlayerID)},
		newPendingOp(model.EventMatchFound),
		c.config.MatchmakingTimeout,
		model.ErrMatchmakingTimeout,
	)
}

func (c *Client) roomOp(
	ctx context.Context,
	t model.EventType,
	payload any,
	op *pendingOp,
	timeout time.Duration,
	timeoutErr error,
) (model.RoomAssignment, error) {
	c.mu.Lock()
	if c.connState != stateConnected {
		c.mu.Unlock()
		return model.RoomAssignment{}, model.ErrNotConnected
	}
	if c.pending != nil {
		c.mu.Unlock()
		return model.RoomAssignment{}, errors.New("another room operation is in flight")
	}
	c.pending = op
	done := c.done
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.pending == op {
			c.pending = nil
		}
		c.mu.Unlock()
	}()

	if err := c.write(t, payload); err != nil {
		return model.RoomAssignment{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-op.result:
		return res.assignment, res.err
	case <-timer.C:
		op.settle(opResult{err: timeoutErr})
		return model.RoomAssignment{}, timeoutErr
	case <-done:
		op.settle(opResult{err: model.ErrNotConnected})
		return model.RoomAssignment{}, model.ErrNotConnected
	case <-ctx.Done():
		op.settle(opResult{err: ctx.Err()})
		return model.RoomAssignment{}, ctx.Err()
	}
}

// LeaveRoom leaves the current room. Safe to call when not in one.
func (c *Client) LeaveRoom() error {
	c.mu.Lock()
	code := c.roomCode
	c.roomCode = ""
	c.playerNumber = 0
	c.isHost = false
	c.mu.Unlock()

	if code == "" {
		return nil
	}
	return c.write(model.EventLeaveRoom, model.LeaveRoomPayload{RoomCode: code})
}

// Ready signals that this client's game screen is ready to start
func (c *Client) Ready() error {
	c.mu.Lock()
	code := c.roomCode
	c.mu.Unlock()
	if code == "" {
		return model.ErrNotInRoom
	}
	return c.write(model.EventPlayerReady, model.PlayerReadyPayload{
		RoomCode: code,
		PlayerID: model.PlayerID(c.config.PlayerID),
	})
}

// RequestStart asks the server to start the match immediately
func (c *Client) RequestStart() error {
	c.mu.Lock()
	code := c.roomCode
	c.mu.Unlock()
	if code == "" {
		return model.ErrNotInRoom
	}
	return c.write(model.EventRequestStart, model.RequestStartPayload{
		RoomCode: code,
		PlayerID: model.PlayerID(c.config.PlayerID),
	})
}

// SendPaddleUpdate reports this player's paddle position to the opponent
func (c *Client) SendPaddleUpdate(y, velocity float64) error {
	c.mu.Lock()
	code := c.roomCode
	number := c.playerNumber
	c.mu.Unlock()
	if code == "" {
		return model.ErrNotInRoom
	}
	return c.write(model.EventPaddleUpdate, model.PaddleUpdatePayload{
		RoomCode:     code,
		PlayerNumber: number,
		Y:            y,
		Velocity:     velocity,
		Timestamp:    c.clock.NowMillis(),
	})
}

// SendGameState broadcasts the authoritative snapshot to the opponent.
// Only the host owns the simulation; on a non-host this is a silent no-op.
func (c *Client) SendGameState(state model.SyncedGameState) error {
	c.mu.Lock()
	code := c.roomCode
	isHost := c.isHost
	c.mu.Unlock()
	if !isHost || code == "" {
		return nil
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding game state: %w", err)
	}
	return c.write(model.EventGameState, model.GameStatePayload{
		RoomCode:  code,
		State:     raw,
		Timestamp: c.clock.NowMillis(),
	})
}

// SendScoreUpdate broadcasts the current score to the room
func (c *Client) SendScoreUpdate(score model.Score) error {
	c.mu.Lock()
	code := c.roomCode
	c.mu.Unlock()
	if code == "" {
		return model.ErrNotInRoom
	}
	return c.write(model.EventScoreUpdate, model.ScoreUpdatePayload{
		RoomCode: code,
		Score:    score,
	})
}

// SendGameOver reports the final result. Host-only, like SendGameState.
func (c *Client) SendGameOver(winner int, score model.Score, stats model.MatchStats) error {
	c.mu.Lock()
	code := c.roomCode
	isHost := c.isHost
	c.mu.Unlock()
	if !isHost || code == "" {
		return nil
	}
	return c.write(model.EventGameOver, model.GameOverPayload{
		RoomCode: code,
		Winner:   winner,
		Score:    score,
		Stats:    stats,
	})
}

// SendChat sends a chat message to the opponent
func (c *Client) SendChat(message string) error {
	c.mu.Lock()
	code := c.roomCode
	c.mu.Unlock()
	if code == "" {
		return model.ErrNotInRoom
	}
	return c.write(model.EventChat, model.ChatPayload{
		RoomCode: code,
		PlayerID: model.PlayerID(c.config.PlayerID),
		Message:  message,
	})
}

// Status is a point-in-time snapshot of the client's connection
type Status struct {
	Connected    bool
	RoomCode     model.RoomCode
	PlayerNumber int
	IsHost       bool
	Latency      time.Duration
}

// Status returns the current connection snapshot
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Connected:    c.connState == stateConnected,
		RoomCode:     c.roomCode,
		PlayerNumber: c.playerNumber,
		IsHost:       c.isHost,
		Latency:      c.latency,
	}
}

func (c *Client) write(t model.EventType, payload any) error {
	env, err := model.NewEnvelope(t, payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", t, err)
	}

	c.mu.Lock()
	transport := c.transport
	state := c.connState
	c.mu.Unlock()
	if state != stateConnected || transport == nil {
		return model.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return transport.WriteEnvelope(env)
}

func (c *Client) readLoop(transport Transport, done chan struct{}) {
	for {
		env, err := transport.ReadEnvelope()
		if err != nil {
			c.teardown(err, done)
			return
		}
		c.dispatch(env)
	}
}

// teardown runs the disconnect path once per connection generation
func (c *Client) teardown(cause error, done chan struct{}) {
	c.mu.Lock()
	if c.done != done {
		c.mu.Unlock()
		return
	}
	c.connState = stateDisconnected
	if c.transport != nil {
		_ = c.transport.Close()
		c.transport = nil
	}
	c.roomCode = ""
	c.playerNumber = 0
	c.isHost = false
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	close(done)

	if pending != nil {
		pending.settle(opResult{err: model.ErrNotConnected})
	}

	c.logger.Info("disconnected", slog.String("cause", cause.Error()))
	if c.handlers.OnDisconnect != nil {
		c.handlers.OnDisconnect(cause)
	}
}

func (c *Client) pingLoop(done chan struct{}) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.write(model.EventPing, c.clock.NowMillis()); err != nil {
				return
			}
		}
	}
}

func (c *Client) dispatch(env model.Envelope) {
	switch env.Type {
	case model.EventRoomCreated:
		c.handleAssignment(env, c.handlers.OnRoomCreated)
	case model.EventRoomJoined:
		c.handleAssignment(env, c.handlers.OnRoomJoined)
	case model.EventMatchFound:
		c.handleAssignment(env, c.handlers.OnMatchFound)
	case model.EventMatchmaking:
		var status model.MatchmakingStatusPayload
		if c.decode(env, &status) && c.handlers.OnMatchmaking != nil {
			c.handlers.OnMatchmaking(status)
		}
	case model.EventOpponentJoined:
		var payload model.OpponentJoinedPayload
		if c.decode(env, &payload) && c.handlers.OnOpponentJoined != nil {
			c.handlers.OnOpponentJoined(payload.Opponent)
		}
	case model.EventOpponentLeft:
		if c.handlers.OnOpponentLeft != nil {
			c.handlers.OnOpponentLeft()
		}
	case model.EventGameStart:
		var payload model.GameStartPayload
		if c.decode(env, &payload) && c.handlers.OnGameStart != nil {
			c.handlers.OnGameStart(payload.Countdown)
		}
	case model.EventPaddleUpdate:
		var payload model.PaddleUpdatePayload
		if c.decode(env, &payload) && c.handlers.OnPaddleUpdate != nil {
			c.handlers.OnPaddleUpdate(payload)
		}
	case model.EventGameState:
		var state model.SyncedGameState
		if c.decode(env, &state) && c.handlers.OnGameState != nil {
			c.handlers.OnGameState(state)
		}
	case model.EventScoreUpdate:
		var payload model.ScoreUpdatePayload
		if c.decode(env, &payload) && c.handlers.OnScoreUpdate != nil {
			c.handlers.OnScoreUpdate(payload)
		}
	case model.EventGameOver:
		var payload model.GameOverPayload
		if c.decode(env, &payload) && c.handlers.OnGameOver != nil {
			c.handlers.OnGameOver(payload)
		}
	case model.EventChat:
		var payload model.ChatBroadcast
		if c.decode(env, &payload) && c.handlers.OnChat != nil {
			c.handlers.OnChat(payload)
		}
	case model.EventRoomError, model.EventMatchError:
		c.handleServerError(env)
	case model.EventPong:
		c.handlePong(env)
	default:
		c.logger.Debug("dropping unknown event", slog.String("type", string(env.Type)))
	}
}

// handleAssignment applies a room placement, settles any in-flight
// operation waiting for it, then notifies the handler
func (c *Client) handleAssignment(env model.Envelope, handler func(model.RoomAssignment)) {
	var assignment model.RoomAssignment
	if !c.decode(env, &assignment) {
		return
	}

	c.mu.Lock()
	c.roomCode = assignment.RoomCode
	c.playerNumber = assignment.PlayerNumber
	c.isHost = assignment.IsHost
	pending := c.pending
	c.mu.Unlock()

	if pending != nil && pending.settleOn[env.Type] {
		pending.settle(opResult{assignment: assignment})
	}
	if handler != nil {
		handler(assignment)
	}
}

// handleServerError settles the in-flight operation if there is one,
// otherwise surfaces the message to the error handler
func (c *Client) handleServerError(env model.Envelope) {
	var payload model.ErrorPayload
	if !c.decode(env, &payload) {
		return
	}

	c.mu.Lock()
	pending := c.pending
	c.mu.Unlock()

	if pending != nil {
		pending.settle(opResult{err: errors.New(payload.Message)})
		return
	}
	if c.handlers.OnError != nil {
		c.handlers.OnError(payload.Message)
	}
}

// handlePong computes round-trip latency from the echoed send timestamp
func (c *Client) handlePong(env model.Envelope) {
	var sent int64
	if err := json.Unmarshal(env.Payload, &sent); err != nil {
		return
	}

	latency := time.Duration(c.clock.NowMillis()-sent) * time.Millisecond
	c.mu.Lock()
	c.latency = latency
	c.mu.Unlock()

	if c.handlers.OnLatency != nil {
		c.handlers.OnLatency(latency)
	}
}

func (c *Client) decode(env model.Envelope, target any) bool {
	if err := json.Unmarshal(env.Payload, target); err != nil {
		c.logger.Warn("malformed event payload",
			slog.String("type", string(env.Type)),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}
