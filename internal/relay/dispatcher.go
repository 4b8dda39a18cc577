package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/pongrelay/internal/dependencies/clock"
	"github.com/mcoot/pongrelay/internal/dependencies/random"
	"github.com/mcoot/pongrelay/internal/model"
	"github.com/mcoot/pongrelay/internal/services/leaderboard"
)

// Sender delivers server->client events to one connected session.
// The websocket session implements it; tests use an in-memory stub.
type Sender interface {
	ID() model.SessionID
	Send(env model.Envelope)
}

// inbound is one unit of dispatcher work: an event from a session, or its
// disconnect. Disconnects travel the same channel as events so that nothing
// from a session is processed after its disconnect handling begins.
type inbound struct {
	sender     Sender
	env        model.Envelope
	disconnect bool
}

// Dispatcher is the single-threaded event loop at the core of the relay.
// It alone mutates State; sessions feed it through Deliver/Disconnect.
// It forwards room-scoped events without interpreting game physics.
type Dispatcher struct {
	state       *State
	leaderboard *leaderboard.Service
	clock       clock.Clock
	random      random.Random
	logger      *slog.Logger

	inbound chan inbound

	// senders maps live sessions to their transport, for directed sends.
	// Touched only from the dispatcher goroutine.
	senders map[model.SessionID]Sender

	// writes tracks in-flight storage writes spawned off the dispatch
	// goroutine
	writes sync.WaitGroup
}

// storageWriteTimeout bounds each leaderboard write so a stalled backend
// cannot pin goroutines indefinitely.
const storageWriteTimeout = 3 * time.Second

// NewDispatcher creates a Dispatcher over the given state
func NewDispatcher(
	state *State,
	leaderboard *leaderboard.Service,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		state:       state,
		leaderboard: leaderboard,
		clock:       clk,
		random:      rnd,
		logger:      logger.With(slog.String("component", "relay")),
		inbound:     make(chan inbound, 256),
		senders:     make(map[model.SessionID]Sender),
	}
}

// Run drains the inbound channel until the context is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("relay dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.writes.Wait()
			d.logger.Info("relay dispatcher stopped")
			return
		case msg := <-d.inbound:
			d.process(msg)
		}
	}
}

// Deliver hands an inbound event to the dispatcher
func (d *Dispatcher) Deliver(sender Sender, env model.Envelope) {
	d.inbound <- inbound{sender: sender, env: env}
}

// Disconnect tells the dispatcher a session's transport has closed
func (d *Dispatcher) Disconnect(sender Sender) {
	d.inbound <- inbound{sender: sender, disconnect: true}
}

// Counts exposes live gauges for the health endpoint
func (d *Dispatcher) Counts() Counts {
	return d.state.Counts()
}

// persist runs a leaderboard write on its own goroutine so backend latency
// never stalls event dispatch
func (d *Dispatcher) persist(op string, fn func(ctx context.Context) error) {
	d.writes.Add(1)
	go func() {
		defer d.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), storageWriteTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			d.logger.Warn("storage write failed",
				slog.String("op", op),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (d *Dispatcher) process(msg inbound) {
	if msg.disconnect {
		d.handleDisconnect(msg.sender)
		delete(d.senders, msg.sender.ID())
		return
	}
	d.senders[msg.sender.ID()] = msg.sender

	switch msg.env.Type {
	case model.EventRegister:
		d.handleRegister(msg.sender, msg.env.Payload)
	case model.EventCreateRoom:
		d.handleCreateRoom(msg.sender, msg.env.Payload)
	case model.EventJoinRoom:
		d.handleJoinRoom(msg.sender, msg.env.Payload)
	case model.EventQuickMatch:
		d.handleQuickMatch(msg.sender)
	case model.EventLeaveRoom:
		d.handleLeaveRoom(msg.sender)
	case model.EventPlayerReady:
		d.handlePlayerReady(msg.sender)
	case model.EventRequestStart:
		d.handleRequestStart(msg.sender)
	case model.EventPaddleUpdate:
		d.relayToOpponent(msg.sender, model.EventPaddleUpdate, msg.env.Payload)
	case model.EventGameState:
		d.handleGameState(msg.sender, msg.env.Payload)
	case model.EventScoreUpdate:
		d.relayToRoom(msg.sender, model.EventScoreUpdate, msg.env.Payload)
	case model.EventGameOver:
		d.handleGameOver(msg.sender, msg.env.Payload)
	case model.EventChat:
		d.handleChat(msg.sender, msg.env.Payload)
	case model.EventPing:
		// Pure echo: the client computes RTT from its own timestamp, so the
		// payload must come back byte-identical with no server clock involved.
		msg.sender.Send(model.Envelope{Type: model.EventPong, Payload: msg.env.Payload})
	default:
		d.logger.Debug("dropping unknown event",
			slog.String("type", string(msg.env.Type)),
			slog.String("session", string(msg.sender.ID())),
		)
	}
}

// registeredPlayer resolves the sender's identity, reporting a room error to
// the sender when the session never registered.
func (d *Dispatcher) registeredPlayer(sender Sender) *model.Player {
	player := d.state.Player(sender.ID())
	if player == nil {
		d.sendError(sender, model.EventRoomError, "Player not registered")
	}
	return player
}

// roomMember resolves the sender's identity and current room. Events scoped
// to a room are silently ignored when the session has none: a late message
// from a just-left session must not leak into a new room.
func (d *Dispatcher) roomMember(sender Sender) (*model.Player, *model.GameRoom) {
	player := d.state.Player(sender.ID())
	if player == nil || player.CurrentRoom == "" {
		return nil, nil
	}
	room := d.state.Room(player.CurrentRoom)
	if room == nil {
		return nil, nil
	}
	return player, room
}

func (d *Dispatcher) handleRegister(sender Sender, payload json.RawMessage) {
	var req model.RegisterPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		d.logger.Warn("malformed register payload", slog.String("error", err.Error()))
		return
	}

	id := req.PlayerID
	if id == "" {
		id = model.PlayerID(sender.ID())
	}
	name := req.PlayerName
	if name == "" {
		name = "Player"
	}

	player := &model.Player{
		ID:          id,
		SessionID:   sender.ID(),
		DisplayName: name,
	}
	d.state.RegisterPlayer(player)

	d.persist("touch profile", func(ctx context.Context) error {
		return d.leaderboard.TouchProfile(ctx, id, name)
	})

	d.logger.Info("player registered",
		slog.String("player", string(id)),
		slog.String("name", name),
		slog.String("session", string(sender.ID())),
	)
}

// generateRoomCode draws codes until one not held by a live room comes up
func (d *Dispatcher) generateRoomCode() model.RoomCode {
	for {
		code := model.RoomCode(d.random.String(model.RoomCodeLength, model.RoomCodeAlphabet))
		if !d.state.RoomExists(code) {
			return code
		}
	}
}

func (d *Dispatcher) handleCreateRoom(sender Sender, payload json.RawMessage) {
	player := d.registeredPlayer(sender)
	if player == nil {
		return
	}

	var req model.CreateRoomPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		d.sendError(sender, model.EventRoomError, "Invalid room settings")
		return
	}

	room := model.NewGameRoom(d.generateRoomCode(), req.Settings, d.clock.Now())
	room.AddPlayer(player, 1)
	d.state.AddRoom(room)
	player.CurrentRoom = room.Code

	d.logger.Info("room created",
		slog.String("room", string(room.Code)),
		slog.String("player", string(player.ID)),
	)

	d.send(sender, model.EventRoomCreated, model.RoomAssignment{
		RoomCode:     room.Code,
		PlayerNumber: 1,
		IsHost:       true,
	})
}

func (d *Dispatcher) handleJoinRoom(sender Sender, payload json.RawMessage) {
	player := d.registeredPlayer(sender)
	if player == nil {
		return
	}

	var req model.JoinRoomPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		d.sendError(sender, model.EventRoomError, "Invalid room code")
		return
	}

	code := model.RoomCode(strings.ToUpper(req.RoomCode))
	room := d.state.Room(code)
	if room == nil {
		d.sendError(sender, model.EventRoomError, "Room not found")
		return
	}
	if room.IsFull() {
		d.sendError(sender, model.EventRoomError, "Room is full")
		return
	}

	room.AddPlayer(player, 2)
	player.CurrentRoom = code

	d.logger.Info("player joined room",
		slog.String("room", string(code)),
		slog.String("player", string(player.ID)),
	)

	d.send(sender, model.EventRoomJoined, model.RoomAssignment{
		RoomCode:     code,
		PlayerNumber: 2,
		IsHost:       false,
		Opponent:     room.GetOpponentInfo(player.ID),
	})

	d.sendTo(room.OpponentSession(player.ID), model.EventOpponentJoined, model.OpponentJoinedPayload{
		Opponent: player.Info(),
	})
}

func (d *Dispatcher) handleQuickMatch(sender Sender) {
	player := d.registeredPlayer(sender)
	if player == nil {
		return
	}

	opponent := d.state.DequeueOpponent()
	if opponent == nil || opponent.SessionID == player.SessionID {
		position := d.state.Enqueue(player)
		d.send(sender, model.EventMatchmaking, model.MatchmakingStatusPayload{
			Status:   "waiting",
			Position: position,
		})
		return
	}

	// The earlier-waiting player takes slot 1 and with it host authority.
	room := model.NewGameRoom(d.generateRoomCode(), model.DefaultRoomSettings(), d.clock.Now())
	room.AddPlayer(opponent, 1)
	room.AddPlayer(player, 2)
	d.state.AddRoom(room)
	opponent.CurrentRoom = room.Code
	player.CurrentRoom = room.Code

	d.logger.Info("match found",
		slog.String("room", string(room.Code)),
		slog.String("host", string(opponent.ID)),
		slog.String("guest", string(player.ID)),
	)

	d.sendTo(opponent.SessionID, model.EventMatchFound, model.RoomAssignment{
		RoomCode:     room.Code,
		PlayerNumber: 1,
		IsHost:       true,
		Opponent:     ptr(player.Info()),
	})
	d.send(sender, model.EventMatchFound, model.RoomAssignment{
		RoomCode:     room.Code,
		PlayerNumber: 2,
		IsHost:       false,
		Opponent:     ptr(opponent.Info()),
	})
}

// handleLeaveRoom removes the sender from its room. Leaving twice, or a room
// you are not in, is a no-op.
func (d *Dispatcher) handleLeaveRoom(sender Sender) {
	player, room := d.roomMember(sender)
	if player == nil {
		return
	}
	d.leaveRoom(player, room)
}

func (d *Dispatcher) leaveRoom(player *model.Player, room *model.GameRoom) {
	room.RemovePlayer(player.ID)
	player.CurrentRoom = ""
	player.IsReady = false

	for _, session := range room.Sessions() {
		d.sendTo(session, model.EventOpponentLeft, nil)
	}

	if room.IsEmpty() {
		d.state.DeleteRoom(room.Code)
		d.logger.Info("room deleted", slog.String("room", string(room.Code)))
	}
}

func (d *Dispatcher) handlePlayerReady(sender Sender) {
	player, room := d.roomMember(sender)
	if player == nil {
		return
	}

	room.SetPlayerReady(player.ID, true)

	// Both clients confirm readiness independently so neither starts before
	// the other's game screen has mounted.
	if room.AllPlayersReady() {
		d.broadcast(room, model.EventGameStart, model.GameStartPayload{Countdown: 3})
		room.StartGame(d.clock.Now())
		d.logger.Info("game started", slog.String("room", string(room.Code)))
	}
}

func (d *Dispatcher) handleRequestStart(sender Sender) {
	player, room := d.roomMember(sender)
	if player == nil {
		return
	}
	if !room.IsFull() {
		d.sendError(sender, model.EventRoomError, "Need 2 players to start")
		return
	}
	d.broadcast(room, model.EventGameStart, model.GameStartPayload{Countdown: 3})
}

// handleGameState forwards a host snapshot to the peer. The state object is
// relayed verbatim; whether the sender really is the host is a client-side
// trust boundary, not something the relay verifies.
func (d *Dispatcher) handleGameState(sender Sender, payload json.RawMessage) {
	player, room := d.roomMember(sender)
	if player == nil {
		return
	}

	var req model.GameStatePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}

	d.sendRawTo(room.OpponentSession(player.ID), model.EventGameState, req.State)
}

func (d *Dispatcher) handleGameOver(sender Sender, payload json.RawMessage) {
	player, room := d.roomMember(sender)
	if player == nil {
		return
	}

	var req model.GameOverPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}

	d.broadcast(room, model.EventGameOver, req)
	d.recordResult(room, req)
	room.EndGame()

	d.logger.Info("game over",
		slog.String("room", string(room.Code)),
		slog.Int("winner", req.Winner),
	)
}

// recordResult maps the reported winner slot onto player identities and hands
// the result to the leaderboard.
func (d *Dispatcher) recordResult(room *model.GameRoom, payload model.GameOverPayload) {
	winner := room.Slots[payload.Winner]
	loser := room.Slots[3-payload.Winner]
	if winner == nil {
		return
	}

	result := &model.MatchResult{
		RoomCode:   room.Code,
		GameMode:   room.Settings.GameMode,
		Winner:     winner.PlayerID,
		WinnerName: winner.Name,
		Score:      payload.Score,
		Stats:      payload.Stats,
	}
	if loser != nil {
		result.Loser = loser.PlayerID
		result.LoserName = loser.Name
	}

	d.persist("record match", func(ctx context.Context) error {
		return d.leaderboard.RecordMatch(ctx, result)
	})
}

func (d *Dispatcher) handleChat(sender Sender, payload json.RawMessage) {
	player, room := d.roomMember(sender)
	if player == nil {
		return
	}

	var req model.ChatPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}

	message := truncateMessage(req.Message)

	d.sendTo(room.OpponentSession(player.ID), model.EventChat, model.ChatBroadcast{
		PlayerID:   player.ID,
		PlayerName: player.DisplayName,
		Message:    message,
	})
}

// truncateMessage caps a chat message at MaxChatLength characters without
// splitting a multi-byte rune.
func truncateMessage(msg string) string {
	n := 0
	for i := range msg {
		if n == model.MaxChatLength {
			return msg[:i]
		}
		n++
	}
	return msg
}

// handleDisconnect runs the full teardown for a closed session: queue
// removal, room departure, then identity garbage collection.
func (d *Dispatcher) handleDisconnect(sender Sender) {
	d.state.RemoveFromQueue(sender.ID())

	player := d.state.Player(sender.ID())
	if player != nil {
		if room := d.state.Room(player.CurrentRoom); room != nil {
			d.leaveRoom(player, room)
		}
		d.state.RemovePlayer(sender.ID())
		d.logger.Info("player disconnected",
			slog.String("player", string(player.ID)),
			slog.String("session", string(sender.ID())),
		)
	}
}

// relayToOpponent forwards the payload unchanged to the other room occupant
func (d *Dispatcher) relayToOpponent(sender Sender, t model.EventType, payload json.RawMessage) {
	player, room := d.roomMember(sender)
	if player == nil {
		return
	}
	d.sendRawTo(room.OpponentSession(player.ID), t, payload)
}

// relayToRoom forwards the payload unchanged to every room occupant,
// including the sender, for symmetry of UI state.
func (d *Dispatcher) relayToRoom(sender Sender, t model.EventType, payload json.RawMessage) {
	player, room := d.roomMember(sender)
	if player == nil {
		return
	}
	for _, session := range room.Sessions() {
		d.sendRawTo(session, t, payload)
	}
}

func (d *Dispatcher) broadcast(room *model.GameRoom, t model.EventType, payload any) {
	for _, session := range room.Sessions() {
		d.sendTo(session, t, payload)
	}
}

func (d *Dispatcher) send(sender Sender, t model.EventType, payload any) {
	env, err := model.NewEnvelope(t, payload)
	if err != nil {
		d.logger.Error("failed to encode event", slog.String("type", string(t)), slog.String("error", err.Error()))
		return
	}
	sender.Send(env)
}

func (d *Dispatcher) sendTo(session model.SessionID, t model.EventType, payload any) {
	if session == "" {
		return
	}
	sender := d.lookupSender(session)
	if sender == nil {
		return
	}
	d.send(sender, t, payload)
}

func (d *Dispatcher) sendRawTo(session model.SessionID, t model.EventType, payload json.RawMessage) {
	if session == "" {
		return
	}
	sender := d.lookupSender(session)
	if sender == nil {
		return
	}
	sender.Send(model.Envelope{Type: t, Payload: payload})
}

func (d *Dispatcher) lookupSender(session model.SessionID) Sender {
	return d.senders[session]
}

func (d *Dispatcher) sendError(sender Sender, t model.EventType, message string) {
	d.send(sender, t, model.ErrorPayload{Message: message})
}

func ptr[T any](v T) *T {
	return &v
}
