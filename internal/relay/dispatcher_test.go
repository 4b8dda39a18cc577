package relay

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pongrelay/internal/dependencies/mocks"
	"github.com/mcoot/pongrelay/internal/model"
	"github.com/mcoot/pongrelay/internal/services/leaderboard"
	"github.com/mcoot/pongrelay/internal/storage"
	"github.com/mcoot/pongrelay/internal/storage/memory"
	"github.com/mcoot/pongrelay/internal/testutil"
)

// stubSender records everything the dispatcher sends to a session
type stubSender struct {
	id     model.SessionID
	events []model.Envelope
}

func (s *stubSender) ID() model.SessionID {
	return s.id
}

func (s *stubSender) Send(env model.Envelope) {
	s.events = append(s.events, env)
}

func (s *stubSender) eventsOfType(t model.EventType) []model.Envelope {
	var out []model.Envelope
	for _, env := range s.events {
		if env.Type == t {
			out = append(out, env)
		}
	}
	return out
}

type DispatcherSuite struct {
	suite.Suite
	state      *State
	storage    *memory.Storage
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	dispatcher *Dispatcher
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.state = NewState()
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	lb := leaderboard.New(s.storage, s.clock, logger)
	s.dispatcher = NewDispatcher(s.state, lb, s.clock, s.random, logger)
}

// deliver runs one event through the dispatch routine synchronously and
// drains any storage writes it spawned
func (s *DispatcherSuite) deliver(sender *stubSender, t model.EventType, payload any) {
	env, err := model.NewEnvelope(t, payload)
	s.Require().NoError(err)
	s.dispatcher.process(inbound{sender: sender, env: env})
	s.dispatcher.writes.Wait()
}

func (s *DispatcherSuite) disconnect(sender *stubSender) {
	s.dispatcher.process(inbound{sender: sender, disconnect: true})
	s.dispatcher.writes.Wait()
}

// register creates a session and registers an identity on it
func (s *DispatcherSuite) register(session, player, name string) *stubSender {
	sender := &stubSender{id: model.SessionID(session)}
	s.deliver(sender, model.EventRegister, model.RegisterPayload{
		PlayerID:   model.PlayerID(player),
		PlayerName: name,
	})
	return sender
}

// pair creates a room with host a and guest b, returning both senders
func (s *DispatcherSuite) pair(code string) (host, guest *stubSender) {
	host = s.register("sess-a", "alice", "Alice")
	guest = s.register("sess-b", "bob", "Bob")
	s.random.QueueString(code)
	s.deliver(host, model.EventCreateRoom, model.CreateRoomPayload{PlayerID: "alice"})
	s.deliver(guest, model.EventJoinRoom, model.JoinRoomPayload{PlayerID: "bob", RoomCode: code})
	return host, guest
}

func (s *DispatcherSuite) decode(env model.Envelope, target any) {
	s.Require().NoError(json.Unmarshal(env.Payload, target))
}

// Registration

func (s *DispatcherSuite) TestRegisterBindsSessionAndTouchesProfile() {
	s.register("sess-a", "alice", "Alice")

	player := s.state.Player("sess-a")
	s.Require().NotNil(player)
	s.Equal(model.PlayerID("alice"), player.ID)
	s.Equal("Alice", player.DisplayName)

	profile, err := s.storage.GetProfile(context.Background(), "alice")
	s.Require().NoError(err)
	s.Equal("Alice", profile.DisplayName)
}

func (s *DispatcherSuite) TestRegisterDefaultsIdentityToSession() {
	sender := &stubSender{id: "sess-x"}
	s.deliver(sender, model.EventRegister, model.RegisterPayload{})

	player := s.state.Player("sess-x")
	s.Require().NotNil(player)
	s.Equal(model.PlayerID("sess-x"), player.ID)
	s.Equal("Player", player.DisplayName)
}

// Room creation

func (s *DispatcherSuite) TestCreateRoomRequiresRegistration() {
	sender := &stubSender{id: "sess-ghost"}
	s.deliver(sender, model.EventCreateRoom, model.CreateRoomPayload{})

	errs := sender.eventsOfType(model.EventRoomError)
	s.Require().Len(errs, 1)
	var payload model.ErrorPayload
	s.decode(errs[0], &payload)
	s.Equal("Player not registered", payload.Message)
}

func (s *DispatcherSuite) TestCreateRoomAssignsHostSlot() {
	sender := s.register("sess-a", "alice", "Alice")
	s.random.QueueString("ABC123")

	s.deliver(sender, model.EventCreateRoom, model.CreateRoomPayload{
		PlayerID: "alice",
		Settings: model.RoomSettings{PointsToWin: 5},
	})

	created := sender.eventsOfType(model.EventRoomCreated)
	s.Require().Len(created, 1)
	var assignment model.RoomAssignment
	s.decode(created[0], &assignment)
	s.Equal(model.RoomCode("ABC123"), assignment.RoomCode)
	s.Equal(1, assignment.PlayerNumber)
	s.True(assignment.IsHost)

	room := s.state.Room("ABC123")
	s.Require().NotNil(room)
	s.Equal(5, room.Settings.PointsToWin)
	s.Equal(model.RoomCode("ABC123"), s.state.Player("sess-a").CurrentRoom)
}

func (s *DispatcherSuite) TestRoomCodesUniqueAmongLiveRooms() {
	a := s.register("sess-a", "alice", "Alice")
	b := s.register("sess-b", "bob", "Bob")

	// The second creation draws a colliding code first and must retry
	s.random.QueueString("AAAA22", "AAAA22", "BBBB33")
	s.deliver(a, model.EventCreateRoom, model.CreateRoomPayload{PlayerID: "alice"})
	s.deliver(b, model.EventCreateRoom, model.CreateRoomPayload{PlayerID: "bob"})

	s.NotNil(s.state.Room("AAAA22"))
	s.NotNil(s.state.Room("BBBB33"))
	s.Equal(2, s.state.Counts().Rooms)
}

// Joining

func (s *DispatcherSuite) TestJoinRoomUppercasesCode() {
	host, guest := s.register("sess-a", "alice", "Alice"), s.register("sess-b", "bob", "Bob")
	s.random.QueueString("ABC123")
	s.deliver(host, model.EventCreateRoom, model.CreateRoomPayload{PlayerID: "alice"})

	s.deliver(guest, model.EventJoinRoom, model.JoinRoomPayload{PlayerID: "bob", RoomCode: "abc123"})

	joined := guest.eventsOfType(model.EventRoomJoined)
	s.Require().Len(joined, 1)
	var assignment model.RoomAssignment
	s.decode(joined[0], &assignment)
	s.Equal(model.RoomCode("ABC123"), assignment.RoomCode)
	s.Equal(2, assignment.PlayerNumber)
	s.False(assignment.IsHost)
	s.Require().NotNil(assignment.Opponent)
	s.Equal("Alice", assignment.Opponent.Name)
}

func (s *DispatcherSuite) TestJoinNotifiesExistingOccupant() {
	host, _ := s.pair("ABC123")

	joined := host.eventsOfType(model.EventOpponentJoined)
	s.Require().Len(joined, 1)
	var payload model.OpponentJoinedPayload
	s.decode(joined[0], &payload)
	s.Equal("Bob", payload.Opponent.Name)
}

func (s *DispatcherSuite) TestJoinRoomNotFound() {
	guest := s.register("sess-b", "bob", "Bob")
	s.deliver(guest, model.EventJoinRoom, model.JoinRoomPayload{PlayerID: "bob", RoomCode: "ZZZZ99"})

	errs := guest.eventsOfType(model.EventRoomError)
	s.Require().Len(errs, 1)
	var payload model.ErrorPayload
	s.decode(errs[0], &payload)
	s.Equal("Room not found", payload.Message)
}

func (s *DispatcherSuite) TestJoinRoomFull() {
	s.pair("ABC123")
	third := s.register("sess-c", "carol", "Carol")

	s.deliver(third, model.EventJoinRoom, model.JoinRoomPayload{PlayerID: "carol", RoomCode: "ABC123"})

	errs := third.eventsOfType(model.EventRoomError)
	s.Require().Len(errs, 1)
	var payload model.ErrorPayload
	s.decode(errs[0], &payload)
	s.Equal("Room is full", payload.Message)
}

// Matchmaking

func (s *DispatcherSuite) TestQuickMatchQueuesFirstRequester() {
	a := s.register("sess-a", "alice", "Alice")
	s.deliver(a, model.EventQuickMatch, model.QuickMatchPayload{PlayerID: "alice"})

	waiting := a.eventsOfType(model.EventMatchmaking)
	s.Require().Len(waiting, 1)
	var payload model.MatchmakingStatusPayload
	s.decode(waiting[0], &payload)
	s.Equal("waiting", payload.Status)
	s.Equal(1, payload.Position)
	s.Equal(1, s.state.Counts().MatchmakingQueue)
}

func (s *DispatcherSuite) TestQuickMatchPairsFIFO() {
	a := s.register("sess-a", "alice", "Alice")
	b := s.register("sess-b", "bob", "Bob")
	c := s.register("sess-c", "carol", "Carol")

	s.random.QueueString("MATCH2")
	s.deliver(a, model.EventQuickMatch, model.QuickMatchPayload{PlayerID: "alice"})
	s.deliver(b, model.EventQuickMatch, model.QuickMatchPayload{PlayerID: "bob"})
	s.deliver(c, model.EventQuickMatch, model.QuickMatchPayload{PlayerID: "carol"})

	// A and B are paired; the earlier-waiting player is host
	aFound := a.eventsOfType(model.EventMatchFound)
	bFound := b.eventsOfType(model.EventMatchFound)
	s.Require().Len(aFound, 1)
	s.Require().Len(bFound, 1)

	var aAssign, bAssign model.RoomAssignment
	s.decode(aFound[0], &aAssign)
	s.decode(bFound[0], &bAssign)
	s.Equal(1, aAssign.PlayerNumber)
	s.True(aAssign.IsHost)
	s.Equal(2, bAssign.PlayerNumber)
	s.False(bAssign.IsHost)
	s.Equal(aAssign.RoomCode, bAssign.RoomCode)
	s.Equal("Bob", aAssign.Opponent.Name)
	s.Equal("Alice", bAssign.Opponent.Name)

	// C is left waiting
	s.Empty(c.eventsOfType(model.EventMatchFound))
	s.Equal(1, s.state.Counts().MatchmakingQueue)
}

func (s *DispatcherSuite) TestQuickMatchDoesNotPairWithSelf() {
	a := s.register("sess-a", "alice", "Alice")
	s.deliver(a, model.EventQuickMatch, model.QuickMatchPayload{PlayerID: "alice"})
	s.deliver(a, model.EventQuickMatch, model.QuickMatchPayload{PlayerID: "alice"})

	s.Empty(a.eventsOfType(model.EventMatchFound))
	s.Equal(1, s.state.Counts().MatchmakingQueue)
}

// Readiness and game start

func (s *DispatcherSuite) TestBothReadyStartsGame() {
	host, guest := s.pair("ABC123")

	s.deliver(host, model.EventPlayerReady, model.PlayerReadyPayload{RoomCode: "ABC123", PlayerID: "alice"})
	s.Empty(host.eventsOfType(model.EventGameStart))
	s.Empty(guest.eventsOfType(model.EventGameStart))

	s.deliver(guest, model.EventPlayerReady, model.PlayerReadyPayload{RoomCode: "ABC123", PlayerID: "bob"})

	for _, sender := range []*stubSender{host, guest} {
		starts := sender.eventsOfType(model.EventGameStart)
		s.Require().Len(starts, 1)
		var payload model.GameStartPayload
		s.decode(starts[0], &payload)
		s.Equal(3, payload.Countdown)
	}
	s.Equal(model.RoomStatePlaying, s.state.Room("ABC123").State)
}

func (s *DispatcherSuite) TestRequestStartNeedsFullRoom() {
	host := s.register("sess-a", "alice", "Alice")
	s.random.QueueString("ABC123")
	s.deliver(host, model.EventCreateRoom, model.CreateRoomPayload{PlayerID: "alice"})

	s.deliver(host, model.EventRequestStart, model.RequestStartPayload{RoomCode: "ABC123", PlayerID: "alice"})

	errs := host.eventsOfType(model.EventRoomError)
	s.Require().Len(errs, 1)
	var payload model.ErrorPayload
	s.decode(errs[0], &payload)
	s.Equal("Need 2 players to start", payload.Message)
}

// Relay semantics

func (s *DispatcherSuite) TestPaddleUpdateRelayedToPeerOnly() {
	host, guest := s.pair("ABC123")

	s.deliver(host, model.EventPaddleUpdate, model.PaddleUpdatePayload{
		RoomCode: "ABC123", PlayerNumber: 1, Y: 120, Velocity: -80, Timestamp: 1000,
	})

	updates := guest.eventsOfType(model.EventPaddleUpdate)
	s.Require().Len(updates, 1)
	var payload model.PaddleUpdatePayload
	s.decode(updates[0], &payload)
	s.Equal(1, payload.PlayerNumber)
	s.Equal(120.0, payload.Y)

	s.Empty(host.eventsOfType(model.EventPaddleUpdate), "sender excluded")
}

func (s *DispatcherSuite) TestGameStateForwardedVerbatimToPeer() {
	host, guest := s.pair("ABC123")

	state := json.RawMessage(`{"ball":{"x":400,"y":300,"vx":200,"vy":-50,"speed":400,"radius":10},"score":{"player1":1,"player2":0},"hostPaddle":{"y":250},"hostPlayerNumber":1,"powerUps":[]}`)
	s.deliver(host, model.EventGameState, model.GameStatePayload{
		RoomCode: "ABC123", State: state, Timestamp: 1000,
	})

	forwarded := guest.eventsOfType(model.EventGameState)
	s.Require().Len(forwarded, 1)
	s.JSONEq(string(state), string(forwarded[0].Payload))
	s.Empty(host.eventsOfType(model.EventGameState))
}

func (s *DispatcherSuite) TestGameStateWithoutRoomSilentlyIgnored() {
	loner := s.register("sess-x", "xavier", "Xavier")

	s.deliver(loner, model.EventGameState, model.GameStatePayload{RoomCode: "ABC123"})

	s.Empty(loner.eventsOfType(model.EventRoomError), "membership failures are silent")
}

func (s *DispatcherSuite) TestScoreUpdateBroadcastToWholeRoom() {
	host, guest := s.pair("ABC123")

	s.deliver(host, model.EventScoreUpdate, model.ScoreUpdatePayload{
		RoomCode: "ABC123", Score: model.Score{Player1: 1},
	})

	s.Len(host.eventsOfType(model.EventScoreUpdate), 1, "sender included for UI symmetry")
	s.Len(guest.eventsOfType(model.EventScoreUpdate), 1)
}

func (s *DispatcherSuite) TestChatTruncatedAndRelayedToPeer() {
	host, guest := s.pair("ABC123")

	long := ""
	for i := 0; i < 30; i++ {
		long += "0123456789"
	}
	s.deliver(host, model.EventChat, model.ChatPayload{
		RoomCode: "ABC123", PlayerID: "alice", Message: long,
	})

	msgs := guest.eventsOfType(model.EventChat)
	s.Require().Len(msgs, 1)
	var payload model.ChatBroadcast
	s.decode(msgs[0], &payload)
	s.Len(payload.Message, model.MaxChatLength)
	s.Equal("Alice", payload.PlayerName)
	s.Empty(host.eventsOfType(model.EventChat))
}

func (s *DispatcherSuite) TestChatTruncationKeepsRunesIntact() {
	host, guest := s.pair("ABC123")

	s.deliver(host, model.EventChat, model.ChatPayload{
		RoomCode: "ABC123", PlayerID: "alice", Message: strings.Repeat("é", 300),
	})

	msgs := guest.eventsOfType(model.EventChat)
	s.Require().Len(msgs, 1)
	var payload model.ChatBroadcast
	s.decode(msgs[0], &payload)
	s.True(utf8.ValidString(payload.Message))
	s.Equal(strings.Repeat("é", model.MaxChatLength), payload.Message)
}

func (s *DispatcherSuite) TestGameOverBroadcastAndRecorded() {
	host, guest := s.pair("ABC123")
	s.deliver(host, model.EventPlayerReady, model.PlayerReadyPayload{RoomCode: "ABC123", PlayerID: "alice"})
	s.deliver(guest, model.EventPlayerReady, model.PlayerReadyPayload{RoomCode: "ABC123", PlayerID: "bob"})

	s.deliver(host, model.EventGameOver, model.GameOverPayload{
		RoomCode: "ABC123",
		Winner:   2,
		Score:    model.Score{Player1: 7, Player2: 11},
		Stats:    model.MatchStats{LongestRally: 12, TotalRallies: 40},
	})

	s.Len(host.eventsOfType(model.EventGameOver), 1)
	s.Len(guest.eventsOfType(model.EventGameOver), 1)
	s.Equal(model.RoomStateFinished, s.state.Room("ABC123").State)

	winner, err := s.storage.GetProfile(context.Background(), "bob")
	s.Require().NoError(err)
	s.Equal(1, winner.Wins)
	loser, err := s.storage.GetProfile(context.Background(), "alice")
	s.Require().NoError(err)
	s.Equal(1, loser.Losses)
}

// slowStorage holds every match write until release is closed
type slowStorage struct {
	storage.Storage
	release chan struct{}
}

func (s *slowStorage) RecordResult(ctx context.Context, result *model.MatchResult) error {
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.Storage.RecordResult(ctx, result)
}

func (s *DispatcherSuite) TestSlowStorageDoesNotStallDispatch() {
	release := make(chan struct{})
	slow := &slowStorage{Storage: s.storage, release: release}
	s.dispatcher = NewDispatcher(
		s.state,
		leaderboard.New(slow, s.clock, testutil.NopLogger()),
		s.clock, s.random, testutil.NopLogger(),
	)

	host, guest := s.pair("ABC123")
	s.deliver(host, model.EventPlayerReady, model.PlayerReadyPayload{RoomCode: "ABC123", PlayerID: "alice"})
	s.deliver(guest, model.EventPlayerReady, model.PlayerReadyPayload{RoomCode: "ABC123", PlayerID: "bob"})

	env, err := model.NewEnvelope(model.EventGameOver, model.GameOverPayload{
		RoomCode: "ABC123",
		Winner:   2,
		Score:    model.Score{Player1: 3, Player2: 11},
	})
	s.Require().NoError(err)
	s.dispatcher.process(inbound{sender: host, env: env})

	// The result reached the room while the storage write is still in flight
	s.Len(guest.eventsOfType(model.EventGameOver), 1)
	s.Equal(model.RoomStateFinished, s.state.Room("ABC123").State)

	close(release)
	s.dispatcher.writes.Wait()

	winner, err := s.storage.GetProfile(context.Background(), "bob")
	s.Require().NoError(err)
	s.Equal(1, winner.Wins)
}

// Latency probe

func (s *DispatcherSuite) TestPingEchoedVerbatim() {
	sender := &stubSender{id: "sess-a"}

	stamp := json.RawMessage(`1712345678901`)
	s.dispatcher.process(inbound{sender: sender, env: model.Envelope{Type: model.EventPing, Payload: stamp}})

	pongs := sender.eventsOfType(model.EventPong)
	s.Require().Len(pongs, 1)
	s.Equal(string(stamp), string(pongs[0].Payload), "no server clock may touch the echo")
}

// Leaving and disconnects

func (s *DispatcherSuite) TestLeaveRoomNotifiesAndDeletesWhenEmpty() {
	host, guest := s.pair("ABC123")

	s.deliver(guest, model.EventLeaveRoom, model.LeaveRoomPayload{RoomCode: "ABC123"})
	s.Require().Len(host.eventsOfType(model.EventOpponentLeft), 1)
	s.NotNil(s.state.Room("ABC123"), "room kept while one occupant remains")

	s.deliver(host, model.EventLeaveRoom, model.LeaveRoomPayload{RoomCode: "ABC123"})
	s.Nil(s.state.Room("ABC123"))
	s.Equal(0, s.state.Counts().Rooms)
}

func (s *DispatcherSuite) TestLeaveRoomIsIdempotent() {
	_, guest := s.pair("ABC123")

	s.deliver(guest, model.EventLeaveRoom, model.LeaveRoomPayload{RoomCode: "ABC123"})
	s.deliver(guest, model.EventLeaveRoom, model.LeaveRoomPayload{RoomCode: "ABC123"})

	s.Empty(guest.eventsOfType(model.EventRoomError))
}

func (s *DispatcherSuite) TestDisconnectDuringPlayEndsMatch() {
	host, guest := s.pair("ABC123")
	s.deliver(host, model.EventPlayerReady, model.PlayerReadyPayload{RoomCode: "ABC123", PlayerID: "alice"})
	s.deliver(guest, model.EventPlayerReady, model.PlayerReadyPayload{RoomCode: "ABC123", PlayerID: "bob"})

	room := s.state.Room("ABC123")
	s.Require().Equal(model.RoomStatePlaying, room.State)

	s.disconnect(guest)

	s.Equal(model.RoomStateFinished, room.State)
	s.Require().Len(host.eventsOfType(model.EventOpponentLeft), 1)
	s.Nil(s.state.Player("sess-b"))
}

func (s *DispatcherSuite) TestDisconnectRemovesFromQueue() {
	a := s.register("sess-a", "alice", "Alice")
	s.deliver(a, model.EventQuickMatch, model.QuickMatchPayload{PlayerID: "alice"})
	s.Require().Equal(1, s.state.Counts().MatchmakingQueue)

	s.disconnect(a)
	s.Equal(0, s.state.Counts().MatchmakingQueue)

	// A later quick-matcher must not be paired with the departed session
	b := s.register("sess-b", "bob", "Bob")
	s.deliver(b, model.EventQuickMatch, model.QuickMatchPayload{PlayerID: "bob"})
	s.Empty(b.eventsOfType(model.EventMatchFound))
}

func (s *DispatcherSuite) TestCountsTrackLiveState() {
	s.Equal(Counts{}, s.dispatcher.Counts())

	s.pair("ABC123")
	counts := s.dispatcher.Counts()
	s.Equal(1, counts.Rooms)
	s.Equal(2, counts.Players)
	s.Equal(0, counts.MatchmakingQueue)
}
