package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type RoomSuite struct {
	suite.Suite
	now  time.Time
	room *GameRoom
}

func TestRoomSuite(t *testing.T) {
	suite.Run(t, new(RoomSuite))
}

func (s *RoomSuite) SetupTest() {
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.room = NewGameRoom("ABC123", RoomSettings{PointsToWin: 3, GameMode: GameModeClassic}, s.now)
}

func (s *RoomSuite) player(id string, session string) *Player {
	return &Player{
		ID:          PlayerID(id),
		SessionID:   SessionID(session),
		DisplayName: id,
	}
}

func (s *RoomSuite) TestNewRoomIsWaiting() {
	s.Equal(RoomStateWaiting, s.room.State)
	s.True(s.room.IsEmpty())
	s.False(s.room.IsFull())
}

func (s *RoomSuite) TestSettingsNormalized() {
	room := NewGameRoom("XY2345", RoomSettings{}, s.now)
	s.Equal(11, room.Settings.PointsToWin)
	s.Equal(GameModeClassic, room.Settings.GameMode)
}

func (s *RoomSuite) TestAddPlayerOccupiesSlot() {
	s.True(s.room.AddPlayer(s.player("a", "sess-a"), 1))
	s.True(s.room.AddPlayer(s.player("b", "sess-b"), 2))
	s.True(s.room.IsFull())
	s.Equal(1, s.room.SlotOf("a"))
	s.Equal(2, s.room.SlotOf("b"))
}

func (s *RoomSuite) TestAddPlayerRejectsOccupiedSlot() {
	s.True(s.room.AddPlayer(s.player("a", "sess-a"), 1))
	s.False(s.room.AddPlayer(s.player("b", "sess-b"), 1))
	s.Equal(PlayerID("a"), s.room.Slots[1].PlayerID)
}

func (s *RoomSuite) TestAddPlayerRejectsInvalidSlot() {
	s.False(s.room.AddPlayer(s.player("a", "sess-a"), 0))
	s.False(s.room.AddPlayer(s.player("a", "sess-a"), 3))
	s.True(s.room.IsEmpty())
}

func (s *RoomSuite) TestAllPlayersReadyNeedsBothSlotsReady() {
	s.room.AddPlayer(s.player("a", "sess-a"), 1)
	s.False(s.room.AllPlayersReady())

	s.room.SetPlayerReady("a", true)
	s.False(s.room.AllPlayersReady())

	s.room.AddPlayer(s.player("b", "sess-b"), 2)
	s.False(s.room.AllPlayersReady())

	s.room.SetPlayerReady("b", true)
	s.True(s.room.AllPlayersReady())
}

func (s *RoomSuite) TestSetPlayerReadyUnknownPlayerIsNoOp() {
	s.room.AddPlayer(s.player("a", "sess-a"), 1)
	s.room.SetPlayerReady("ghost", true)
	s.False(s.room.Slots[1].IsReady)
}

func (s *RoomSuite) TestStartGameResetsScore() {
	s.room.Score = Score{Player1: 5, Player2: 2}
	s.room.StartGame(s.now)
	s.Equal(RoomStatePlaying, s.room.State)
	s.Equal(Score{}, s.room.Score)
	s.Equal(s.now, s.room.GameStartTime)
}

func (s *RoomSuite) TestUpdateScoreFinishesAtPointsToWin() {
	s.room.StartGame(s.now)

	score := s.room.UpdateScore(1, 1)
	s.Equal(Score{Player1: 1}, score)
	s.Equal(RoomStatePlaying, s.room.State)

	s.room.UpdateScore(1, 1)
	s.room.UpdateScore(1, 1)
	s.Equal(RoomStateFinished, s.room.State)
}

func (s *RoomSuite) TestUpdateScoreInvalidSlotIsNoOp() {
	s.room.StartGame(s.now)
	s.room.UpdateScore(3, 1)
	s.Equal(Score{}, s.room.Score)
}

func (s *RoomSuite) TestRemovePlayerDuringPlayFinishesMatch() {
	s.room.AddPlayer(s.player("a", "sess-a"), 1)
	s.room.AddPlayer(s.player("b", "sess-b"), 2)
	s.room.StartGame(s.now)

	s.room.RemovePlayer("b")

	s.Equal(RoomStateFinished, s.room.State)
	s.Nil(s.room.Slots[2])
	s.False(s.room.IsEmpty())
}

func (s *RoomSuite) TestRemovePlayerWhileWaitingStaysWaiting() {
	s.room.AddPlayer(s.player("a", "sess-a"), 1)
	s.room.RemovePlayer("a")
	s.Equal(RoomStateWaiting, s.room.State)
	s.True(s.room.IsEmpty())
}

func (s *RoomSuite) TestGetOpponentInfo() {
	s.room.AddPlayer(s.player("a", "sess-a"), 1)
	s.room.AddPlayer(s.player("b", "sess-b"), 2)

	opp := s.room.GetOpponentInfo("a")
	s.Require().NotNil(opp)
	s.Equal(PlayerID("b"), opp.ID)

	s.room.RemovePlayer("b")
	s.Nil(s.room.GetOpponentInfo("a"))
}

func (s *RoomSuite) TestRecordRallyTracksLongest() {
	s.room.RecordRally(3)
	s.room.RecordRally(9)
	s.room.RecordRally(5)
	s.Equal(9, s.room.Stats.LongestRally)
	s.Equal(3, s.room.Stats.TotalRallies)
}

func (s *RoomSuite) TestStatusSnapshot() {
	s.room.AddPlayer(s.player("a", "sess-a"), 1)
	s.room.SetPlayerReady("a", true)
	s.room.StartGame(s.now)

	status := s.room.Status(s.now.Add(30 * time.Second))

	s.Equal(RoomCode("ABC123"), status.RoomCode)
	s.Equal(RoomStatePlaying, status.State)
	s.Require().NotNil(status.Players[1])
	s.True(status.Players[1].IsReady)
	s.Nil(status.Players[2])
	s.Equal(30*time.Second, status.GameTime)
}
