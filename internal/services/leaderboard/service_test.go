package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pongrelay/internal/dependencies/mocks"
	"github.com/mcoot/pongrelay/internal/model"
	"github.com/mcoot/pongrelay/internal/storage/memory"
	"github.com/mcoot/pongrelay/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.storage, s.clock, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestTouchProfileCreates() {
	err := s.service.TouchProfile(s.ctx, "player-1", "Alice")
	s.Require().NoError(err)

	profile, err := s.storage.GetProfile(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("Alice", profile.DisplayName)
	s.Equal(s.clock.Now(), profile.CreatedAt)
	s.Equal(s.clock.Now(), profile.LastSeen)
	s.Zero(profile.GamesPlayed)
}

func (s *ServiceSuite) TestTouchProfileUpdatesLastSeenAndName() {
	_ = s.service.TouchProfile(s.ctx, "player-1", "Alice")
	created := s.clock.Now()

	s.clock.Advance(time.Hour)
	err := s.service.TouchProfile(s.ctx, "player-1", "Alice2")
	s.Require().NoError(err)

	profile, _ := s.storage.GetProfile(s.ctx, "player-1")
	s.Equal("Alice2", profile.DisplayName)
	s.Equal(created, profile.CreatedAt)
	s.Equal(created.Add(time.Hour), profile.LastSeen)
}

func (s *ServiceSuite) TestTouchProfileKeepsNameWhenBlank() {
	_ = s.service.TouchProfile(s.ctx, "player-1", "Alice")
	_ = s.service.TouchProfile(s.ctx, "player-1", "")

	profile, _ := s.storage.GetProfile(s.ctx, "player-1")
	s.Equal("Alice", profile.DisplayName)
}

func (s *ServiceSuite) TestRecordMatchUpdatesBothPlayers() {
	result := &model.MatchResult{
		RoomCode:   "ABC123",
		GameMode:   model.GameModeClassic,
		Winner:     "alice",
		WinnerName: "Alice",
		Loser:      "bob",
		LoserName:  "Bob",
		Score:      model.Score{Player1: 11, Player2: 7},
	}

	err := s.service.RecordMatch(s.ctx, result)
	s.Require().NoError(err)

	winner, _ := s.storage.GetProfile(s.ctx, "alice")
	s.Equal(1, winner.Wins)
	s.Equal(0, winner.Losses)
	s.Equal(1, winner.GamesPlayed)

	loser, _ := s.storage.GetProfile(s.ctx, "bob")
	s.Equal(0, loser.Wins)
	s.Equal(1, loser.Losses)
	s.Equal(1, loser.GamesPlayed)

	recent, err := s.service.Recent(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(recent, 1)
	s.Equal(s.clock.Now(), recent[0].FinishedAt)
}

func (s *ServiceSuite) TestRecordMatchIgnoresBlankLoser() {
	result := &model.MatchResult{
		RoomCode:   "ABC123",
		Winner:     "alice",
		WinnerName: "Alice",
	}

	err := s.service.RecordMatch(s.ctx, result)
	s.Require().NoError(err)

	winner, _ := s.storage.GetProfile(s.ctx, "alice")
	s.Equal(1, winner.Wins)
}

func (s *ServiceSuite) TestTopOrdersByWins() {
	for i := 0; i < 3; i++ {
		_ = s.service.RecordMatch(s.ctx, &model.MatchResult{
			RoomCode: "AAA111", Winner: "alice", Loser: "bob",
		})
	}
	_ = s.service.RecordMatch(s.ctx, &model.MatchResult{
		RoomCode: "AAA111", Winner: "bob", Loser: "alice",
	})

	top, err := s.service.Top(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal(model.PlayerID("alice"), top[0].PlayerID)
	s.Equal(3, top[0].Wins)
	s.Equal(1, top[0].Losses)
}
