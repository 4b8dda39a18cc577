package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pongrelay/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.ProfileTTL = time.Hour
	cfg.ResultHistory = 3

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) profile(id string, wins int) *model.Profile {
	return &model.Profile{
		PlayerID:    model.PlayerID(id),
		DisplayName: id,
		Wins:        wins,
		CreatedAt:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *StorageSuite) TestSaveAndGetProfile() {
	profile := s.profile("player-1", 2)
	profile.DisplayName = "Alice"

	err := s.storage.SaveProfile(s.ctx, profile)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetProfile(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("Alice", retrieved.DisplayName)
	s.Equal(2, retrieved.Wins)
}

func (s *StorageSuite) TestProfileTTLApplied() {
	_ = s.storage.SaveProfile(s.ctx, s.profile("player-1", 0))

	s.mini.FastForward(2 * time.Hour)

	_, err := s.storage.GetProfile(s.ctx, "player-1")
	s.ErrorIs(err, model.ErrProfileNotFound)
}

func (s *StorageSuite) TestGetProfileNotFound() {
	_, err := s.storage.GetProfile(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrProfileNotFound)
}

func (s *StorageSuite) TestDeleteProfileRemovesIndexEntry() {
	_ = s.storage.SaveProfile(s.ctx, s.profile("player-1", 5))

	err := s.storage.DeleteProfile(s.ctx, "player-1")
	s.Require().NoError(err)

	top, err := s.storage.TopProfiles(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(top)
}

func (s *StorageSuite) TestRecordAndRecentResults() {
	_ = s.storage.RecordResult(s.ctx, &model.MatchResult{RoomCode: "AAA111", Winner: "a"})
	_ = s.storage.RecordResult(s.ctx, &model.MatchResult{RoomCode: "BBB222", Winner: "b"})

	results, err := s.storage.RecentResults(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(results, 2)
	s.Equal(model.RoomCode("BBB222"), results[0].RoomCode, "newest first")
}

func (s *StorageSuite) TestResultHistoryTrimmed() {
	for _, code := range []model.RoomCode{"AAA111", "BBB222", "CCC333", "DDD444"} {
		_ = s.storage.RecordResult(s.ctx, &model.MatchResult{RoomCode: code})
	}

	results, err := s.storage.RecentResults(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(results, 3, "history capped at ResultHistory")
	s.Equal(model.RoomCode("DDD444"), results[0].RoomCode)
}

func (s *StorageSuite) TestTopProfilesOrderedByWins() {
	_ = s.storage.SaveProfile(s.ctx, s.profile("low", 1))
	_ = s.storage.SaveProfile(s.ctx, s.profile("high", 10))
	_ = s.storage.SaveProfile(s.ctx, s.profile("mid", 5))

	top, err := s.storage.TopProfiles(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal(model.PlayerID("high"), top[0].PlayerID)
	s.Equal(model.PlayerID("mid"), top[1].PlayerID)
}

func (s *StorageSuite) TestTopProfilesSkipsExpiredProfiles() {
	_ = s.storage.SaveProfile(s.ctx, s.profile("keep", 1))
	_ = s.storage.SaveProfile(s.ctx, s.profile("expire", 9))

	// Expire only one of the profile values, leaving its index entry behind
	s.mini.SetTTL(profileKey("expire"), time.Minute)
	s.mini.FastForward(2 * time.Minute)

	top, err := s.storage.TopProfiles(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(top, 1)
	s.Equal(model.PlayerID("keep"), top[0].PlayerID)
}
