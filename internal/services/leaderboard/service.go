package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/pongrelay/internal/dependencies/clock"
	"github.com/mcoot/pongrelay/internal/model"
	"github.com/mcoot/pongrelay/internal/storage"
)

// Service records finished matches and serves win-ordered standings.
// The relay calls TouchProfile on register and RecordMatch when a room
// finishes with a reported result.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new leaderboard Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger.With(slog.String("component", "leaderboard")),
	}
}

// TouchProfile upserts the profile for a freshly registered identity
func (s *Service) TouchProfile(ctx context.Context, id model.PlayerID, name string) error {
	now := s.clock.Now()

	profile, err := s.storage.GetProfile(ctx, id)
	if errors.Is(err, model.ErrProfileNotFound) {
		profile = &model.Profile{
			PlayerID:  id,
			CreatedAt: now,
		}
	} else if err != nil {
		return fmt.Errorf("loading profile %s: %w", id, err)
	}

	if name != "" {
		profile.DisplayName = name
	}
	profile.LastSeen = now

	return s.storage.SaveProfile(ctx, profile)
}

// RecordMatch persists a finished match and updates both players' standings
func (s *Service) RecordMatch(ctx context.Context, result *model.MatchResult) error {
	result.FinishedAt = s.clock.Now()

	if err := s.storage.RecordResult(ctx, result); err != nil {
		return fmt.Errorf("recording result for room %s: %w", result.RoomCode, err)
	}

	if err := s.bumpStandings(ctx, result.Winner, result.WinnerName, true); err != nil {
		return err
	}
	if err := s.bumpStandings(ctx, result.Loser, result.LoserName, false); err != nil {
		return err
	}

	s.logger.Info("match recorded",
		slog.String("room", string(result.RoomCode)),
		slog.String("winner", string(result.Winner)),
		slog.Int("score_p1", result.Score.Player1),
		slog.Int("score_p2", result.Score.Player2),
	)
	return nil
}

func (s *Service) bumpStandings(ctx context.Context, id model.PlayerID, name string, won bool) error {
	if id == "" {
		return nil
	}

	profile, err := s.storage.GetProfile(ctx, id)
	if errors.Is(err, model.ErrProfileNotFound) {
		profile = &model.Profile{
			PlayerID:  id,
			CreatedAt: s.clock.Now(),
		}
	} else if err != nil {
		return fmt.Errorf("loading profile %s: %w", id, err)
	}

	if name != "" {
		profile.DisplayName = name
	}
	profile.GamesPlayed++
	if won {
		profile.Wins++
	} else {
		profile.Losses++
	}
	profile.LastSeen = s.clock.Now()

	return s.storage.SaveProfile(ctx, profile)
}

// Profile returns a single player's standings
func (s *Service) Profile(ctx context.Context, id model.PlayerID) (*model.Profile, error) {
	return s.storage.GetProfile(ctx, id)
}

// Top returns the highest-ranked profiles by wins
func (s *Service) Top(ctx context.Context, limit int) ([]*model.Profile, error) {
	return s.storage.TopProfiles(ctx, limit)
}

// Recent returns the most recently recorded match results
func (s *Service) Recent(ctx context.Context, limit int) ([]*model.MatchResult, error) {
	return s.storage.RecentResults(ctx, limit)
}
