package storage

import (
	"context"

	"github.com/mcoot/pongrelay/internal/model"
)

// Storage defines the interface for data persistence. Only durable data lives
// here: player profiles and match results. Live rooms and sessions are owned
// by the relay dispatcher and die with the process.
type Storage interface {
	// Profile operations
	SaveProfile(ctx context.Context, profile *model.Profile) error
	GetProfile(ctx context.Context, id model.PlayerID) (*model.Profile, error)
	DeleteProfile(ctx context.Context, id model.PlayerID) error

	// Match result operations
	RecordResult(ctx context.Context, result *model.MatchResult) error
	RecentResults(ctx context.Context, limit int) ([]*model.MatchResult, error)

	// TopProfiles returns profiles ordered by wins, descending
	TopProfiles(ctx context.Context, limit int) ([]*model.Profile, error)
}
