package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/pongrelay/internal/model"
	"github.com/mcoot/pongrelay/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	profiles map[model.PlayerID]*model.Profile
	results  []*model.MatchResult // newest first
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		profiles: make(map[model.PlayerID]*model.Profile),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Profile operations

func (s *Storage) SaveProfile(ctx context.Context, profile *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *profile
	s.profiles[profile.PlayerID] = &copied
	return nil
}

func (s *Storage) GetProfile(ctx context.Context, id model.PlayerID) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	copied := *profile
	return &copied, nil
}

func (s *Storage) DeleteProfile(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, id)
	return nil
}

// Match result operations

func (s *Storage) RecordResult(ctx context.Context, result *model.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *result
	s.results = append([]*model.MatchResult{&copied}, s.results...)
	return nil
}

func (s *Storage) RecentResults(ctx context.Context, limit int) ([]*model.MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.results) {
		limit = len(s.results)
	}
	out := make([]*model.MatchResult, 0, limit)
	for _, r := range s.results[:limit] {
		copied := *r
		out = append(out, &copied)
	}
	return out, nil
}

func (s *Storage) TopProfiles(ctx context.Context, limit int) ([]*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*model.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		copied := *p
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Wins != all[j].Wins {
			return all[i].Wins > all[j].Wins
		}
		return all[i].PlayerID < all[j].PlayerID
	})
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
