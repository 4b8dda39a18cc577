package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/pongrelay/internal/model"
	"github.com/mcoot/pongrelay/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Profile operations

func (s *Storage) SaveProfile(ctx context.Context, profile *model.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, profileKey(profile.PlayerID), data, s.cfg.ProfileTTL)
	pipe.ZAdd(ctx, winsIndexKey(), redis.Z{
		Score:  float64(profile.Wins),
		Member: string(profile.PlayerID),
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetProfile(ctx context.Context, id model.PlayerID) (*model.Profile, error) {
	data, err := s.client.Get(ctx, profileKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrProfileNotFound
		}
		return nil, err
	}

	var profile model.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Storage) DeleteProfile(ctx context.Context, id model.PlayerID) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, profileKey(id))
	pipe.ZRem(ctx, winsIndexKey(), string(id))
	_, err := pipe.Exec(ctx)
	return err
}

// Match result operations

func (s *Storage) RecordResult(ctx context.Context, result *model.MatchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, resultsKey(), data)
	if s.cfg.ResultHistory > 0 {
		pipe.LTrim(ctx, resultsKey(), 0, int64(s.cfg.ResultHistory-1))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) RecentResults(ctx context.Context, limit int) ([]*model.MatchResult, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	raw, err := s.client.LRange(ctx, resultsKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	results := make([]*model.MatchResult, 0, len(raw))
	for _, item := range raw {
		var result model.MatchResult
		if err := json.Unmarshal([]byte(item), &result); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}
	return results, nil
}

func (s *Storage) TopProfiles(ctx context.Context, limit int) ([]*model.Profile, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := s.client.ZRevRange(ctx, winsIndexKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	profiles := make([]*model.Profile, 0, len(ids))
	for _, id := range ids {
		profile, err := s.GetProfile(ctx, model.PlayerID(id))
		if err != nil {
			// Profile expired but index entry remains; skip it
			if errors.Is(err, model.ErrProfileNotFound) {
				continue
			}
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}
