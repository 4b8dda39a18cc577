package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/mcoot/pongrelay/internal/dependencies/clock"
	"github.com/mcoot/pongrelay/internal/dependencies/random"
	"github.com/mcoot/pongrelay/internal/relay"
	"github.com/mcoot/pongrelay/internal/services/leaderboard"
	"github.com/mcoot/pongrelay/internal/storage"
	"github.com/mcoot/pongrelay/internal/storage/memory"
	redisstorage "github.com/mcoot/pongrelay/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Leaderboard *leaderboard.Service
	State       *relay.State
	Dispatcher  *relay.Dispatcher
	Hub         *relay.Hub
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// HubConfig holds websocket transport settings (optional)
	// If zero value, defaults to relay.DefaultHubConfig()
	HubConfig relay.HubConfig
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	hubCfg := cfg.HubConfig
	if hubCfg.PingInterval == 0 {
		hubCfg = relay.DefaultHubConfig()
	}

	return newWithDependencies(store, clock.New(), random.New(), hubCfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, hubCfg relay.HubConfig, logger *slog.Logger) *App {
	leaderboardService := leaderboard.New(store, clk, logger)
	state := relay.NewState()
	dispatcher := relay.NewDispatcher(state, leaderboardService, clk, rnd, logger)
	hub := relay.NewHub(dispatcher, hubCfg, logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Leaderboard: leaderboardService,
		State:       state,
		Dispatcher:  dispatcher,
		Hub:         hub,
	}
}
