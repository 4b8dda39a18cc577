package factory

import (
	"io"
	"log/slog"

	"github.com/mcoot/pongrelay/internal/dependencies/clock"
	"github.com/mcoot/pongrelay/internal/dependencies/random"
	"github.com/mcoot/pongrelay/internal/relay"
	"github.com/mcoot/pongrelay/internal/storage/memory"
)

// NewTestApp creates a fully wired App over memory storage with injected
// clock and random, for tests that exercise the whole stack
func NewTestApp(clk clock.Clock, rnd random.Random, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return newWithDependencies(memory.New(), clk, rnd, relay.DefaultHubConfig(), logger)
}
