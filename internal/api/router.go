package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/pongrelay/internal/api/handler"
	"github.com/mcoot/pongrelay/internal/middleware"
	"github.com/mcoot/pongrelay/internal/relay"
	"github.com/mcoot/pongrelay/internal/services/leaderboard"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Dispatcher  *relay.Dispatcher
	Hub         *relay.Hub
	Leaderboard *leaderboard.Service
}

// NewRouter creates a new router with the websocket endpoint and all HTTP
// routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	healthHandler := handler.NewHealthHandler(cfg.Dispatcher)
	leaderboardHandler := handler.NewLeaderboardHandler(cfg.Leaderboard)

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, middleware.DefaultPanicHandler)

	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	// Game traffic rides a single websocket connection per client
	r.HandleFunc("/ws", cfg.Hub.ServeWS).Methods(http.MethodGet)

	// Health check endpoint with live relay gauges
	r.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/leaderboard", leaderboardHandler.Top).Methods(http.MethodGet)
	api.HandleFunc("/matches", leaderboardHandler.Recent).Methods(http.MethodGet)
	api.HandleFunc("/players/{player_id}", leaderboardHandler.GetProfile).Methods(http.MethodGet)

	return r
}
