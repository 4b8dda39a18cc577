package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/pongrelay/internal/api/apierr"
	"github.com/mcoot/pongrelay/internal/api/response"
	"github.com/mcoot/pongrelay/internal/model"
	"github.com/mcoot/pongrelay/internal/services/leaderboard"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// LeaderboardHandler handles standings and match history endpoints
type LeaderboardHandler struct {
	leaderboard *leaderboard.Service
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(leaderboard *leaderboard.Service) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboard: leaderboard,
	}
}

// Top handles GET /api/v1/leaderboard
func (h *LeaderboardHandler) Top(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	profiles, err := h.leaderboard.Top(r.Context(), limit)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaderboardFromModel(profiles))
}

// Recent handles GET /api/v1/matches
func (h *LeaderboardHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	results, err := h.leaderboard.Recent(r.Context(), limit)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchHistoryFromModel(results))
}

// GetProfile handles GET /api/v1/players/{player_id}
func (h *LeaderboardHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["player_id"]

	profile, err := h.leaderboard.Profile(r.Context(), model.PlayerID(id))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ProfileFromModel(profile))
}

// parseLimit reads the optional limit query parameter
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, apierr.NewInvalidRequestError("limit must be a positive integer")
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, nil
}
