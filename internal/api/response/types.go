package response

import (
	"time"

	"github.com/mcoot/pongrelay/internal/model"
	"github.com/mcoot/pongrelay/internal/relay"
)

// Health reports server liveness plus live relay gauges
type Health struct {
	Status           string `json:"status"`
	Rooms            int    `json:"rooms"`
	Players          int    `json:"players"`
	MatchmakingQueue int    `json:"matchmakingQueue"`
}

// HealthFromCounts builds a Health response from relay gauges
func HealthFromCounts(c relay.Counts) Health {
	return Health{
		Status:           "ok",
		Rooms:            c.Rooms,
		Players:          c.Players,
		MatchmakingQueue: c.MatchmakingQueue,
	}
}

// Profile represents a player's standings in API responses
type Profile struct {
	PlayerID    string    `json:"player_id"`
	DisplayName string    `json:"display_name"`
	GamesPlayed int       `json:"games_played"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	LastSeen    time.Time `json:"last_seen"`
}

// ProfileFromModel converts a model.Profile to a response Profile
func ProfileFromModel(p *model.Profile) Profile {
	return Profile{
		PlayerID:    string(p.PlayerID),
		DisplayName: p.DisplayName,
		GamesPlayed: p.GamesPlayed,
		Wins:        p.Wins,
		Losses:      p.Losses,
		LastSeen:    p.LastSeen,
	}
}

// Leaderboard is the response for the standings endpoint
type Leaderboard struct {
	Entries []Profile `json:"entries"`
}

// LeaderboardFromModel converts ranked profiles
func LeaderboardFromModel(profiles []*model.Profile) Leaderboard {
	entries := make([]Profile, len(profiles))
	for i, p := range profiles {
		entries[i] = ProfileFromModel(p)
	}
	return Leaderboard{Entries: entries}
}

// Score mirrors the in-game scoreboard
type Score struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// MatchResult represents a finished match in API responses
type MatchResult struct {
	RoomCode   string    `json:"room_code"`
	GameMode   string    `json:"game_mode"`
	Winner     string    `json:"winner"`
	WinnerName string    `json:"winner_name"`
	Loser      string    `json:"loser,omitempty"`
	LoserName  string    `json:"loser_name,omitempty"`
	Score      Score     `json:"score"`
	FinishedAt time.Time `json:"finished_at"`
}

// MatchResultFromModel converts a model.MatchResult
func MatchResultFromModel(m *model.MatchResult) MatchResult {
	return MatchResult{
		RoomCode:   string(m.RoomCode),
		GameMode:   string(m.GameMode),
		Winner:     string(m.Winner),
		WinnerName: m.WinnerName,
		Loser:      string(m.Loser),
		LoserName:  m.LoserName,
		Score:      Score{Player1: m.Score.Player1, Player2: m.Score.Player2},
		FinishedAt: m.FinishedAt,
	}
}

// MatchHistory is the response for the recent matches endpoint
type MatchHistory struct {
	Matches []MatchResult `json:"matches"`
}

// MatchHistoryFromModel converts recent match results
func MatchHistoryFromModel(results []*model.MatchResult) MatchHistory {
	matches := make([]MatchResult, len(results))
	for i, m := range results {
		matches[i] = MatchResultFromModel(m)
	}
	return MatchHistory{Matches: matches}
}
