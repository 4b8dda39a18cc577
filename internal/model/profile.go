package model

import "time"

// Profile is the persisted server-side record for a player identity.
// The stable PlayerID links it to whichever transport session the player is
// currently connected on.
type Profile struct {
	PlayerID    PlayerID  `json:"playerId"`
	DisplayName string    `json:"displayName"`
	GamesPlayed int       `json:"gamesPlayed"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	CreatedAt   time.Time `json:"createdAt"`
	LastSeen    time.Time `json:"lastSeen"`
}

// MatchResult is the persisted record of one finished match
type MatchResult struct {
	RoomCode   RoomCode   `json:"roomCode"`
	GameMode   GameMode   `json:"gameMode"`
	Winner     PlayerID   `json:"winner"`
	WinnerName string     `json:"winnerName"`
	Loser      PlayerID   `json:"loser"`
	LoserName  string     `json:"loserName"`
	Score      Score      `json:"score"`
	Stats      MatchStats `json:"stats"`
	FinishedAt time.Time  `json:"finishedAt"`
}
