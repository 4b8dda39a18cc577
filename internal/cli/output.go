package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printHealthResult(v)
	case LeaderboardResult:
		o.printLeaderboard(v)
	case MatchHistoryResult:
		o.printMatchHistory(v)
	case ProfileResult:
		o.printProfile(v)
	case RoomResult:
		o.printRoom(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status           string `json:"status"`
	Rooms            int    `json:"rooms"`
	Players          int    `json:"players"`
	MatchmakingQueue int    `json:"matchmakingQueue"`
}

// ProfileResult response type
type ProfileResult struct {
	PlayerID    string    `json:"player_id"`
	DisplayName string    `json:"display_name"`
	GamesPlayed int       `json:"games_played"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	LastSeen    time.Time `json:"last_seen"`
}

// LeaderboardResult response type
type LeaderboardResult struct {
	Entries []ProfileResult `json:"entries"`
}

// MatchHistoryResult response type
type MatchHistoryResult struct {
	Matches []MatchResult `json:"matches"`
}

// MatchResult response type
type MatchResult struct {
	RoomCode   string    `json:"room_code"`
	GameMode   string    `json:"game_mode"`
	Winner     string    `json:"winner"`
	WinnerName string    `json:"winner_name"`
	LoserName  string    `json:"loser_name"`
	Score      ScoreJSON `json:"score"`
	FinishedAt time.Time `json:"finished_at"`
}

// ScoreJSON mirrors the wire scoreboard
type ScoreJSON struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// RoomResult is printed after create, join, and quickmatch
type RoomResult struct {
	RoomCode     string `json:"room_code"`
	PlayerNumber int    `json:"player_number"`
	IsHost       bool   `json:"is_host"`
	Opponent     string `json:"opponent,omitempty"`
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Rooms: %d\n", h.Rooms)
	fmt.Printf("Players: %d\n", h.Players)
	fmt.Printf("Matchmaking queue: %d\n", h.MatchmakingQueue)
}

func (o *Output) printProfile(p ProfileResult) {
	fmt.Printf("Player: %s (%s)\n", p.DisplayName, p.PlayerID)
	fmt.Printf("Games: %d  Wins: %d  Losses: %d\n", p.GamesPlayed, p.Wins, p.Losses)
	fmt.Printf("Last seen: %s\n", p.LastSeen.Format(time.RFC3339))
}

func (o *Output) printLeaderboard(l LeaderboardResult) {
	if len(l.Entries) == 0 {
		fmt.Println("No players on the leaderboard yet")
		return
	}
	fmt.Printf("%-4s %-20s %6s %6s %6s\n", "#", "PLAYER", "GAMES", "WINS", "LOSSES")
	for i, entry := range l.Entries {
		fmt.Printf("%-4d %-20s %6d %6d %6d\n", i+1, entry.DisplayName, entry.GamesPlayed, entry.Wins, entry.Losses)
	}
}

func (o *Output) printMatchHistory(h MatchHistoryResult) {
	if len(h.Matches) == 0 {
		fmt.Println("No matches recorded yet")
		return
	}
	for _, m := range h.Matches {
		fmt.Printf("%s  %s  %s def. %s  %d-%d (%s)\n",
			m.FinishedAt.Format("2006-01-02 15:04"),
			m.RoomCode,
			m.WinnerName,
			m.LoserName,
			m.Score.Player1,
			m.Score.Player2,
			m.GameMode,
		)
	}
}

func (o *Output) printRoom(r RoomResult) {
	fmt.Printf("Room: %s\n", r.RoomCode)
	fmt.Printf("Player number: %d\n", r.PlayerNumber)
	if r.IsHost {
		fmt.Println("Role: host")
	} else {
		fmt.Println("Role: guest")
	}
	if r.Opponent != "" {
		fmt.Printf("Opponent: %s\n", r.Opponent)
	}
}
