package model

import "time"

// RoomCode is a human-shareable identifier for joining a match
type RoomCode string

// RoomCodeLength is the length of generated room codes
const RoomCodeLength = 6

// RoomCodeAlphabet is the characters used in room codes (avoid confusing chars)
const RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RoomState represents the current state of a room
type RoomState string

const (
	RoomStateWaiting  RoomState = "waiting"  // Not all players joined/ready
	RoomStatePlaying  RoomState = "playing"  // Match in progress
	RoomStateFinished RoomState = "finished" // Match ended
)

// GameMode selects the rule variant for a match
type GameMode string

const (
	GameModeClassic GameMode = "classic"
	GameModeChaos   GameMode = "chaos"
	GameModeClean   GameMode = "clean" // no power-ups
)

// RoomSettings holds configurable settings for the match in a room
type RoomSettings struct {
	PointsToWin int      `json:"pointsToWin"`
	GameMode    GameMode `json:"gameMode"`
}

// DefaultRoomSettings returns the default match settings
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		PointsToWin: 11,
		GameMode:    GameModeClassic,
	}
}

// Normalize fills in defaults for zero-valued settings fields
func (s RoomSettings) Normalize() RoomSettings {
	if s.PointsToWin <= 0 {
		s.PointsToWin = 11
	}
	if s.GameMode == "" {
		s.GameMode = GameModeClassic
	}
	return s
}

// RoomSlot is a player's slot within a room. Slot 1 is always the host.
type RoomSlot struct {
	PlayerID  PlayerID
	Name      string
	SessionID SessionID
	IsReady   bool
}

// Score holds the per-player points of a match
type Score struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// MatchStats holds coarse match statistics tracked by the room
type MatchStats struct {
	LongestRally int     `json:"longestRally"`
	TotalRallies int     `json:"totalRallies"`
	GameTime     float64 `json:"gameTime"`
}

// GameRoom is the per-match state container. At most two players occupy it;
// slot 1 is the host. State moves waiting -> playing -> finished; a player
// leaving mid-match finishes it.
//
// All mutators are defensive no-ops on invalid slot/player references: the
// relay polices authorization before calling into the room.
type GameRoom struct {
	Code          RoomCode
	Settings      RoomSettings
	Slots         map[int]*RoomSlot // keys 1 and 2
	State         RoomState
	Score         Score
	Stats         MatchStats
	CreatedAt     time.Time
	GameStartTime time.Time
}

// NewGameRoom creates a room in the waiting state
func NewGameRoom(code RoomCode, settings RoomSettings, now time.Time) *GameRoom {
	return &GameRoom{
		Code:      code,
		Settings:  settings.Normalize(),
		Slots:     map[int]*RoomSlot{},
		State:     RoomStateWaiting,
		CreatedAt: now,
	}
}

// AddPlayer places a player in the given slot. It fails if the slot number is
// invalid or the slot is already occupied.
func (r *GameRoom) AddPlayer(p *Player, slot int) bool {
	if slot != 1 && slot != 2 {
		return false
	}
	if r.Slots[slot] != nil {
		return false
	}
	r.Slots[slot] = &RoomSlot{
		PlayerID:  p.ID,
		Name:      p.DisplayName,
		SessionID: p.SessionID,
	}
	return true
}

// RemovePlayer vacates the player's slot. If the match was in progress it is
// finished: there is no pause-and-resume for a departed player.
func (r *GameRoom) RemovePlayer(id PlayerID) {
	for n, s := range r.Slots {
		if s != nil && s.PlayerID == id {
			delete(r.Slots, n)
		}
	}
	if r.State == RoomStatePlaying {
		r.State = RoomStateFinished
	}
}

// SlotOf returns the slot number the player occupies, or 0
func (r *GameRoom) SlotOf(id PlayerID) int {
	for n, s := range r.Slots {
		if s != nil && s.PlayerID == id {
			return n
		}
	}
	return 0
}

// GetOpponentInfo returns the identity of the other occupant, or nil
func (r *GameRoom) GetOpponentInfo(id PlayerID) *OpponentInfo {
	for _, s := range r.Slots {
		if s != nil && s.PlayerID != id {
			return &OpponentInfo{ID: s.PlayerID, Name: s.Name}
		}
	}
	return nil
}

// OpponentSession returns the session of the other occupant, or ""
func (r *GameRoom) OpponentSession(id PlayerID) SessionID {
	for _, s := range r.Slots {
		if s != nil && s.PlayerID != id {
			return s.SessionID
		}
	}
	return ""
}

// Sessions returns the sessions of all occupants
func (r *GameRoom) Sessions() []SessionID {
	var out []SessionID
	for slot := 1; slot <= 2; slot++ {
		if s := r.Slots[slot]; s != nil {
			out = append(out, s.SessionID)
		}
	}
	return out
}

// SetPlayerReady marks the player's readiness
func (r *GameRoom) SetPlayerReady(id PlayerID, ready bool) {
	for _, s := range r.Slots {
		if s != nil && s.PlayerID == id {
			s.IsReady = ready
		}
	}
}

// AllPlayersReady reports whether both slots are occupied and ready
func (r *GameRoom) AllPlayersReady() bool {
	s1, s2 := r.Slots[1], r.Slots[2]
	return s1 != nil && s2 != nil && s1.IsReady && s2.IsReady
}

// IsFull reports whether both slots are occupied
func (r *GameRoom) IsFull() bool {
	return r.Slots[1] != nil && r.Slots[2] != nil
}

// IsEmpty reports whether no slots are occupied
func (r *GameRoom) IsEmpty() bool {
	return r.Slots[1] == nil && r.Slots[2] == nil
}

// StartGame moves the room to playing and resets the score. Starting again in
// a finished room with both players present is a rematch in place.
func (r *GameRoom) StartGame(now time.Time) {
	r.State = RoomStatePlaying
	r.GameStartTime = now
	r.Score = Score{}
}

// UpdateScore adds points for the given slot and finishes the match once
// either side reaches the configured points to win.
func (r *GameRoom) UpdateScore(playerNumber, points int) Score {
	switch playerNumber {
	case 1:
		r.Score.Player1 += points
	case 2:
		r.Score.Player2 += points
	}
	if r.Score.Player1 >= r.Settings.PointsToWin || r.Score.Player2 >= r.Settings.PointsToWin {
		r.State = RoomStateFinished
	}
	return r.Score
}

// RecordRally updates rally statistics after a rally ends
func (r *GameRoom) RecordRally(length int) {
	r.Stats.TotalRallies++
	if length > r.Stats.LongestRally {
		r.Stats.LongestRally = length
	}
}

// EndGame finishes the match regardless of score
func (r *GameRoom) EndGame() {
	r.State = RoomStateFinished
}

// SlotStatus is the per-slot view exposed by Status
type SlotStatus struct {
	ID      PlayerID `json:"id"`
	Name    string   `json:"name"`
	IsReady bool     `json:"isReady"`
}

// RoomStatus is a read-only snapshot of a room
type RoomStatus struct {
	RoomCode RoomCode            `json:"roomCode"`
	State    RoomState           `json:"state"`
	Players  map[int]*SlotStatus `json:"players"`
	Score    Score               `json:"score"`
	Settings RoomSettings        `json:"settings"`
	Stats    MatchStats          `json:"stats"`
	GameTime time.Duration       `json:"gameTime"`
}

// Status returns a snapshot of the room suitable for diagnostics
func (r *GameRoom) Status(now time.Time) RoomStatus {
	players := map[int]*SlotStatus{1: nil, 2: nil}
	for n, s := range r.Slots {
		if s != nil {
			players[n] = &SlotStatus{ID: s.PlayerID, Name: s.Name, IsReady: s.IsReady}
		}
	}
	var gameTime time.Duration
	if !r.GameStartTime.IsZero() {
		gameTime = now.Sub(r.GameStartTime)
	}
	return RoomStatus{
		RoomCode: r.Code,
		State:    r.State,
		Players:  players,
		Score:    r.Score,
		Settings: r.Settings,
		Stats:    r.Stats,
		GameTime: gameTime,
	}
}
