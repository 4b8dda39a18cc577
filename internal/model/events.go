package model

import "encoding/json"

// EventType identifies the type of a protocol event
type EventType string

// Client -> server events
const (
	EventRegister     EventType = "register"
	EventCreateRoom   EventType = "createRoom"
	EventJoinRoom     EventType = "joinRoom"
	EventQuickMatch   EventType = "quickMatch"
	EventLeaveRoom    EventType = "leaveRoom"
	EventPlayerReady  EventType = "playerReady"
	EventRequestStart EventType = "requestStart"
	EventPing         EventType = "ping"
)

// Server -> client events
const (
	EventRoomCreated    EventType = "roomCreated"
	EventRoomJoined     EventType = "roomJoined"
	EventMatchFound     EventType = "matchFound"
	EventMatchmaking    EventType = "matchmaking"
	EventOpponentJoined EventType = "opponentJoined"
	EventOpponentLeft   EventType = "opponentLeft"
	EventGameStart      EventType = "gameStart"
	EventRoomError      EventType = "roomError"
	EventMatchError     EventType = "matchError"
	EventPong           EventType = "pong"
)

// Relayed events (same name in both directions)
const (
	EventPaddleUpdate EventType = "paddleUpdate"
	EventGameState    EventType = "gameState"
	EventScoreUpdate  EventType = "scoreUpdate"
	EventGameOver     EventType = "gameOver"
	EventChat         EventType = "chat"
)

// MaxChatLength is the limit chat messages are truncated to
const MaxChatLength = 200

// Envelope is the wire framing for every event: a name plus an opaque
// JSON payload. The relay never interprets relayed payloads beyond routing.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope builds an envelope with a marshalled payload
func NewEnvelope(t EventType, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: t}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: t, Payload: data}, nil
}

// Client -> server payloads

type RegisterPayload struct {
	PlayerID   PlayerID `json:"playerId"`
	PlayerName string   `json:"playerName"`
}

type CreateRoomPayload struct {
	PlayerID PlayerID     `json:"playerId"`
	Settings RoomSettings `json:"settings"`
}

type JoinRoomPayload struct {
	PlayerID PlayerID `json:"playerId"`
	RoomCode string   `json:"roomCode"`
}

type QuickMatchPayload struct {
	PlayerID PlayerID `json:"playerId"`
}

type LeaveRoomPayload struct {
	RoomCode RoomCode `json:"roomCode"`
}

type PlayerReadyPayload struct {
	RoomCode RoomCode `json:"roomCode"`
	PlayerID PlayerID `json:"playerId"`
}

type RequestStartPayload struct {
	RoomCode RoomCode `json:"roomCode"`
	PlayerID PlayerID `json:"playerId"`
}

// PaddleUpdatePayload is relayed to the peer unchanged
type PaddleUpdatePayload struct {
	RoomCode     RoomCode `json:"roomCode,omitempty"`
	PlayerNumber int      `json:"playerNumber"`
	Y            float64  `json:"y"`
	Velocity     float64  `json:"velocity"`
	Timestamp    int64    `json:"timestamp"`
}

// GameStatePayload wraps a host state snapshot. The relay forwards State
// verbatim; only clients give it structure (SyncedGameState).
type GameStatePayload struct {
	RoomCode  RoomCode        `json:"roomCode"`
	State     json.RawMessage `json:"state"`
	Timestamp int64           `json:"timestamp"`
}

// ScoreUpdatePayload is broadcast to the whole room
type ScoreUpdatePayload struct {
	RoomCode RoomCode `json:"roomCode,omitempty"`
	Score    Score    `json:"score"`
}

// GameOverPayload carries the final result; broadcast to the whole room
type GameOverPayload struct {
	RoomCode RoomCode   `json:"roomCode,omitempty"`
	Winner   int        `json:"winner"`
	Score    Score      `json:"score"`
	Stats    MatchStats `json:"stats"`
}

type ChatPayload struct {
	RoomCode RoomCode `json:"roomCode"`
	PlayerID PlayerID `json:"playerId"`
	Message  string   `json:"message"`
}

// Server -> client payloads

// RoomAssignment is the common shape of roomCreated/roomJoined/matchFound
type RoomAssignment struct {
	RoomCode     RoomCode      `json:"roomCode"`
	PlayerNumber int           `json:"playerNumber"`
	IsHost       bool          `json:"isHost"`
	Opponent     *OpponentInfo `json:"opponent,omitempty"`
}

type MatchmakingStatusPayload struct {
	Status   string `json:"status"`
	Position int    `json:"position"`
}

type OpponentJoinedPayload struct {
	Opponent OpponentInfo `json:"opponent"`
}

type GameStartPayload struct {
	Countdown int `json:"countdown"`
}

type ChatBroadcast struct {
	PlayerID   PlayerID `json:"playerId"`
	PlayerName string   `json:"playerName"`
	Message    string   `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
