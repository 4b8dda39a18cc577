package model

// PlayerID is the client-generated stable identifier for a player.
// It is persisted client-side and survives reconnects; the session ID does not.
type PlayerID string

// SessionID identifies a single transport connection. A new one is assigned
// on every connect.
type SessionID string

// Player represents a connected participant. The relay owns a Player for the
// duration of its connection and garbage-collects it on disconnect.
type Player struct {
	ID          PlayerID
	SessionID   SessionID
	DisplayName string
	CurrentRoom RoomCode // empty when not in a room
	IsReady     bool
}

// OpponentInfo is the subset of a player's identity shared with their peer.
type OpponentInfo struct {
	ID   PlayerID `json:"id"`
	Name string   `json:"name"`
}

// Info returns the player's shareable identity.
func (p *Player) Info() OpponentInfo {
	return OpponentInfo{ID: p.ID, Name: p.DisplayName}
}
