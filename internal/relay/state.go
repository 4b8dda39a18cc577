package relay

import (
	"sync/atomic"

	"github.com/mcoot/pongrelay/internal/model"
)

// State holds everything the relay knows about live connections: registered
// players keyed by session, live rooms keyed by code, and the FIFO
// matchmaking queue. It is owned and mutated exclusively by the dispatcher
// goroutine; the atomic gauges exist so the health endpoint can read counts
// without touching the maps.
type State struct {
	rooms   map[model.RoomCode]*model.GameRoom
	players map[model.SessionID]*model.Player
	queue   []*model.Player

	roomGauge   atomic.Int64
	playerGauge atomic.Int64
	queueGauge  atomic.Int64
}

// NewState creates an empty relay state
func NewState() *State {
	return &State{
		rooms:   make(map[model.RoomCode]*model.GameRoom),
		players: make(map[model.SessionID]*model.Player),
	}
}

// Counts is the health-endpoint view of the relay state
type Counts struct {
	Rooms            int `json:"rooms"`
	Players          int `json:"players"`
	MatchmakingQueue int `json:"matchmakingQueue"`
}

// Counts returns current gauge values. Safe to call from any goroutine.
func (st *State) Counts() Counts {
	return Counts{
		Rooms:            int(st.roomGauge.Load()),
		Players:          int(st.playerGauge.Load()),
		MatchmakingQueue: int(st.queueGauge.Load()),
	}
}

// Player returns the registered player for a session, or nil
func (st *State) Player(id model.SessionID) *model.Player {
	return st.players[id]
}

// RegisterPlayer binds a session to a player identity
func (st *State) RegisterPlayer(p *model.Player) {
	if _, existed := st.players[p.SessionID]; !existed {
		st.playerGauge.Add(1)
	}
	st.players[p.SessionID] = p
}

// RemovePlayer drops a session's identity mapping
func (st *State) RemovePlayer(id model.SessionID) {
	if _, ok := st.players[id]; ok {
		delete(st.players, id)
		st.playerGauge.Add(-1)
	}
}

// Room returns the live room with the given code, or nil
func (st *State) Room(code model.RoomCode) *model.GameRoom {
	return st.rooms[code]
}

// RoomExists reports whether a live room holds the given code
func (st *State) RoomExists(code model.RoomCode) bool {
	_, ok := st.rooms[code]
	return ok
}

// AddRoom registers a live room
func (st *State) AddRoom(room *model.GameRoom) {
	st.rooms[room.Code] = room
	st.roomGauge.Add(1)
}

// DeleteRoom removes a live room. Its code may be recycled afterwards.
func (st *State) DeleteRoom(code model.RoomCode) {
	if _, ok := st.rooms[code]; ok {
		delete(st.rooms, code)
		st.roomGauge.Add(-1)
	}
}

// Enqueue appends a player to the matchmaking queue and returns their
// 1-based position. A player already waiting keeps their original position.
func (st *State) Enqueue(p *model.Player) int {
	for i, waiting := range st.queue {
		if waiting.SessionID == p.SessionID {
			return i + 1
		}
	}
	st.queue = append(st.queue, p)
	st.queueGauge.Store(int64(len(st.queue)))
	return len(st.queue)
}

// DequeueOpponent pops the earliest-waiting player, or nil if the queue is
// empty. Entries whose session has since disconnected are skipped.
func (st *State) DequeueOpponent() *model.Player {
	for len(st.queue) > 0 {
		candidate := st.queue[0]
		st.queue = st.queue[1:]
		if st.players[candidate.SessionID] == candidate {
			st.queueGauge.Store(int64(len(st.queue)))
			return candidate
		}
	}
	st.queueGauge.Store(0)
	return nil
}

// RemoveFromQueue drops a session's pending quick-match request, if any
func (st *State) RemoveFromQueue(id model.SessionID) {
	for i, waiting := range st.queue {
		if waiting.SessionID == id {
			st.queue = append(st.queue[:i], st.queue[i+1:]...)
			break
		}
	}
	st.queueGauge.Store(int64(len(st.queue)))
}
