package model

import "errors"

// Common errors used across the application
var (
	// Identity errors
	ErrPlayerNotRegistered = errors.New("player not registered")
	ErrProfileNotFound     = errors.New("profile not found")

	// Room errors
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
	ErrNotInRoom    = errors.New("player is not in a room")

	// Matchmaking errors
	ErrAlreadyQueued      = errors.New("player is already in the matchmaking queue")
	ErrMatchmakingTimeout = errors.New("matchmaking timed out")

	// Client-side transport errors
	ErrNotConnected      = errors.New("not connected to server")
	ErrServerUnavailable = errors.New("unable to reach multiplayer server")
	ErrOperationTimeout  = errors.New("operation timed out")
)
