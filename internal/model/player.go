package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player is a user profile. Identity is an opaque id handed out once per session.
type Player struct {
	ID          PlayerID
	Nickname    string
	AvatarColor string
	TotalGames  int
	TotalWins   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
