package model

import "time"

// GamePlayer is a player's membership in one game
type GamePlayer struct {
	GameID       GameID
	PlayerID     PlayerID
	Nickname     string
	AvatarColor  string
	JoinOrder    int
	IsHost       bool
	IsReady      bool
	IsConnected  bool
	LastActiveAt time.Time
	GuessCount   int
	JoinedAt     time.Time
}

// Clone returns a copy safe to mutate
func (p *GamePlayer) Clone() *GamePlayer {
	c := *p
	return &c
}
