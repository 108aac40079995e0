package model

import "time"

// GameID uniquely identifies a game
type GameID string

// RoomCode is the short human-shareable code used to join a game
type RoomCode string

// GameStatus is the lifecycle phase of a game
type GameStatus string

const (
	GameStatusWaiting   GameStatus = "WAITING"   // Lobby, players joining and readying up
	GameStatusActive    GameStatus = "ACTIVE"    // Turns in progress
	GameStatusCompleted GameStatus = "COMPLETED" // Someone won
	GameStatusAbandoned GameStatus = "ABANDONED" // Cancelled without a winner
)

// IsTerminal reports whether no further transitions are possible
func (s GameStatus) IsTerminal() bool {
	return s == GameStatusCompleted || s == GameStatusAbandoned
}

// TurnEnd records how the previous turn ended
type TurnEnd string

const (
	TurnEndNone    TurnEnd = ""
	TurnEndGuess   TurnEnd = "guess"
	TurnEndTimeout TurnEnd = "timeout"
)

// Allowed turn durations in seconds
var AllowedTurnDurations = []int{30, 60, 90}

// MaxPlayersPerGame is the only supported game size
const MaxPlayersPerGame = 2

// GameConfig holds the options chosen by the host at creation time
type GameConfig struct {
	TurnDuration int // seconds
	MaxPlayers   int // 0 means MaxPlayersPerGame
	IsPublic     bool
}

// Game is the root record of a match. Version is bumped on every accepted write.
type Game struct {
	ID                  GameID
	RoomCode            RoomCode
	SecretWord          string
	SecretLemma         string
	Status              GameStatus
	HostPlayerID        PlayerID
	CurrentTurnPlayerID PlayerID
	TurnNumber          int
	TurnDuration        time.Duration
	TurnStartedAt       time.Time
	MaxPlayers          int
	IsPublic            bool
	WinnerID            PlayerID
	LastTurnEnd         TurnEnd
	Version             int64

	CreatedAt time.Time
	StartedAt time.Time
	EndedAt   time.Time
	UpdatedAt time.Time
}

// Clone returns a copy safe to mutate
func (g *Game) Clone() *Game {
	c := *g
	return &c
}

// TurnDeadline returns when the current turn expires, ignoring any tolerance
func (g *Game) TurnDeadline() time.Time {
	return g.TurnStartedAt.Add(g.TurnDuration)
}

// GameSummary is a lightweight listing entry for open games
type GameSummary struct {
	ID           GameID
	RoomCode     RoomCode
	HostPlayerID PlayerID
	HostNickname string
	TurnDuration time.Duration
	PlayerCount  int
	MaxPlayers   int
	CreatedAt    time.Time
}
