package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Lobby events
	EventPlayerJoined EventType = "player_joined"
	EventPlayerLeft   EventType = "player_left"
	EventPlayerReady  EventType = "player_ready"
	EventGameStarted  EventType = "game_started"

	// Turn events
	EventGuessMade          EventType = "guess_made"
	EventTurnTimedOut       EventType = "turn_timed_out"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventPlayerReconnected  EventType = "player_reconnected"

	// Terminal events
	EventGameCompleted EventType = "game_completed"
	EventGameAbandoned EventType = "game_abandoned"
)

// Event is published after every accepted write to a game
type Event struct {
	Type       EventType
	Timestamp  time.Time
	GameID     GameID
	PlayerID   PlayerID // The player who triggered or is affected
	TurnNumber int
	Version    int64
	Payload    any // Type-specific data
}

// PlayerJoinedPayload contains data for player joined events
type PlayerJoinedPayload struct {
	PlayerID  PlayerID
	Nickname  string
	JoinOrder int
}

// PlayerLeftPayload contains data for player left events
type PlayerLeftPayload struct {
	PlayerID PlayerID
	Nickname string
}

// PlayerReadyPayload contains data for readiness changes
type PlayerReadyPayload struct {
	PlayerID PlayerID
	IsReady  bool
}

// GameStartedPayload contains data for game started events
type GameStartedPayload struct {
	Players             []PlayerID
	CurrentTurnPlayerID PlayerID
	TurnDuration        time.Duration
}

// GuessMadePayload carries the public part of a guess
type GuessMadePayload struct {
	PlayerID         PlayerID
	Word             string
	Distance         int
	IsCorrect        bool
	NextTurnPlayerID PlayerID
}

// TurnTimedOutPayload contains data for forced turn advancement
type TurnTimedOutPayload struct {
	SkippedPlayerID  PlayerID
	NextTurnPlayerID PlayerID
}

// PlayerDisconnectedPayload contains data for stale-heartbeat disconnects
type PlayerDisconnectedPayload struct {
	PlayerID     PlayerID
	LastActiveAt time.Time
}

// GameCompletedPayload contains data for game completed events
type GameCompletedPayload struct {
	WinnerID   PlayerID
	SecretWord string
	Reason     string // "guessed", "opponent_left" or "opponent_disconnected"
}

// GameAbandonedPayload contains data for game abandoned events
type GameAbandonedPayload struct {
	Reason string
}
