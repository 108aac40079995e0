package model

import "time"

// GuessID uniquely identifies a guess
type GuessID string

// RankSource says where a distance came from
type RankSource string

const (
	RankSourceExact    RankSource = "exact"
	RankSourceCache    RankSource = "cache"
	RankSourceProvider RankSource = "provider"
	RankSourceFallback RankSource = "fallback"
)

// Guess is an immutable record of a submitted word.
// Distance is 0 exactly when IsCorrect.
type Guess struct {
	GameID     GameID
	ID         GuessID
	PlayerID   PlayerID
	Word       string
	Distance   int
	Similarity float64
	IsCorrect  bool
	TurnNumber int
	Source     RankSource
	Timestamp  time.Time
}
