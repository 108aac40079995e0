package storage

import (
	"context"
	"time"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
)

// GameChange is a single all-or-nothing write to one game.
// The write is applied only if the stored game's version still equals
// ExpectedVersion; the stored version then becomes ExpectedVersion+1 and
// Game.Version is updated to match.
type GameChange struct {
	Game            *model.Game
	ExpectedVersion int64
	UpsertPlayers   []*model.GamePlayer
	RemovePlayers   []model.PlayerID
	AppendGuess     *model.Guess
}

// Storage defines the interface for data persistence
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)

	// CreateGame stores a new game with its host membership and claims its room code.
	// The game starts at version 1. Returns model.ErrRoomCodeInUse if a
	// non-terminal game already holds the code.
	CreateGame(ctx context.Context, game *model.Game, host *model.GamePlayer) error

	// GetGame returns the game record only
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)

	// LoadGame returns the game with its members (join order) and guesses (append order)
	LoadGame(ctx context.Context, id model.GameID) (*model.GameState, error)

	// FindGameByRoomCode resolves a room code held by a non-terminal game
	FindGameByRoomCode(ctx context.Context, code model.RoomCode) (model.GameID, error)

	// ListOpenGames returns public WAITING games, newest first
	ListOpenGames(ctx context.Context, limit int) ([]*model.GameState, error)

	// CommitGame applies a change atomically. Returns model.ErrVersionConflict
	// if the version moved and model.ErrDuplicateWord if the appended guess's
	// word already exists in the game. Terminal games release their room code.
	CommitGame(ctx context.Context, change *GameChange) error

	// TouchGamePlayer refreshes a member's LastActiveAt without a version bump
	TouchGamePlayer(ctx context.Context, gameID model.GameID, playerID model.PlayerID, at time.Time) error

	// Dictionary operations
	GetDictionaryWords(ctx context.Context) ([]string, error)
	SaveDictionaryWords(ctx context.Context, words []string) error
}
