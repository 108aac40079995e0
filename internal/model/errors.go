package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an error for callers and transports
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindPermission   ErrorKind = "permission"
	KindInvalidState ErrorKind = "invalid_state"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindRateLimited  ErrorKind = "rate_limited"
	KindInternal     ErrorKind = "internal"
)

// Error is a classified application error.
// Sentinels below are compared by identity with errors.Is; errors built with
// the helper constructors carry their own message but keep the sentinel's code.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	cause   *Error
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches the sentinel an error was derived from
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || (e.cause != nil && e.cause == t)
}

// Withf returns a copy of a sentinel with a more specific message
func (e *Error) Withf(format string, args ...any) *Error {
	return &Error{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: fmt.Sprintf(format, args...),
		cause:   e,
	}
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// KindOf returns the kind of a (possibly wrapped) error; unclassified errors are internal
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	// Generic per-kind errors
	ErrValidation   = newError(KindValidation, "VALIDATION_ERROR", "invalid request")
	ErrPermission   = newError(KindPermission, "PERMISSION_DENIED", "permission denied")
	ErrInvalidState = newError(KindInvalidState, "INVALID_STATE", "operation not allowed in the current game state")
	ErrNotFound     = newError(KindNotFound, "NOT_FOUND", "not found")
	ErrConflict     = newError(KindConflict, "CONFLICT", "conflict")
	ErrRateLimited  = newError(KindRateLimited, "RATE_LIMITED", "too many requests")
	ErrInternal     = newError(KindInternal, "INTERNAL_ERROR", "internal error")

	// Player errors
	ErrPlayerNotFound = newError(KindNotFound, "PLAYER_NOT_FOUND", "player not found")
	ErrInvalidProfile = newError(KindValidation, "INVALID_PROFILE", "invalid player profile")

	// Game lifecycle errors
	ErrGameNotFound        = newError(KindNotFound, "GAME_NOT_FOUND", "game not found")
	ErrRoomNotFound        = newError(KindNotFound, "ROOM_NOT_FOUND", "no open game with that room code")
	ErrNotInGame           = newError(KindNotFound, "NOT_IN_GAME", "player is not in this game")
	ErrInvalidGameConfig   = newError(KindValidation, "INVALID_GAME_CONFIG", "invalid game configuration")
	ErrGameFull            = newError(KindConflict, "GAME_FULL", "game is full")
	ErrNotHost             = newError(KindPermission, "NOT_HOST", "only the host can perform this action")
	ErrGameNotWaiting      = newError(KindInvalidState, "GAME_NOT_WAITING", "game is not waiting for players")
	ErrGameNotActive       = newError(KindInvalidState, "GAME_NOT_ACTIVE", "game is not active")
	ErrInsufficientPlayers = newError(KindInvalidState, "INSUFFICIENT_PLAYERS", "at least two connected players are required")
	ErrPlayersNotReady     = newError(KindInvalidState, "PLAYERS_NOT_READY", "all players must be ready")
	ErrRoomCodeInUse       = newError(KindConflict, "ROOM_CODE_IN_USE", "room code is already in use")
	ErrRoomCodeExhausted   = newError(KindInternal, "ROOM_CODE_EXHAUSTED", "could not allocate a room code")

	// Turn errors
	ErrNotYourTurn     = newError(KindPermission, "NOT_YOUR_TURN", "it is not this player's turn")
	ErrTurnNotExpired  = newError(KindInvalidState, "TURN_NOT_EXPIRED", "turn has not timed out yet")
	ErrVersionConflict = newError(KindConflict, "STALE_STATE", "game state changed, re-read and retry")

	// Guess errors
	ErrInvalidWord   = newError(KindValidation, "INVALID_WORD", "invalid word")
	ErrUnknownWord   = newError(KindValidation, "UNKNOWN_WORD", "not a recognized word")
	ErrDuplicateWord = newError(KindConflict, "DUPLICATE_WORD", "word has already been guessed in this game")

	// Dictionary errors
	ErrDictionaryNotLoaded = newError(KindInternal, "DICTIONARY_NOT_LOADED", "dictionary not loaded")
)
