package redis

import (
	"fmt"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "wordrank"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// gameKey returns the Redis key for a Game record; it carries the version and is the WATCH target
func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// gamePlayersKey returns the Redis key for the HASH of player id -> GamePlayer
func gamePlayersKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s:players", keyPrefix, id)
}

// gameActivityKey returns the Redis key for the HASH of player id -> last activity (unix nanos)
func gameActivityKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s:activity", keyPrefix, id)
}

// gameGuessesKey returns the Redis key for the LIST of guesses in append order
func gameGuessesKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s:guesses", keyPrefix, id)
}

// gameWordsKey returns the Redis key for the SET of guessed words
func gameWordsKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s:words", keyPrefix, id)
}

// roomCodeIndexKey returns the Redis key for the room code -> game id index
func roomCodeIndexKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:idx:room:%s", keyPrefix, code)
}

// openGamesIndexKey returns the Redis key for the ZSET of public WAITING games scored by creation time
func openGamesIndexKey() string {
	return fmt.Sprintf("%s:idx:open_games", keyPrefix)
}

// dictionaryKey returns the Redis key for the dictionary word set
func dictionaryKey() string {
	return fmt.Sprintf("%s:dictionary", keyPrefix)
}
