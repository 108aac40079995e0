package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Writes to a game run under WATCH on the game key, so the version check
// and every child write land in one MULTI/EXEC.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, playerKey(player.ID), data, 0).Err()
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game, host *model.GamePlayer) error {
	game.Version = 1
	gameData, err := json.Marshal(game)
	if err != nil {
		return err
	}
	hostData, err := json.Marshal(host)
	if err != nil {
		return err
	}

	roomKey := roomCodeIndexKey(game.RoomCode)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		taken, err := tx.Exists(ctx, roomKey).Result()
		if err != nil {
			return err
		}
		if taken > 0 {
			return model.ErrRoomCodeInUse
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gameKey(game.ID), gameData, s.cfg.GameTTL)
			pipe.HSet(ctx, gamePlayersKey(game.ID), string(host.PlayerID), hostData)
			pipe.HSet(ctx, gameActivityKey(game.ID), string(host.PlayerID), host.LastActiveAt.UnixNano())
			pipe.Set(ctx, roomKey, string(game.ID), s.cfg.GameTTL)
			if game.IsPublic && game.Status == model.GameStatusWaiting {
				pipe.ZAdd(ctx, openGamesIndexKey(), redis.Z{
					Score:  float64(game.CreatedAt.UnixMilli()),
					Member: string(game.ID),
				})
			}
			s.expireChildren(ctx, pipe, game.ID)
			return nil
		})
		return err
	}, roomKey)

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrRoomCodeInUse
	}
	return err
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	data, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameNotFound
		}
		return nil, err
	}
	return decodeGame(data)
}

func (s *Storage) LoadGame(ctx context.Context, id model.GameID) (*model.GameState, error) {
	var (
		gameCmd     *redis.StringCmd
		playersCmd  *redis.MapStringStringCmd
		activityCmd *redis.MapStringStringCmd
		guessesCmd  *redis.StringSliceCmd
	)

	// MULTI/EXEC gives a consistent snapshot across the game's keys
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		gameCmd = pipe.Get(ctx, gameKey(id))
		playersCmd = pipe.HGetAll(ctx, gamePlayersKey(id))
		activityCmd = pipe.HGetAll(ctx, gameActivityKey(id))
		guessesCmd = pipe.LRange(ctx, gameGuessesKey(id), 0, -1)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	gameData, err := gameCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameNotFound
		}
		return nil, err
	}
	game, err := decodeGame(gameData)
	if err != nil {
		return nil, err
	}

	state := &model.GameState{Game: game}
	activity := activityCmd.Val()
	for playerID, raw := range playersCmd.Val() {
		var p model.GamePlayer
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode game player %s: %w", playerID, err)
		}
		if nanos, err := strconv.ParseInt(activity[playerID], 10, 64); err == nil {
			p.LastActiveAt = time.Unix(0, nanos).UTC()
		}
		state.Players = append(state.Players, &p)
	}
	sortByJoinOrder(state.Players)

	for _, raw := range guessesCmd.Val() {
		var g model.Guess
		if err := json.Unmarshal([]byte(raw), &g); err != nil {
			return nil, fmt.Errorf("decode guess: %w", err)
		}
		state.Guesses = append(state.Guesses, &g)
	}
	return state, nil
}

func (s *Storage) FindGameByRoomCode(ctx context.Context, code model.RoomCode) (model.GameID, error) {
	id, err := s.client.Get(ctx, roomCodeIndexKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrRoomNotFound
		}
		return "", err
	}
	return model.GameID(id), nil
}

func (s *Storage) ListOpenGames(ctx context.Context, limit int) ([]*model.GameState, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, openGamesIndexKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	open := make([]*model.GameState, 0, len(ids))
	for _, id := range ids {
		state, err := s.LoadGame(ctx, model.GameID(id))
		if errors.Is(err, model.ErrGameNotFound) {
			// Expired; drop the dangling index entry
			s.client.ZRem(ctx, openGamesIndexKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		open = append(open, state)
	}
	return open, nil
}

func (s *Storage) CommitGame(ctx context.Context, change *storage.GameChange) error {
	game := change.Game
	key := gameKey(game.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrGameNotFound
			}
			return err
		}
		current, err := decodeGame(data)
		if err != nil {
			return err
		}
		if current.Version != change.ExpectedVersion {
			return model.ErrVersionConflict
		}

		var guessData []byte
		if g := change.AppendGuess; g != nil {
			dup, err := tx.SIsMember(ctx, gameWordsKey(game.ID), g.Word).Result()
			if err != nil {
				return err
			}
			if dup {
				return model.ErrDuplicateWord
			}
			if guessData, err = json.Marshal(g); err != nil {
				return err
			}
		}

		releaseRoom := false
		if game.Status.IsTerminal() {
			holder, err := tx.Get(ctx, roomCodeIndexKey(game.RoomCode)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			releaseRoom = holder == string(game.ID)
		}

		next := game.Clone()
		next.Version = change.ExpectedVersion + 1
		nextData, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, nextData, s.cfg.GameTTL)
			for _, id := range change.RemovePlayers {
				pipe.HDel(ctx, gamePlayersKey(game.ID), string(id))
				pipe.HDel(ctx, gameActivityKey(game.ID), string(id))
			}
			for _, p := range change.UpsertPlayers {
				pd, err := json.Marshal(p)
				if err != nil {
					return err
				}
				pipe.HSet(ctx, gamePlayersKey(game.ID), string(p.PlayerID), pd)
				pipe.HSet(ctx, gameActivityKey(game.ID), string(p.PlayerID), p.LastActiveAt.UnixNano())
			}
			if guessData != nil {
				pipe.RPush(ctx, gameGuessesKey(game.ID), guessData)
				pipe.SAdd(ctx, gameWordsKey(game.ID), change.AppendGuess.Word)
			}
			if releaseRoom {
				pipe.Del(ctx, roomCodeIndexKey(game.RoomCode))
			}
			if next.Status != model.GameStatusWaiting || !next.IsPublic {
				pipe.ZRem(ctx, openGamesIndexKey(), string(game.ID))
			}
			s.expireChildren(ctx, pipe, game.ID)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrVersionConflict
	}
	if err != nil {
		return err
	}
	game.Version = change.ExpectedVersion + 1
	return nil
}

func (s *Storage) TouchGamePlayer(ctx context.Context, gameID model.GameID, playerID model.PlayerID, at time.Time) error {
	exists, err := s.client.Exists(ctx, gameKey(gameID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return model.ErrGameNotFound
	}
	member, err := s.client.HExists(ctx, gamePlayersKey(gameID), string(playerID)).Result()
	if err != nil {
		return err
	}
	if !member {
		return model.ErrNotInGame
	}
	return s.client.HSet(ctx, gameActivityKey(gameID), string(playerID), at.UnixNano()).Err()
}

// expireChildren keeps the TTL of every key belonging to a game in sync with the game record
func (s *Storage) expireChildren(ctx context.Context, pipe redis.Pipeliner, id model.GameID) {
	if s.cfg.GameTTL <= 0 {
		return
	}
	for _, k := range []string{gamePlayersKey(id), gameActivityKey(id), gameGuessesKey(id), gameWordsKey(id)} {
		pipe.Expire(ctx, k, s.cfg.GameTTL)
	}
}

func decodeGame(data []byte) (*model.Game, error) {
	var game model.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, fmt.Errorf("decode game: %w", err)
	}
	return &game, nil
}

func sortByJoinOrder(players []*model.GamePlayer) {
	slices.SortFunc(players, func(a, b *model.GamePlayer) int {
		return a.JoinOrder - b.JoinOrder
	})
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	key := dictionaryKey()

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrDictionaryNotLoaded
	}

	return s.client.SMembers(ctx, key).Result()
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	key := dictionaryKey()

	// Replace the set atomically
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(words) > 0 {
			members := make([]interface{}, len(words))
			for i, w := range words {
				members[i] = w
			}
			pipe.SAdd(ctx, key, members...)
		}
		return nil
	})
	return err
}
