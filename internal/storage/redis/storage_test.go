package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini    *miniredis.Miniredis
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.GameTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.Storage = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) createGame() *model.Game {
	now := time.Now()
	game := storagetest.NewGame("game-1", "ABCDEF", now)
	s.Require().NoError(s.storage.CreateGame(s.Ctx, game, storagetest.NewMember("game-1", "host", 1, now)))
	return game
}

func (s *StorageSuite) TestGameKeysHaveTTL() {
	game := s.createGame()

	guess := &model.Guess{GameID: game.ID, ID: "g1", PlayerID: "host", Word: "orbit", Distance: 12}
	s.Require().NoError(s.storage.CommitGame(s.Ctx, &storage.GameChange{
		Game:            game,
		ExpectedVersion: game.Version,
		AppendGuess:     guess,
	}))

	for _, key := range []string{
		gameKey(game.ID),
		gamePlayersKey(game.ID),
		gameActivityKey(game.ID),
		gameGuessesKey(game.ID),
		gameWordsKey(game.ID),
		roomCodeIndexKey(game.RoomCode),
	} {
		s.True(s.mini.TTL(key) > 0, "key %s should have a TTL", key)
	}
}

func (s *StorageSuite) TestPlayersHaveNoTTL() {
	s.Require().NoError(s.storage.SavePlayer(s.Ctx, &model.Player{ID: "p1", Nickname: "Alice"}))
	s.Equal(time.Duration(0), s.mini.TTL(playerKey("p1")))
}

func (s *StorageSuite) TestOpenGamesIndexTracksStatus() {
	game := s.createGame()

	members, err := s.mini.ZMembers(openGamesIndexKey())
	s.Require().NoError(err)
	s.Equal([]string{"game-1"}, members)

	game.Status = model.GameStatusActive
	s.Require().NoError(s.storage.CommitGame(s.Ctx, &storage.GameChange{Game: game, ExpectedVersion: game.Version}))

	s.False(s.mini.Exists(openGamesIndexKey()))
}

func (s *StorageSuite) TestListOpenGamesDropsExpiredEntries() {
	s.createGame()
	s.mini.Del(gameKey("game-1"))

	open, err := s.storage.ListOpenGames(s.Ctx, 10)
	s.Require().NoError(err)
	s.Empty(open)
	s.False(s.mini.Exists(openGamesIndexKey()))
}

func (s *StorageSuite) TestTouchDoesNotRewritePlayerRecord() {
	game := s.createGame()
	before := s.mini.HGet(gamePlayersKey(game.ID), "host")

	s.Require().NoError(s.storage.TouchGamePlayer(s.Ctx, game.ID, "host", time.Now().Add(time.Minute)))

	s.Equal(before, s.mini.HGet(gamePlayersKey(game.ID), "host"))
}
