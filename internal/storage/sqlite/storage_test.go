package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	storage *Storage
	path    string
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.Ctx = context.Background()
	s.path = filepath.Join(s.T().TempDir(), "wordrank.db")

	st, err := Open(s.Ctx, s.path)
	s.Require().NoError(err)
	s.storage = st
	s.Storage = st
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}

func (s *StorageSuite) TestDataSurvivesReopen() {
	now := time.Now()
	game := storagetest.NewGame("game-1", "ABCDEF", now)
	s.Require().NoError(s.storage.CreateGame(s.Ctx, game, storagetest.NewMember("game-1", "host", 1, now)))
	s.Require().NoError(s.storage.Close())

	reopened, err := Open(s.Ctx, s.path)
	s.Require().NoError(err)
	s.storage = reopened

	state, err := reopened.LoadGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(model.RoomCode("ABCDEF"), state.Game.RoomCode)
	s.Len(state.Players, 1)
}

func (s *StorageSuite) TestZeroTimesRoundTrip() {
	now := time.Now()
	game := storagetest.NewGame("game-1", "ABCDEF", now)
	s.Require().NoError(s.storage.CreateGame(s.Ctx, game, storagetest.NewMember("game-1", "host", 1, now)))

	stored, err := s.storage.GetGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.True(stored.StartedAt.IsZero())
	s.True(stored.EndedAt.IsZero())
	s.True(stored.TurnStartedAt.IsZero())
}

func TestOpenInMemory(t *testing.T) {
	st, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer st.Close()

	_, err = st.GetDictionaryWords(context.Background())
	require.ErrorIs(t, err, model.ErrDictionaryNotLoaded)
}
