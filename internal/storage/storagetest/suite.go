// Package storagetest holds the behaviour every storage backend must share.
// Backend test suites embed Suite and assign Storage in their SetupTest.
package storagetest

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage"
)

// Suite is a testify suite exercising the storage.Storage contract
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

var baseTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// NewGame builds a WAITING game with sensible defaults
func NewGame(id model.GameID, code model.RoomCode, createdAt time.Time) *model.Game {
	return &model.Game{
		ID:           id,
		RoomCode:     code,
		SecretWord:   "planet",
		SecretLemma:  "planet",
		Status:       model.GameStatusWaiting,
		HostPlayerID: "host",
		TurnDuration: 60 * time.Second,
		MaxPlayers:   2,
		IsPublic:     true,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

// NewMember builds a connected membership
func NewMember(gameID model.GameID, playerID model.PlayerID, joinOrder int, at time.Time) *model.GamePlayer {
	return &model.GamePlayer{
		GameID:       gameID,
		PlayerID:     playerID,
		Nickname:     string(playerID),
		AvatarColor:  "#336699",
		JoinOrder:    joinOrder,
		IsHost:       joinOrder == 1,
		IsConnected:  true,
		LastActiveAt: at,
		JoinedAt:     at,
	}
}

func (s *Suite) createGame(id model.GameID, code model.RoomCode) *model.Game {
	game := NewGame(id, code, baseTime)
	err := s.Storage.CreateGame(s.Ctx, game, NewMember(id, "host", 1, baseTime))
	s.Require().NoError(err)
	return game
}

func (s *Suite) addGuest(game *model.Game) {
	err := s.Storage.CommitGame(s.Ctx, &storage.GameChange{
		Game:            game,
		ExpectedVersion: game.Version,
		UpsertPlayers:   []*model.GamePlayer{NewMember(game.ID, "guest", 2, baseTime)},
	})
	s.Require().NoError(err)
}

func newGuess(game *model.Game, id model.GuessID, word string) *model.Guess {
	return &model.Guess{
		GameID:     game.ID,
		ID:         id,
		PlayerID:   "host",
		Word:       word,
		Distance:   420,
		Similarity: 0.73,
		TurnNumber: game.TurnNumber,
		Source:     model.RankSourceProvider,
		Timestamp:  baseTime.Add(time.Minute),
	}
}

// Player tests

func (s *Suite) TestSaveAndGetPlayer() {
	player := &model.Player{
		ID:          "player-1",
		Nickname:    "Alice",
		AvatarColor: "#FF0000",
		TotalGames:  3,
		TotalWins:   1,
		CreatedAt:   baseTime,
		UpdatedAt:   baseTime,
	}
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, player))

	retrieved, err := s.Storage.GetPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("Alice", retrieved.Nickname)
	s.Equal("#FF0000", retrieved.AvatarColor)
	s.Equal(3, retrieved.TotalGames)
	s.Equal(1, retrieved.TotalWins)
	s.WithinDuration(baseTime, retrieved.CreatedAt, time.Millisecond)
}

func (s *Suite) TestSavePlayerOverwrites() {
	player := &model.Player{ID: "player-1", Nickname: "Alice", CreatedAt: baseTime, UpdatedAt: baseTime}
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, player))

	player.Nickname = "Alicia"
	player.TotalWins = 2
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, player))

	retrieved, err := s.Storage.GetPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("Alicia", retrieved.Nickname)
	s.Equal(2, retrieved.TotalWins)
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Storage.GetPlayer(s.Ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Game tests

func (s *Suite) TestCreateAndLoadGame() {
	game := s.createGame("game-1", "ABCDEF")
	s.Equal(int64(1), game.Version)

	state, err := s.Storage.LoadGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(model.GameID("game-1"), state.Game.ID)
	s.Equal(model.RoomCode("ABCDEF"), state.Game.RoomCode)
	s.Equal("planet", state.Game.SecretWord)
	s.Equal(model.GameStatusWaiting, state.Game.Status)
	s.Equal(60*time.Second, state.Game.TurnDuration)
	s.Equal(int64(1), state.Game.Version)
	s.Require().Len(state.Players, 1)
	s.Equal(model.PlayerID("host"), state.Players[0].PlayerID)
	s.True(state.Players[0].IsHost)
	s.True(state.Players[0].IsConnected)
	s.Empty(state.Guesses)

	g, err := s.Storage.GetGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(int64(1), g.Version)
}

func (s *Suite) TestCreateGameRoomCodeInUse() {
	s.createGame("game-1", "ABCDEF")

	game := NewGame("game-2", "ABCDEF", baseTime)
	err := s.Storage.CreateGame(s.Ctx, game, NewMember("game-2", "host", 1, baseTime))
	s.ErrorIs(err, model.ErrRoomCodeInUse)

	_, err = s.Storage.GetGame(s.Ctx, "game-2")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestGameNotFound() {
	_, err := s.Storage.GetGame(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)

	_, err = s.Storage.LoadGame(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)

	err = s.Storage.CommitGame(s.Ctx, &storage.GameChange{
		Game:            NewGame("missing", "ZZZZZZ", baseTime),
		ExpectedVersion: 1,
	})
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestFindGameByRoomCode() {
	s.createGame("game-1", "ABCDEF")

	id, err := s.Storage.FindGameByRoomCode(s.Ctx, "ABCDEF")
	s.Require().NoError(err)
	s.Equal(model.GameID("game-1"), id)

	_, err = s.Storage.FindGameByRoomCode(s.Ctx, "QQQQQQ")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestCommitGameBumpsVersion() {
	game := s.createGame("game-1", "ABCDEF")
	s.addGuest(game)
	s.Equal(int64(2), game.Version)

	game.Status = model.GameStatusActive
	game.CurrentTurnPlayerID = "host"
	game.TurnNumber = 1
	game.TurnStartedAt = baseTime
	err := s.Storage.CommitGame(s.Ctx, &storage.GameChange{
		Game:            game,
		ExpectedVersion: game.Version,
		AppendGuess:     newGuess(game, "guess-1", "rocket"),
	})
	s.Require().NoError(err)
	s.Equal(int64(3), game.Version)

	state, err := s.Storage.LoadGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(int64(3), state.Game.Version)
	s.Equal(model.GameStatusActive, state.Game.Status)
	s.Equal(1, state.Game.TurnNumber)
	s.Require().Len(state.Players, 2)
	s.Equal(model.PlayerID("host"), state.Players[0].PlayerID)
	s.Equal(model.PlayerID("guest"), state.Players[1].PlayerID)
	s.Require().Len(state.Guesses, 1)
	s.Equal("rocket", state.Guesses[0].Word)
	s.Equal(420, state.Guesses[0].Distance)
	s.InDelta(0.73, state.Guesses[0].Similarity, 1e-9)
	s.Equal(model.RankSourceProvider, state.Guesses[0].Source)
}

func (s *Suite) TestCommitGameVersionConflict() {
	game := s.createGame("game-1", "ABCDEF")
	stale := game.Clone()
	s.addGuest(game)

	stale.Status = model.GameStatusAbandoned
	err := s.Storage.CommitGame(s.Ctx, &storage.GameChange{
		Game:            stale,
		ExpectedVersion: stale.Version,
		AppendGuess:     newGuess(stale, "guess-1", "rocket"),
	})
	s.ErrorIs(err, model.ErrVersionConflict)

	state, err := s.Storage.LoadGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(model.GameStatusWaiting, state.Game.Status)
	s.Equal(int64(2), state.Game.Version)
	s.Empty(state.Guesses)
}

func (s *Suite) TestCommitGameDuplicateWord() {
	game := s.createGame("game-1", "ABCDEF")
	err := s.Storage.CommitGame(s.Ctx, &storage.GameChange{
		Game:            game,
		ExpectedVersion: game.Version,
		AppendGuess:     newGuess(game, "guess-1", "rocket"),
	})
	s.Require().NoError(err)

	game.TurnNumber = 2
	err = s.Storage.CommitGame(s.Ctx, &storage.GameChange{
		Game:            game,
		ExpectedVersion: game.Version,
		AppendGuess:     newGuess(game, "guess-2", "rocket"),
	})
	s.ErrorIs(err, model.ErrDuplicateWord)

	state, err := s.Storage.LoadGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Len(state.Guesses, 1)
	s.Equal(int64(2), state.Game.Version)
	s.Equal(0, state.Game.TurnNumber)
}

func (s *Suite) TestCommitGameKeepsGuessOrder() {
	game := s.createGame("game-1", "ABCDEF")
	for i, word := range []string{"zebra", "apple", "mango"} {
		guess := newGuess(game, model.GuessID(word), word)
		guess.Timestamp = baseTime.Add(time.Duration(i) * time.Second)
		err := s.Storage.CommitGame(s.Ctx, &storage.GameChange{
			Game:            game,
			ExpectedVersion: game.Version,
			AppendGuess:     guess,
		})
		s.Require().NoError(err)
	}

	state, err := s.Storage.LoadGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Require().Len(state.Guesses, 3)
	s.Equal("zebra", state.Guesses[0].Word)
	s.Equal("apple", state.Guesses[1].Word)
	s.Equal("mango", state.Guesses[2].Word)
}

func (s *Suite) TestCommitGameRemovesPlayer() {
	game := s.createGame("game-1", "ABCDEF")
	s.addGuest(game)

	err := s.Storage.CommitGame(s.Ctx, &storage.GameChange{
		Game:            game,
		ExpectedVersion: game.Version,
		RemovePlayers:   []model.PlayerID{"guest"},
	})
	s.Require().NoError(err)

	state, err := s.Storage.LoadGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Require().Len(state.Players, 1)
	s.Equal(model.PlayerID("host"), state.Players[0].PlayerID)
}

func (s *Suite) TestCommitGameUpdatesPlayer() {
	game := s.createGame("game-1", "ABCDEF")
	s.addGuest(game)

	guest := NewMember(game.ID, "guest", 2, baseTime)
	guest.IsReady = true
	guest.GuessCount = 4
	err := s.Storage.CommitGame(s.Ctx, &storage.GameChange{
		Game:            game,
		ExpectedVersion: game.Version,
		UpsertPlayers:   []*model.GamePlayer{guest},
	})
	s.Require().NoError(err)

	state, err := s.Storage.LoadGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Require().Len(state.Players, 2)
	s.True(state.Players[1].IsReady)
	s.Equal(4, state.Players[1].GuessCount)
}

func (s *Suite) TestTerminalGameReleasesRoomCode() {
	game := s.createGame("game-1", "ABCDEF")

	game.Status = model.GameStatusAbandoned
	game.EndedAt = baseTime.Add(time.Minute)
	err := s.Storage.CommitGame(s.Ctx, &storage.GameChange{Game: game, ExpectedVersion: game.Version})
	s.Require().NoError(err)

	_, err = s.Storage.FindGameByRoomCode(s.Ctx, "ABCDEF")
	s.ErrorIs(err, model.ErrRoomNotFound)

	s.createGame("game-2", "ABCDEF")
	id, err := s.Storage.FindGameByRoomCode(s.Ctx, "ABCDEF")
	s.Require().NoError(err)
	s.Equal(model.GameID("game-2"), id)

	old, err := s.Storage.GetGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(model.GameStatusAbandoned, old.Status)
}

func (s *Suite) TestTouchGamePlayer() {
	game := s.createGame("game-1", "ABCDEF")
	later := baseTime.Add(20 * time.Second)

	s.Require().NoError(s.Storage.TouchGamePlayer(s.Ctx, game.ID, "host", later))

	state, err := s.Storage.LoadGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.WithinDuration(later, state.Players[0].LastActiveAt, time.Millisecond)
	s.Equal(int64(1), state.Game.Version)

	err = s.Storage.TouchGamePlayer(s.Ctx, game.ID, "stranger", later)
	s.ErrorIs(err, model.ErrNotInGame)

	err = s.Storage.TouchGamePlayer(s.Ctx, "missing", "host", later)
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestListOpenGames() {
	for i, code := range []model.RoomCode{"AAAAAA", "BBBBBB", "CCCCCC"} {
		id := model.GameID(code)
		game := NewGame(id, code, baseTime.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(s.Storage.CreateGame(s.Ctx, game, NewMember(id, "host", 1, baseTime)))
	}
	private := NewGame("private", "PPPPPP", baseTime.Add(time.Hour))
	private.IsPublic = false
	s.Require().NoError(s.Storage.CreateGame(s.Ctx, private, NewMember("private", "host", 1, baseTime)))

	started, err := s.Storage.GetGame(s.Ctx, "BBBBBB")
	s.Require().NoError(err)
	started.Status = model.GameStatusActive
	s.Require().NoError(s.Storage.CommitGame(s.Ctx, &storage.GameChange{Game: started, ExpectedVersion: started.Version}))

	open, err := s.Storage.ListOpenGames(s.Ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(open, 2)
	s.Equal(model.GameID("CCCCCC"), open[0].Game.ID)
	s.Equal(model.GameID("AAAAAA"), open[1].Game.ID)
	s.Len(open[0].Players, 1)

	limited, err := s.Storage.ListOpenGames(s.Ctx, 1)
	s.Require().NoError(err)
	s.Len(limited, 1)
}

func (s *Suite) TestConcurrentCommitsOnlyOneWins() {
	game := s.createGame("game-1", "ABCDEF")

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g := game.Clone()
			g.TurnNumber = i + 1
			err := s.Storage.CommitGame(s.Ctx, &storage.GameChange{Game: g, ExpectedVersion: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case model.KindOf(err) == model.KindConflict:
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	s.Equal(1, succeeded)
	s.Equal(writers-1, conflicts)

	stored, err := s.Storage.GetGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(int64(2), stored.Version)
}

// Dictionary tests

func (s *Suite) TestDictionaryWords() {
	_, err := s.Storage.GetDictionaryWords(s.Ctx)
	s.ErrorIs(err, model.ErrDictionaryNotLoaded)

	s.Require().NoError(s.Storage.SaveDictionaryWords(s.Ctx, []string{"apple", "banana"}))
	words, err := s.Storage.GetDictionaryWords(s.Ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"apple", "banana"}, words)

	s.Require().NoError(s.Storage.SaveDictionaryWords(s.Ctx, []string{"cherry"}))
	words, err = s.Storage.GetDictionaryWords(s.Ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"cherry"}, words)
}
