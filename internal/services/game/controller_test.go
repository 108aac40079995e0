package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/dependencies/mocks"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/events"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/dictionary"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/embedding"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/guess"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/lobby"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/players"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/ranking"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/supervisor"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage/memory"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/testutil"
)

type planetSecret struct{}

func (planetSecret) Today() (string, string) { return "planet", "planet" }

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	players    *players.Service
	recorder   *events.Recorder
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	lobby      *lobby.Controller
	controller *Controller
	ctx        context.Context

	alice *model.Player
	bob   *model.Player
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.ctx = context.Background()
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.recorder = events.NewRecorder(128)
	logger := testutil.NopLogger()

	dict := dictionary.New(s.storage)
	s.Require().NoError(dict.LoadWords([]string{"planet", "orbit", "moon", "banana", "rocket", "comet"}))
	engine, err := ranking.New(ranking.DefaultConfig(), embedding.NewVectorTable(map[string][]float64{
		"planet": {1, 0, 0},
		"orbit":  {0.95, 0.3, 0},
		"moon":   {0.7, 0.7, 0},
		"banana": {0, 0, 1},
	}), logger)
	s.Require().NoError(err)

	s.players = players.New(s.storage, s.clock, s.random)
	sup := supervisor.New(s.storage, s.players, s.recorder, s.clock, supervisor.DefaultConfig(), logger)
	processor := guess.New(dict, engine, s.clock, s.random, logger)
	s.lobby = lobby.NewController(s.storage, s.players, planetSecret{}, sup, s.recorder, s.clock, s.random, logger)
	s.controller = NewController(s.storage, processor, sup, s.recorder, s.clock, logger)

	s.alice = s.createPlayer("alice", "Alice")
	s.bob = s.createPlayer("bob", "Bob")
}

func (s *ControllerSuite) createPlayer(id, nickname string) *model.Player {
	s.random.QueueID(id)
	p, err := s.players.CreatePlayer(s.ctx, nickname, "#123456")
	s.Require().NoError(err)
	return p
}

// waitingGame creates a 60s game hosted by alice with bob joined
func (s *ControllerSuite) waitingGame() model.GameID {
	s.random.QueueID("game-1")
	s.random.QueueString("ABC234")
	g, err := s.lobby.CreateGame(s.ctx, s.alice.ID, model.GameConfig{TurnDuration: 60})
	s.Require().NoError(err)
	_, err = s.lobby.JoinGame(s.ctx, "ABC234", s.bob.ID)
	s.Require().NoError(err)
	s.recorder.Drain()
	return g.ID
}

// activeGame returns a started game where it is alice's turn
func (s *ControllerSuite) activeGame() model.GameID {
	id := s.waitingGame()
	_, err := s.lobby.SetReady(s.ctx, id, s.bob.ID, true)
	s.Require().NoError(err)
	_, err = s.lobby.StartGame(s.ctx, id, s.alice.ID)
	s.Require().NoError(err)
	s.recorder.Drain()
	return id
}

// idle advances the clock while both players keep heartbeating
func (s *ControllerSuite) idle(id model.GameID, d time.Duration) {
	const step = 20 * time.Second
	for d > 0 {
		adv := min(d, step)
		s.clock.Advance(adv)
		d -= adv
		_, err := s.controller.Heartbeat(s.ctx, id, s.alice.ID)
		s.Require().NoError(err)
		_, err = s.controller.Heartbeat(s.ctx, id, s.bob.ID)
		s.Require().NoError(err)
	}
}

func (s *ControllerSuite) load(id model.GameID) *model.GameState {
	state, err := s.storage.LoadGame(s.ctx, id)
	s.Require().NoError(err)
	return state
}

// ProcessGuess tests

func (s *ControllerSuite) TestCorrectGuessWins() {
	id := s.activeGame()

	out, err := s.controller.ProcessGuess(s.ctx, id, s.alice.ID, "Planet")
	s.Require().NoError(err)

	s.True(out.IsCorrect)
	s.Equal(0, out.Guess.Distance)
	s.Equal(model.GameStatusCompleted, out.GameStatus)
	s.Equal(s.alice.ID, out.WinnerID)

	state := s.load(id)
	s.Equal(model.GameStatusCompleted, state.Game.Status)
	s.Equal(s.alice.ID, state.Game.WinnerID)
	s.Equal(s.clock.Now(), state.Game.EndedAt)
	s.Require().Len(state.Guesses, 1)
	s.Equal(1, state.Member(s.alice.ID).GuessCount)

	evts := s.recorder.Drain()
	s.Require().Len(evts, 2)
	s.Equal(model.EventGuessMade, evts[0].Type)
	s.Equal(model.EventGameCompleted, evts[1].Type)
	completed := evts[1].Payload.(model.GameCompletedPayload)
	s.Equal(supervisor.ReasonGuessed, completed.Reason)
	s.Equal("planet", completed.SecretWord)

	alice, _ := s.players.GetPlayer(s.ctx, s.alice.ID)
	bob, _ := s.players.GetPlayer(s.ctx, s.bob.ID)
	s.Equal(1, alice.TotalWins)
	s.Equal(1, alice.TotalGames)
	s.Equal(0, bob.TotalWins)
	s.Equal(1, bob.TotalGames)
}

func (s *ControllerSuite) TestInflectedGuessWins() {
	id := s.activeGame()

	out, err := s.controller.ProcessGuess(s.ctx, id, s.alice.ID, "planets")
	s.Require().NoError(err)
	s.True(out.IsCorrect)
}

func (s *ControllerSuite) TestWrongGuessPassesTurn() {
	id := s.activeGame()
	s.clock.Advance(10 * time.Second)

	out, err := s.controller.ProcessGuess(s.ctx, id, s.alice.ID, "orbit")
	s.Require().NoError(err)

	s.False(out.IsCorrect)
	s.Greater(out.Guess.Distance, 0)
	s.Equal(model.GameStatusActive, out.GameStatus)
	s.Equal(s.bob.ID, out.NextTurnPlayerID)
	s.Equal(2, out.TurnNumber)
	s.Equal(1, out.Guess.TurnNumber)

	state := s.load(id)
	s.Equal(s.bob.ID, state.Game.CurrentTurnPlayerID)
	s.Equal(2, state.Game.TurnNumber)
	s.Equal(s.clock.Now(), state.Game.TurnStartedAt)
	s.Equal(model.TurnEndGuess, state.Game.LastTurnEnd)
	s.Equal([]model.EventType{model.EventGuessMade}, s.recorder.Types())
}

func (s *ControllerSuite) TestCloserWordRanksCloser() {
	id := s.activeGame()

	orbit, err := s.controller.ProcessGuess(s.ctx, id, s.alice.ID, "orbit")
	s.Require().NoError(err)
	banana, err := s.controller.ProcessGuess(s.ctx, id, s.bob.ID, "banana")
	s.Require().NoError(err)

	s.Less(orbit.Guess.Distance, banana.Guess.Distance)
}

func (s *ControllerSuite) TestUnembeddedWordUsesFallback() {
	id := s.activeGame()

	out, err := s.controller.ProcessGuess(s.ctx, id, s.alice.ID, "comet")
	s.Require().NoError(err)
	s.Equal(model.RankSourceFallback, out.Guess.Source)
	s.GreaterOrEqual(out.Guess.Distance, 1)
}

func (s *ControllerSuite) TestGuessNotYourTurn() {
	id := s.activeGame()

	_, err := s.controller.ProcessGuess(s.ctx, id, s.bob.ID, "orbit")
	s.ErrorIs(err, model.ErrNotYourTurn)
	s.Empty(s.load(id).Guesses)
}

func (s *ControllerSuite) TestGuessDuplicateWord() {
	id := s.activeGame()
	_, err := s.controller.ProcessGuess(s.ctx, id, s.alice.ID, "orbit")
	s.Require().NoError(err)

	_, err = s.controller.ProcessGuess(s.ctx, id, s.bob.ID, "ORBIT")
	s.ErrorIs(err, model.ErrDuplicateWord)

	state := s.load(id)
	s.Equal(s.bob.ID, state.Game.CurrentTurnPlayerID)
	s.Len(state.Guesses, 1)
}

func (s *ControllerSuite) TestGuessUnknownWord() {
	id := s.activeGame()

	_, err := s.controller.ProcessGuess(s.ctx, id, s.alice.ID, "xylophone")
	s.ErrorIs(err, model.ErrUnknownWord)

	state := s.load(id)
	s.Equal(s.alice.ID, state.Game.CurrentTurnPlayerID)
	s.Equal(1, state.Game.TurnNumber)
}

func (s *ControllerSuite) TestGuessMalformedWord() {
	id := s.activeGame()

	_, err := s.controller.ProcessGuess(s.ctx, id, s.alice.ID, "two words")
	s.ErrorIs(err, model.ErrInvalidWord)
}

func (s *ControllerSuite) TestGuessNotMember() {
	id := s.activeGame()
	carol := s.createPlayer("carol", "Carol")

	_, err := s.controller.ProcessGuess(s.ctx, id, carol.ID, "orbit")
	s.ErrorIs(err, model.ErrNotInGame)
}

func (s *ControllerSuite) TestGuessBeforeStart() {
	id := s.waitingGame()

	_, err := s.controller.ProcessGuess(s.ctx, id, s.alice.ID, "orbit")
	s.ErrorIs(err, model.ErrGameNotActive)
}

func (s *ControllerSuite) TestConcurrentGuessesCommitOnce() {
	id := s.activeGame()
	words := []string{"orbit", "moon", "banana", "rocket", "comet"}

	var wg sync.WaitGroup
	results := make([]error, len(words))
	for i, w := range words {
		wg.Add(1)
		go func(i int, w string) {
			defer wg.Done()
			_, results[i] = s.controller.ProcessGuess(s.ctx, id, s.alice.ID, w)
		}(i, w)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		s.True(
			model.KindOf(err) == model.KindConflict || model.KindOf(err) == model.KindPermission,
			"unexpected error: %v", err,
		)
	}
	s.Equal(1, succeeded)

	state := s.load(id)
	s.Len(state.Guesses, 1)
	s.Equal(2, state.Game.TurnNumber)
	s.Equal(s.bob.ID, state.Game.CurrentTurnPlayerID)
}

func (s *ControllerSuite) TestConcurrentCorrectGuessesWinOnce() {
	id := s.activeGame()

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.controller.ProcessGuess(s.ctx, id, s.alice.ID, "planet")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	s.Equal(1, succeeded)

	alice, _ := s.players.GetPlayer(s.ctx, s.alice.ID)
	s.Equal(1, alice.TotalWins)
	s.Len(s.load(id).Guesses, 1)
}

// ForceTimeout tests

func (s *ControllerSuite) TestTimeoutAdvancesTurn() {
	id := s.activeGame()
	s.idle(id, 60*time.Second)

	info, err := s.controller.ForceTimeout(s.ctx, id, s.bob.ID, 1)
	s.Require().NoError(err)
	s.True(info.Advanced)
	s.Equal(s.bob.ID, info.NextTurnPlayerID)
	s.Equal(2, info.TurnNumber)

	state := s.load(id)
	s.Equal(model.TurnEndTimeout, state.Game.LastTurnEnd)
	s.Equal(s.clock.Now(), state.Game.TurnStartedAt)

	evts := s.recorder.Drain()
	s.Require().NotEmpty(evts)
	last := evts[len(evts)-1]
	s.Equal(model.EventTurnTimedOut, last.Type)
	payload := last.Payload.(model.TurnTimedOutPayload)
	s.Equal(s.alice.ID, payload.SkippedPlayerID)
	s.Equal(s.bob.ID, payload.NextTurnPlayerID)
}

func (s *ControllerSuite) TestTimeoutIsIdempotent() {
	id := s.activeGame()
	s.idle(id, 60*time.Second)

	_, err := s.controller.ForceTimeout(s.ctx, id, s.bob.ID, 1)
	s.Require().NoError(err)

	again, err := s.controller.ForceTimeout(s.ctx, id, s.alice.ID, 1)
	s.Require().NoError(err)
	s.False(again.Advanced)
	s.Equal(2, again.TurnNumber)

	current, err := s.controller.ForceTimeout(s.ctx, id, s.alice.ID, 0)
	s.Require().NoError(err)
	s.False(current.Advanced)
	s.Equal(2, current.TurnNumber)
	s.Equal(2, s.load(id).Game.TurnNumber)
}

func (s *ControllerSuite) TestTimeoutAcceptedWithinBuffer() {
	id := s.activeGame()
	s.idle(id, 55*time.Second)

	info, err := s.controller.ForceTimeout(s.ctx, id, s.alice.ID, 1)
	s.Require().NoError(err)
	s.True(info.Advanced)
}

func (s *ControllerSuite) TestTimeoutTooEarly() {
	id := s.activeGame()
	s.idle(id, 40*time.Second)

	_, err := s.controller.ForceTimeout(s.ctx, id, s.bob.ID, 1)
	s.ErrorIs(err, model.ErrTurnNotExpired)
	s.Equal(1, s.load(id).Game.TurnNumber)
}

func (s *ControllerSuite) TestTimeoutBeforeStart() {
	id := s.waitingGame()

	_, err := s.controller.ForceTimeout(s.ctx, id, s.bob.ID, 0)
	s.ErrorIs(err, model.ErrGameNotActive)
}

func (s *ControllerSuite) TestTimeoutNotMember() {
	id := s.activeGame()
	carol := s.createPlayer("carol", "Carol")

	_, err := s.controller.ForceTimeout(s.ctx, id, carol.ID, 0)
	s.ErrorIs(err, model.ErrNotInGame)
}

func (s *ControllerSuite) TestFinishedGameIsFrozen() {
	id := s.activeGame()
	_, err := s.controller.ProcessGuess(s.ctx, id, s.alice.ID, "planet")
	s.Require().NoError(err)
	s.recorder.Drain()

	s.clock.Advance(5 * time.Minute)

	info, err := s.controller.ForceTimeout(s.ctx, id, s.bob.ID, 1)
	s.Require().NoError(err)
	s.False(info.Advanced)
	s.Equal(model.GameStatusCompleted, info.Status)

	_, err = s.controller.ProcessGuess(s.ctx, id, s.bob.ID, "orbit")
	s.ErrorIs(err, model.ErrGameNotActive)

	state, err := s.controller.GetState(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(1, state.Game.TurnNumber)
	s.Equal(s.alice.ID, state.Game.WinnerID)
	s.Empty(s.recorder.Types())
}

// Disconnect tests

func (s *ControllerSuite) TestDisconnectedOpponentLoses() {
	id := s.activeGame()
	s.clock.Advance(20 * time.Second)
	_, err := s.controller.Heartbeat(s.ctx, id, s.alice.ID)
	s.Require().NoError(err)
	s.clock.Advance(15 * time.Second)

	state, err := s.controller.GetState(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(model.GameStatusCompleted, state.Game.Status)
	s.Equal(s.alice.ID, state.Game.WinnerID)
	s.False(state.Member(s.bob.ID).IsConnected)

	evts := s.recorder.Drain()
	s.Require().Len(evts, 2)
	s.Equal(model.EventPlayerDisconnected, evts[0].Type)
	s.Equal(model.EventGameCompleted, evts[1].Type)
	s.Equal(supervisor.ReasonOpponentDisconnected, evts[1].Payload.(model.GameCompletedPayload).Reason)

	alice, _ := s.players.GetPlayer(s.ctx, s.alice.ID)
	s.Equal(1, alice.TotalWins)
}

func (s *ControllerSuite) TestEveryoneDisconnectedAbandons() {
	id := s.activeGame()
	s.clock.Advance(31 * time.Second)

	state, err := s.controller.GetState(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(model.GameStatusAbandoned, state.Game.Status)
	s.Empty(state.Game.WinnerID)
	s.Contains(s.recorder.Types(), model.EventGameAbandoned)
}

func (s *ControllerSuite) TestActingPlayerIsNeverStale() {
	id := s.activeGame()
	s.clock.Advance(20 * time.Second)
	_, err := s.controller.Heartbeat(s.ctx, id, s.bob.ID)
	s.Require().NoError(err)
	s.clock.Advance(15 * time.Second)

	// alice has been quiet for 35s but the guess itself counts as activity
	out, err := s.controller.ProcessGuess(s.ctx, id, s.alice.ID, "orbit")
	s.Require().NoError(err)
	s.Equal(model.GameStatusActive, out.GameStatus)
}

func (s *ControllerSuite) TestHeartbeatReturnsState() {
	id := s.activeGame()

	state, err := s.controller.Heartbeat(s.ctx, id, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(id, state.Game.ID)
	s.Equal(s.clock.Now(), state.Member(s.bob.ID).LastActiveAt)
}

// LeaveGame tests

func (s *ControllerSuite) TestLeaveActiveGameOpponentWins() {
	id := s.activeGame()

	s.Require().NoError(s.controller.LeaveGame(s.ctx, id, s.bob.ID))

	state := s.load(id)
	s.Equal(model.GameStatusCompleted, state.Game.Status)
	s.Equal(s.alice.ID, state.Game.WinnerID)
	s.False(state.Member(s.bob.ID).IsConnected)

	evts := s.recorder.Drain()
	s.Require().Len(evts, 2)
	s.Equal(model.EventPlayerLeft, evts[0].Type)
	s.Equal(model.EventGameCompleted, evts[1].Type)
	s.Equal(supervisor.ReasonOpponentLeft, evts[1].Payload.(model.GameCompletedPayload).Reason)
}

func (s *ControllerSuite) TestHostLeavingLobbyAbandons() {
	id := s.waitingGame()

	s.Require().NoError(s.controller.LeaveGame(s.ctx, id, s.alice.ID))

	state := s.load(id)
	s.Equal(model.GameStatusAbandoned, state.Game.Status)
	s.Equal([]model.EventType{model.EventPlayerLeft, model.EventGameAbandoned}, s.recorder.Types())

	_, err := s.lobby.JoinGame(s.ctx, "ABC234", s.bob.ID)
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ControllerSuite) TestGuestLeavingLobbyFreesSeat() {
	id := s.waitingGame()

	s.Require().NoError(s.controller.LeaveGame(s.ctx, id, s.bob.ID))

	state := s.load(id)
	s.Equal(model.GameStatusWaiting, state.Game.Status)
	s.Len(state.Players, 1)
	s.Nil(state.Member(s.bob.ID))

	carol := s.createPlayer("carol", "Carol")
	_, err := s.lobby.JoinGame(s.ctx, "ABC234", carol.ID)
	s.Require().NoError(err)
}

func (s *ControllerSuite) TestLeaveFinishedGameIsNoop() {
	id := s.activeGame()
	_, err := s.controller.ProcessGuess(s.ctx, id, s.alice.ID, "planet")
	s.Require().NoError(err)
	version := s.load(id).Game.Version

	s.Require().NoError(s.controller.LeaveGame(s.ctx, id, s.bob.ID))
	s.Equal(version, s.load(id).Game.Version)
}

func (s *ControllerSuite) TestLeaveNotMember() {
	id := s.activeGame()
	carol := s.createPlayer("carol", "Carol")

	err := s.controller.LeaveGame(s.ctx, id, carol.ID)
	s.ErrorIs(err, model.ErrNotInGame)
}

func (s *ControllerSuite) TestGetStateUnknownGame() {
	_, err := s.controller.GetState(s.ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}
