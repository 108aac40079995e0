package game

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/dependencies/clock"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/events"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/guess"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/supervisor"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage"
)

// GuessOutcome is the result of an accepted guess
type GuessOutcome struct {
	Guess            *model.Guess
	IsCorrect        bool
	GameStatus       model.GameStatus
	WinnerID         model.PlayerID
	NextTurnPlayerID model.PlayerID
	TurnNumber       int
}

// Submitter validates and scores a raw guess
type Submitter interface {
	Submit(ctx context.Context, state *model.GameState, playerID model.PlayerID, rawWord string) (*guess.Outcome, error)
}

// Controller runs the ACTIVE phase of a game and membership changes after creation
type Controller struct {
	storage    storage.Storage
	guesses    Submitter
	supervisor *supervisor.Supervisor
	publisher  events.Publisher
	clock      clock.Clock
	logger     *slog.Logger
}

// NewController creates a new game Controller
func NewController(
	storage storage.Storage,
	guesses Submitter,
	supervisor *supervisor.Supervisor,
	publisher events.Publisher,
	clock clock.Clock,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:    storage,
		guesses:    guesses,
		supervisor: supervisor,
		publisher:  publisher,
		clock:      clock,
		logger:     logger,
	}
}

// GetState returns the current state after resolving pending disconnects
func (c *Controller) GetState(ctx context.Context, gameID model.GameID) (*model.GameState, error) {
	return c.supervisor.Load(ctx, gameID)
}

// ProcessGuess submits a word for the player whose turn it is. The guess and
// the turn change are one conditional write; a concurrent writer makes this
// call fail with model.ErrVersionConflict and nothing is stored.
func (c *Controller) ProcessGuess(ctx context.Context, gameID model.GameID, playerID model.PlayerID, word string) (*GuessOutcome, error) {
	state, err := c.supervisor.LoadAsMember(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}

	g := state.Game
	if g.Status != model.GameStatusActive {
		return nil, model.ErrGameNotActive
	}
	if g.CurrentTurnPlayerID != playerID {
		return nil, model.ErrNotYourTurn
	}

	outcome, err := c.guesses.Submit(ctx, state, playerID, word)
	if err != nil {
		return nil, err
	}
	gs := outcome.Guess

	now := c.clock.Now()
	next := g.Clone()
	next.UpdatedAt = now
	if gs.IsCorrect {
		next.Status = model.GameStatusCompleted
		next.WinnerID = playerID
		next.EndedAt = now
	} else {
		next.CurrentTurnPlayerID = state.NextTurnPlayer(playerID)
		next.TurnNumber++
		next.TurnStartedAt = now
		next.LastTurnEnd = model.TurnEndGuess
	}

	member := state.Member(playerID).Clone()
	member.GuessCount++
	member.LastActiveAt = now

	if err := c.storage.CommitGame(ctx, &storage.GameChange{
		Game:            next,
		ExpectedVersion: g.Version,
		UpsertPlayers:   []*model.GamePlayer{member},
		AppendGuess:     gs,
	}); err != nil {
		if !errors.Is(err, model.ErrVersionConflict) && !errors.Is(err, model.ErrDuplicateWord) {
			c.logger.Error("failed to commit guess",
				slog.String("game_id", string(gameID)),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	result := &GuessOutcome{
		Guess:      gs,
		IsCorrect:  gs.IsCorrect,
		GameStatus: next.Status,
		TurnNumber: next.TurnNumber,
	}
	payload := model.GuessMadePayload{
		PlayerID:  playerID,
		Word:      gs.Word,
		Distance:  gs.Distance,
		IsCorrect: gs.IsCorrect,
	}
	if gs.IsCorrect {
		result.WinnerID = playerID
	} else {
		result.NextTurnPlayerID = next.CurrentTurnPlayerID
		payload.NextTurnPlayerID = next.CurrentTurnPlayerID
	}

	c.logger.Info("guess made",
		slog.String("game_id", string(gameID)),
		slog.String("player_id", string(playerID)),
		slog.Int("distance", gs.Distance),
		slog.Int("turn_number", gs.TurnNumber),
		slog.Bool("correct", gs.IsCorrect),
	)
	c.publish(ctx, next, model.EventGuessMade, playerID, payload)

	if gs.IsCorrect {
		c.publish(ctx, next, model.EventGameCompleted, playerID, model.GameCompletedPayload{
			WinnerID:   playerID,
			SecretWord: next.SecretWord,
			Reason:     supervisor.ReasonGuessed,
		})
		final := state.Clone()
		final.Game = next
		c.supervisor.Completed(ctx, final)
	}
	return result, nil
}

// LeaveGame removes a player. A host leaving a waiting game abandons it, a
// guest leaving a waiting game frees the seat, and anyone leaving an active
// game hands the win to the remaining player. Leaving a finished game is a no-op.
func (c *Controller) LeaveGame(ctx context.Context, gameID model.GameID, playerID model.PlayerID) error {
	for attempt := 0; attempt < 2; attempt++ {
		err := c.leave(ctx, gameID, playerID)
		if errors.Is(err, model.ErrVersionConflict) && attempt == 0 {
			continue
		}
		return err
	}
	return nil
}

func (c *Controller) leave(ctx context.Context, gameID model.GameID, playerID model.PlayerID) error {
	state, err := c.storage.LoadGame(ctx, gameID)
	if err != nil {
		return err
	}
	member := state.Member(playerID)
	if member == nil {
		return model.ErrNotInGame
	}
	if state.Game.Status.IsTerminal() {
		return nil
	}

	now := c.clock.Now()
	next := state.Clone()
	g := next.Game
	g.UpdatedAt = now
	change := &storage.GameChange{Game: g, ExpectedVersion: state.Game.Version}
	left := model.PlayerLeftPayload{PlayerID: playerID, Nickname: member.Nickname}

	switch {
	case g.Status == model.GameStatusWaiting && g.HostPlayerID == playerID:
		g.Status = model.GameStatusAbandoned
		g.EndedAt = now
	case g.Status == model.GameStatusWaiting:
		change.RemovePlayers = []model.PlayerID{playerID}
	default:
		leaver := next.Member(playerID)
		leaver.IsConnected = false
		leaver.LastActiveAt = now
		change.UpsertPlayers = []*model.GamePlayer{leaver}
		if opponent := next.Opponent(playerID); opponent != nil {
			g.Status = model.GameStatusCompleted
			g.WinnerID = opponent.PlayerID
		} else {
			g.Status = model.GameStatusAbandoned
		}
		g.EndedAt = now
	}

	if err := c.storage.CommitGame(ctx, change); err != nil {
		return err
	}

	c.logger.Info("player left game",
		slog.String("game_id", string(gameID)),
		slog.String("player_id", string(playerID)),
		slog.String("status", string(g.Status)),
	)
	c.publish(ctx, g, model.EventPlayerLeft, playerID, left)
	switch g.Status {
	case model.GameStatusAbandoned:
		c.publish(ctx, g, model.EventGameAbandoned, playerID, model.GameAbandonedPayload{Reason: abandonReason(state.Game, playerID)})
	case model.GameStatusCompleted:
		c.publish(ctx, g, model.EventGameCompleted, g.WinnerID, model.GameCompletedPayload{
			WinnerID:   g.WinnerID,
			SecretWord: g.SecretWord,
			Reason:     supervisor.ReasonOpponentLeft,
		})
		c.supervisor.Completed(ctx, next)
	}
	return nil
}

// abandonReason names why a leave by playerID abandons the game
func abandonReason(g *model.Game, playerID model.PlayerID) string {
	if g.Status == model.GameStatusWaiting && g.HostPlayerID == playerID {
		return supervisor.ReasonHostLeft
	}
	return supervisor.ReasonAllDisconnected
}

// ForceTimeout reports that the current turn has run out
func (c *Controller) ForceTimeout(ctx context.Context, gameID model.GameID, playerID model.PlayerID, expectedTurn int) (*supervisor.TurnInfo, error) {
	return c.supervisor.ForceTimeout(ctx, gameID, playerID, expectedTurn)
}

// Heartbeat records that a player is still present and returns the current state
func (c *Controller) Heartbeat(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.GameState, error) {
	return c.supervisor.Heartbeat(ctx, gameID, playerID)
}

func (c *Controller) publish(ctx context.Context, g *model.Game, typ model.EventType, playerID model.PlayerID, payload any) {
	c.publisher.Publish(ctx, &model.Event{
		Type:       typ,
		Timestamp:  c.clock.Now(),
		GameID:     g.ID,
		PlayerID:   playerID,
		TurnNumber: g.TurnNumber,
		Version:    g.Version,
		Payload:    payload,
	})
}

// ControllerInterface is the game surface used by the API
type ControllerInterface interface {
	GetState(ctx context.Context, gameID model.GameID) (*model.GameState, error)
	ProcessGuess(ctx context.Context, gameID model.GameID, playerID model.PlayerID, word string) (*GuessOutcome, error)
	LeaveGame(ctx context.Context, gameID model.GameID, playerID model.PlayerID) error
	ForceTimeout(ctx context.Context, gameID model.GameID, playerID model.PlayerID, expectedTurn int) (*supervisor.TurnInfo, error)
	Heartbeat(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.GameState, error)
}

var _ ControllerInterface = (*Controller)(nil)
