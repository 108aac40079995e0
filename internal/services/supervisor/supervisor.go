// Package supervisor resolves time-based game transitions. Nothing runs in the
// background: turn timeouts and disconnects are evaluated when a client reads
// state, sends a heartbeat or reports a timeout.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/dependencies/clock"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/events"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage"
)

// Completion reasons carried on game_completed / game_abandoned events
const (
	ReasonGuessed              = "guessed"
	ReasonOpponentLeft         = "opponent_left"
	ReasonOpponentDisconnected = "opponent_disconnected"
	ReasonHostLeft             = "host_left"
	ReasonAllDisconnected      = "all_disconnected"
)

// Config holds the supervisor's tolerances
type Config struct {
	// Buffer is subtracted from the turn duration before a timeout is accepted,
	// and is the window in which a repeated timeout report is a no-op
	Buffer time.Duration `yaml:"buffer"`
	// DisconnectThreshold is how long a member may go without activity
	DisconnectThreshold time.Duration `yaml:"disconnect_threshold"`
}

// DefaultConfig returns default supervisor settings
func DefaultConfig() Config {
	return Config{
		Buffer:              5 * time.Second,
		DisconnectThreshold: 30 * time.Second,
	}
}

// ResultRecorder stores finished-game statistics
type ResultRecorder interface {
	RecordResult(ctx context.Context, participants []model.PlayerID, winnerID model.PlayerID) error
}

// TurnInfo describes the turn after a timeout report
type TurnInfo struct {
	NextTurnPlayerID model.PlayerID
	TurnNumber       int
	Status           model.GameStatus
	// Advanced is false when the report was a no-op
	Advanced bool
}

// Supervisor applies turn timeouts and disconnect resolution
type Supervisor struct {
	storage   storage.Storage
	results   ResultRecorder
	publisher events.Publisher
	clock     clock.Clock
	cfg       Config
	logger    *slog.Logger
}

// New creates a Supervisor
func New(
	storage storage.Storage,
	results ResultRecorder,
	publisher events.Publisher,
	clock clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Supervisor {
	defaults := DefaultConfig()
	if cfg.Buffer == 0 {
		cfg.Buffer = defaults.Buffer
	}
	if cfg.DisconnectThreshold == 0 {
		cfg.DisconnectThreshold = defaults.DisconnectThreshold
	}
	return &Supervisor{
		storage:   storage,
		results:   results,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "supervisor")),
	}
}

// Config returns the effective settings
func (s *Supervisor) Config() Config {
	return s.cfg
}

// Load reads a game and resolves any pending disconnects
func (s *Supervisor) Load(ctx context.Context, gameID model.GameID) (*model.GameState, error) {
	state, err := s.storage.LoadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return s.Reconcile(ctx, state)
}

// LoadAsMember records activity for playerID and then loads the game.
// Returns model.ErrNotInGame if the player is not a member.
func (s *Supervisor) LoadAsMember(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.GameState, error) {
	if err := s.storage.TouchGamePlayer(ctx, gameID, playerID, s.clock.Now()); err != nil {
		return nil, err
	}
	return s.Load(ctx, gameID)
}

// Reconcile marks members without recent activity as disconnected. In an
// active game this ends the game like a leave: the remaining connected player
// wins, or the game is abandoned when nobody is left. A lost race is retried
// once against fresh state; after that the fresh state is returned as is.
func (s *Supervisor) Reconcile(ctx context.Context, state *model.GameState) (*model.GameState, error) {
	for attempt := 0; attempt < 2; attempt++ {
		next, evts, ok := s.resolveDisconnects(state)
		if !ok {
			return state, nil
		}

		change := &storage.GameChange{
			Game:            next.Game,
			ExpectedVersion: state.Game.Version,
			UpsertPlayers:   changedMembers(state, next),
		}
		err := s.storage.CommitGame(ctx, change)
		if err == nil {
			s.afterCommit(ctx, next, evts)
			return next, nil
		}
		if !errors.Is(err, model.ErrVersionConflict) {
			return nil, err
		}
		if state, err = s.storage.LoadGame(ctx, state.Game.ID); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// resolveDisconnects computes the state after marking stale members, without writing it
func (s *Supervisor) resolveDisconnects(state *model.GameState) (*model.GameState, []*model.Event, bool) {
	if state.Game.Status.IsTerminal() {
		return nil, nil, false
	}
	now := s.clock.Now()
	stale := state.StaleMembers(now, s.cfg.DisconnectThreshold)
	if len(stale) == 0 {
		return nil, nil, false
	}

	next := state.Clone()
	g := next.Game
	g.UpdatedAt = now

	var evts []*model.Event
	for _, m := range stale {
		member := next.Member(m.PlayerID)
		member.IsConnected = false
		evts = append(evts, s.event(g, model.EventPlayerDisconnected, m.PlayerID,
			model.PlayerDisconnectedPayload{PlayerID: m.PlayerID, LastActiveAt: m.LastActiveAt}))
		s.logger.Info("player disconnected",
			slog.String("game_id", string(g.ID)),
			slog.String("player_id", string(m.PlayerID)),
			slog.Duration("idle", now.Sub(m.LastActiveAt)),
		)
	}

	if g.Status == model.GameStatusActive {
		connected := next.ConnectedPlayers()
		switch {
		case len(connected) == 0:
			g.Status = model.GameStatusAbandoned
			g.EndedAt = now
			evts = append(evts, s.event(g, model.EventGameAbandoned, "",
				model.GameAbandonedPayload{Reason: ReasonAllDisconnected}))
		case len(connected) == 1:
			g.Status = model.GameStatusCompleted
			g.WinnerID = connected[0].PlayerID
			g.EndedAt = now
			evts = append(evts, s.event(g, model.EventGameCompleted, g.WinnerID,
				model.GameCompletedPayload{WinnerID: g.WinnerID, SecretWord: g.SecretWord, Reason: ReasonOpponentDisconnected}))
		default:
			if current := next.Member(g.CurrentTurnPlayerID); current != nil && !current.IsConnected {
				g.CurrentTurnPlayerID = next.NextTurnPlayer(current.PlayerID)
				g.TurnNumber++
				g.TurnStartedAt = now
				g.LastTurnEnd = model.TurnEndTimeout
			}
		}
	}
	return next, evts, true
}

// ForceTimeout advances the turn if the current one has run out.
// expectedTurn is the turn the caller believes has expired; 0 means the current turn.
func (s *Supervisor) ForceTimeout(ctx context.Context, gameID model.GameID, playerID model.PlayerID, expectedTurn int) (*TurnInfo, error) {
	for attempt := 0; attempt < 2; attempt++ {
		state, err := s.LoadAsMember(ctx, gameID, playerID)
		if err != nil {
			return nil, err
		}
		g := state.Game
		reporter := state.Member(playerID)

		current := &TurnInfo{NextTurnPlayerID: g.CurrentTurnPlayerID, TurnNumber: g.TurnNumber, Status: g.Status}
		if g.Status.IsTerminal() {
			return current, nil
		}
		if g.Status != model.GameStatusActive {
			return nil, model.ErrGameNotActive
		}
		if expectedTurn > 0 && expectedTurn < g.TurnNumber {
			return current, nil
		}

		now := s.clock.Now()
		elapsed := now.Sub(g.TurnStartedAt)
		if g.LastTurnEnd == model.TurnEndTimeout && elapsed < s.cfg.Buffer {
			return current, nil
		}
		if elapsed+s.cfg.Buffer < g.TurnDuration {
			return nil, model.ErrTurnNotExpired
		}

		next := g.Clone()
		skipped := next.CurrentTurnPlayerID
		next.CurrentTurnPlayerID = state.NextTurnPlayer(skipped)
		next.TurnNumber++
		next.TurnStartedAt = now
		next.LastTurnEnd = model.TurnEndTimeout
		next.UpdatedAt = now

		actor := reporter.Clone()
		actor.LastActiveAt = now

		err = s.storage.CommitGame(ctx, &storage.GameChange{
			Game:            next,
			ExpectedVersion: g.Version,
			UpsertPlayers:   []*model.GamePlayer{actor},
		})
		if errors.Is(err, model.ErrVersionConflict) && attempt == 0 {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("turn timed out",
			slog.String("game_id", string(g.ID)),
			slog.String("skipped_player_id", string(skipped)),
			slog.Int("turn_number", next.TurnNumber),
		)
		s.publish(ctx, s.event(next, model.EventTurnTimedOut, skipped,
			model.TurnTimedOutPayload{SkippedPlayerID: skipped, NextTurnPlayerID: next.CurrentTurnPlayerID}))

		return &TurnInfo{
			NextTurnPlayerID: next.CurrentTurnPlayerID,
			TurnNumber:       next.TurnNumber,
			Status:           next.Status,
			Advanced:         true,
		}, nil
	}
	return nil, model.ErrVersionConflict
}

// Heartbeat records activity for a member, reconnects them while the game is
// still waiting, then resolves any other member's disconnect.
func (s *Supervisor) Heartbeat(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.GameState, error) {
	state, err := s.LoadAsMember(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if member := state.Member(playerID); !member.IsConnected && state.Game.Status == model.GameStatusWaiting {
		return s.Reconnect(ctx, state, playerID)
	}
	return state, nil
}

// Reconnect marks a disconnected member of a waiting game as connected again
func (s *Supervisor) Reconnect(ctx context.Context, state *model.GameState, playerID model.PlayerID) (*model.GameState, error) {
	now := s.clock.Now()
	next := state.Clone()
	member := next.Member(playerID)
	member.IsConnected = true
	member.LastActiveAt = now
	next.Game.UpdatedAt = now

	err := s.storage.CommitGame(ctx, &storage.GameChange{
		Game:            next.Game,
		ExpectedVersion: state.Game.Version,
		UpsertPlayers:   []*model.GamePlayer{member},
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, s.event(next.Game, model.EventPlayerReconnected, playerID, nil))
	return next, nil
}

// Completed publishes the terminal events of a game and records player results.
// Callers invoke it after the terminal write has been accepted.
func (s *Supervisor) Completed(ctx context.Context, state *model.GameState) {
	g := state.Game
	if g.Status != model.GameStatusCompleted || s.results == nil {
		return
	}
	participants := make([]model.PlayerID, 0, len(state.Players))
	for _, p := range state.Players {
		participants = append(participants, p.PlayerID)
	}
	if err := s.results.RecordResult(ctx, participants, g.WinnerID); err != nil {
		s.logger.Error("failed to record game result",
			slog.String("game_id", string(g.ID)),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Supervisor) afterCommit(ctx context.Context, state *model.GameState, evts []*model.Event) {
	for _, e := range evts {
		e.Version = state.Game.Version
		s.publish(ctx, e)
	}
	s.Completed(ctx, state)
}

func (s *Supervisor) event(g *model.Game, typ model.EventType, playerID model.PlayerID, payload any) *model.Event {
	return &model.Event{
		Type:       typ,
		Timestamp:  s.clock.Now(),
		GameID:     g.ID,
		PlayerID:   playerID,
		TurnNumber: g.TurnNumber,
		Version:    g.Version,
		Payload:    payload,
	}
}

func (s *Supervisor) publish(ctx context.Context, e *model.Event) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, e)
	}
}

// changedMembers returns the members of next that differ from state
func changedMembers(state, next *model.GameState) []*model.GamePlayer {
	var changed []*model.GamePlayer
	for _, m := range next.Players {
		before := state.Member(m.PlayerID)
		if before == nil || *before != *m {
			changed = append(changed, m)
		}
	}
	return changed
}
