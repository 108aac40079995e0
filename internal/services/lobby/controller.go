package lobby

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/dependencies/clock"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/dependencies/random"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/events"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/supervisor"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage"
)

const (
	// RoomCodeLength is the length of generated room codes
	RoomCodeLength = 6
	// RoomCodeAlphabet is the characters used in room codes (avoid confusing chars)
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// maxRoomCodeAttempts bounds the retries on a room code collision
	maxRoomCodeAttempts = 10

	DefaultListLimit = 20
	MaxListLimit     = 100
)

// PlayerDirectory resolves player profiles
type PlayerDirectory interface {
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
}

// SecretSource supplies the secret word for new games
type SecretSource interface {
	Today() (word, lemma string)
}

// Controller runs the WAITING phase of a game: creation, joining, readiness and start
type Controller struct {
	storage    storage.Storage
	players    PlayerDirectory
	secrets    SecretSource
	supervisor *supervisor.Supervisor
	publisher  events.Publisher
	clock      clock.Clock
	random     random.Random
	logger     *slog.Logger
}

// NewController creates a new lobby Controller
func NewController(
	storage storage.Storage,
	players PlayerDirectory,
	secrets SecretSource,
	supervisor *supervisor.Supervisor,
	publisher events.Publisher,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:    storage,
		players:    players,
		secrets:    secrets,
		supervisor: supervisor,
		publisher:  publisher,
		clock:      clock,
		random:     random,
		logger:     logger,
	}
}

// CreateGame creates a WAITING game with the given player as host
func (c *Controller) CreateGame(ctx context.Context, hostID model.PlayerID, cfg model.GameConfig) (*model.Game, error) {
	if !slices.Contains(model.AllowedTurnDurations, cfg.TurnDuration) {
		return nil, model.ErrInvalidGameConfig.Withf("turn duration must be one of 30, 60 or 90 seconds")
	}
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = model.MaxPlayersPerGame
	}
	if cfg.MaxPlayers != model.MaxPlayersPerGame {
		return nil, model.ErrInvalidGameConfig.Withf("max players must be %d", model.MaxPlayersPerGame)
	}

	host, err := c.players.GetPlayer(ctx, hostID)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	word, lemma := c.secrets.Today()
	game := &model.Game{
		ID:           model.GameID(c.random.ID()),
		SecretWord:   word,
		SecretLemma:  lemma,
		Status:       model.GameStatusWaiting,
		HostPlayerID: host.ID,
		TurnDuration: time.Duration(cfg.TurnDuration) * time.Second,
		MaxPlayers:   cfg.MaxPlayers,
		IsPublic:     cfg.IsPublic,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	member := newMember(game.ID, host, 1, now)
	member.IsHost = true

	for attempt := 0; attempt < maxRoomCodeAttempts; attempt++ {
		game.RoomCode = model.RoomCode(c.random.String(RoomCodeLength, RoomCodeAlphabet))
		err = c.storage.CreateGame(ctx, game, member)
		if errors.Is(err, model.ErrRoomCodeInUse) {
			c.logger.Debug("room code collision", slog.String("room_code", string(game.RoomCode)))
			continue
		}
		if err != nil {
			c.logger.Error("failed to create game",
				slog.String("game_id", string(game.ID)),
				slog.String("error", err.Error()),
			)
			return nil, err
		}

		c.logger.Info("game created",
			slog.String("game_id", string(game.ID)),
			slog.String("room_code", string(game.RoomCode)),
			slog.String("host_id", string(host.ID)),
			slog.Int("turn_duration", cfg.TurnDuration),
		)
		return game, nil
	}
	return nil, model.ErrRoomCodeExhausted
}

// JoinGame adds a player to the WAITING game holding roomCode. A player who
// is already a member gets the current state back and is marked connected.
func (c *Controller) JoinGame(ctx context.Context, roomCode string, playerID model.PlayerID) (*model.GameState, error) {
	code := model.RoomCode(strings.ToUpper(strings.TrimSpace(roomCode)))
	gameID, err := c.storage.FindGameByRoomCode(ctx, code)
	if err != nil {
		return nil, err
	}
	player, err := c.players.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		state, err := c.rejoinOrLoad(ctx, gameID, playerID)
		if err != nil {
			return nil, err
		}
		g := state.Game
		if g.Status.IsTerminal() {
			return nil, model.ErrRoomNotFound
		}
		if member := state.Member(playerID); member != nil {
			if !member.IsConnected && g.Status == model.GameStatusWaiting {
				return c.supervisor.Reconnect(ctx, state, playerID)
			}
			return state, nil
		}
		if g.Status != model.GameStatusWaiting {
			return nil, model.ErrRoomNotFound
		}

		now := c.clock.Now()
		change := &storage.GameChange{Game: g.Clone(), ExpectedVersion: g.Version}
		change.Game.UpdatedAt = now

		// a disconnected guest's seat is given to the new player
		if len(state.Players) >= g.MaxPlayers {
			for _, m := range state.Players {
				if !m.IsConnected && !m.IsHost {
					change.RemovePlayers = append(change.RemovePlayers, m.PlayerID)
					break
				}
			}
			if len(change.RemovePlayers) == 0 {
				return nil, model.ErrGameFull
			}
		}

		joinOrder := 1
		if n := len(state.Players); n > 0 {
			joinOrder = state.Players[n-1].JoinOrder + 1
		}
		member := newMember(g.ID, player, joinOrder, now)
		change.UpsertPlayers = []*model.GamePlayer{member}

		err = c.storage.CommitGame(ctx, change)
		if errors.Is(err, model.ErrVersionConflict) && attempt == 0 {
			continue
		}
		if err != nil {
			return nil, err
		}

		for _, removed := range change.RemovePlayers {
			c.publish(ctx, change.Game, model.EventPlayerLeft, removed,
				model.PlayerLeftPayload{PlayerID: removed, Nickname: state.Member(removed).Nickname})
		}
		c.publish(ctx, change.Game, model.EventPlayerJoined, playerID,
			model.PlayerJoinedPayload{PlayerID: playerID, Nickname: member.Nickname, JoinOrder: joinOrder})
		c.logger.Info("player joined game",
			slog.String("game_id", string(g.ID)),
			slog.String("player_id", string(playerID)),
			slog.Int("join_order", joinOrder),
		)
		return c.storage.LoadGame(ctx, g.ID)
	}
	return nil, model.ErrVersionConflict
}

// rejoinOrLoad records activity when the player is already a member, then loads the game
func (c *Controller) rejoinOrLoad(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.GameState, error) {
	state, err := c.supervisor.LoadAsMember(ctx, gameID, playerID)
	if errors.Is(err, model.ErrNotInGame) {
		return c.supervisor.Load(ctx, gameID)
	}
	return state, err
}

// SetReady updates a member's readiness while the game is waiting
func (c *Controller) SetReady(ctx context.Context, gameID model.GameID, playerID model.PlayerID, isReady bool) (*model.GamePlayer, error) {
	state, err := c.supervisor.LoadAsMember(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if state.Game.Status != model.GameStatusWaiting {
		return nil, model.ErrGameNotWaiting
	}

	now := c.clock.Now()
	member := state.Member(playerID).Clone()
	member.IsReady = isReady
	member.IsConnected = true
	member.LastActiveAt = now
	game := state.Game.Clone()
	game.UpdatedAt = now

	if err := c.storage.CommitGame(ctx, &storage.GameChange{
		Game:            game,
		ExpectedVersion: state.Game.Version,
		UpsertPlayers:   []*model.GamePlayer{member},
	}); err != nil {
		return nil, err
	}

	c.publish(ctx, game, model.EventPlayerReady, playerID,
		model.PlayerReadyPayload{PlayerID: playerID, IsReady: isReady})
	return member, nil
}

// StartGame moves a WAITING game to ACTIVE with the host taking the first turn.
// Requires at least two connected members, all of them ready.
func (c *Controller) StartGame(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.GameState, error) {
	state, err := c.supervisor.LoadAsMember(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if state.Game.HostPlayerID != playerID {
		return nil, model.ErrNotHost
	}
	if state.Game.Status != model.GameStatusWaiting {
		return nil, model.ErrGameNotWaiting
	}

	now := c.clock.Now()
	next := state.Clone()
	host := next.Member(playerID)
	host.IsConnected = true
	host.LastActiveAt = now

	if next.ConnectedCount() < 2 {
		return nil, model.ErrInsufficientPlayers
	}
	if !next.AllReady() {
		return nil, model.ErrPlayersNotReady
	}

	g := next.Game
	g.Status = model.GameStatusActive
	g.CurrentTurnPlayerID = host.PlayerID
	g.TurnNumber = 1
	g.TurnStartedAt = now
	g.StartedAt = now
	g.LastTurnEnd = model.TurnEndNone
	g.UpdatedAt = now

	if err := c.storage.CommitGame(ctx, &storage.GameChange{
		Game:            g,
		ExpectedVersion: state.Game.Version,
		UpsertPlayers:   []*model.GamePlayer{host},
	}); err != nil {
		return nil, err
	}

	var ids []model.PlayerID
	for _, p := range next.ConnectedPlayers() {
		ids = append(ids, p.PlayerID)
	}
	c.publish(ctx, g, model.EventGameStarted, playerID, model.GameStartedPayload{
		Players:             ids,
		CurrentTurnPlayerID: g.CurrentTurnPlayerID,
		TurnDuration:        g.TurnDuration,
	})
	c.logger.Info("game started",
		slog.String("game_id", string(g.ID)),
		slog.Int("player_count", len(ids)),
	)
	return next, nil
}

// ListOpenGames returns public WAITING games with a free seat, newest first
func (c *Controller) ListOpenGames(ctx context.Context, limit int) ([]*model.GameSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	states, err := c.storage.ListOpenGames(ctx, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]*model.GameSummary, 0, len(states))
	for _, st := range states {
		g := st.Game
		if len(st.Players) >= g.MaxPlayers {
			continue
		}
		summary := &model.GameSummary{
			ID:           g.ID,
			RoomCode:     g.RoomCode,
			HostPlayerID: g.HostPlayerID,
			TurnDuration: g.TurnDuration,
			PlayerCount:  len(st.Players),
			MaxPlayers:   g.MaxPlayers,
			CreatedAt:    g.CreatedAt,
		}
		if host := st.Member(g.HostPlayerID); host != nil {
			summary.HostNickname = host.Nickname
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
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

func newMember(gameID model.GameID, player *model.Player, joinOrder int, now time.Time) *model.GamePlayer {
	return &model.GamePlayer{
		GameID:       gameID,
		PlayerID:     player.ID,
		Nickname:     player.Nickname,
		AvatarColor:  player.AvatarColor,
		JoinOrder:    joinOrder,
		IsConnected:  true,
		LastActiveAt: now,
		JoinedAt:     now,
	}
}

// ControllerInterface is the lobby surface used by the API
type ControllerInterface interface {
	CreateGame(ctx context.Context, hostID model.PlayerID, cfg model.GameConfig) (*model.Game, error)
	JoinGame(ctx context.Context, roomCode string, playerID model.PlayerID) (*model.GameState, error)
	SetReady(ctx context.Context, gameID model.GameID, playerID model.PlayerID, isReady bool) (*model.GamePlayer, error)
	StartGame(ctx context.Context, gameID model.GameID, playerID model.PlayerID) (*model.GameState, error)
	ListOpenGames(ctx context.Context, limit int) ([]*model.GameSummary, error)
}

var _ ControllerInterface = (*Controller)(nil)
