package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Records are copied on the way in and out so callers never share memory with the store.
type Storage struct {
	mu sync.RWMutex

	players         map[model.PlayerID]*model.Player
	games           map[model.GameID]*gameRecord
	roomIndex       map[model.RoomCode]model.GameID
	dictionaryWords []string
}

type gameRecord struct {
	game    *model.Game
	players []*model.GamePlayer
	guesses []*model.Guess
	words   map[string]struct{}
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:   make(map[model.PlayerID]*model.Player),
		games:     make(map[model.GameID]*gameRecord),
		roomIndex: make(map[model.RoomCode]model.GameID),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *player
	s.players[player.ID] = &p
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	p := *player
	return &p, nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game, host *model.GamePlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.roomIndex[game.RoomCode]; taken {
		return model.ErrRoomCodeInUse
	}
	if _, exists := s.games[game.ID]; exists {
		return model.ErrConflict.Withf("game %s already exists", game.ID)
	}

	game.Version = 1
	s.games[game.ID] = &gameRecord{
		game:    game.Clone(),
		players: []*model.GamePlayer{host.Clone()},
		words:   make(map[string]struct{}),
	}
	s.roomIndex[game.RoomCode] = game.ID
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return rec.game.Clone(), nil
}

func (s *Storage) LoadGame(ctx context.Context, id model.GameID) (*model.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return rec.snapshot(), nil
}

func (s *Storage) FindGameByRoomCode(ctx context.Context, code model.RoomCode) (model.GameID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.roomIndex[code]
	if !ok {
		return "", model.ErrRoomNotFound
	}
	return id, nil
}

func (s *Storage) ListOpenGames(ctx context.Context, limit int) ([]*model.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var open []*model.GameState
	for _, rec := range s.games {
		if rec.game.Status == model.GameStatusWaiting && rec.game.IsPublic {
			open = append(open, rec.snapshot())
		}
	}
	slices.SortFunc(open, func(a, b *model.GameState) int {
		return b.Game.CreatedAt.Compare(a.Game.CreatedAt)
	})
	if limit > 0 && len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

func (s *Storage) CommitGame(ctx context.Context, change *storage.GameChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.games[change.Game.ID]
	if !ok {
		return model.ErrGameNotFound
	}
	if rec.game.Version != change.ExpectedVersion {
		return model.ErrVersionConflict
	}
	if g := change.AppendGuess; g != nil {
		if _, dup := rec.words[g.Word]; dup {
			return model.ErrDuplicateWord
		}
	}

	change.Game.Version = change.ExpectedVersion + 1
	rec.game = change.Game.Clone()

	for _, id := range change.RemovePlayers {
		rec.players = slices.DeleteFunc(rec.players, func(p *model.GamePlayer) bool {
			return p.PlayerID == id
		})
	}
	for _, up := range change.UpsertPlayers {
		idx := slices.IndexFunc(rec.players, func(p *model.GamePlayer) bool {
			return p.PlayerID == up.PlayerID
		})
		if idx >= 0 {
			rec.players[idx] = up.Clone()
		} else {
			rec.players = append(rec.players, up.Clone())
		}
	}
	slices.SortFunc(rec.players, func(a, b *model.GamePlayer) int {
		return a.JoinOrder - b.JoinOrder
	})

	if g := change.AppendGuess; g != nil {
		guess := *g
		rec.guesses = append(rec.guesses, &guess)
		rec.words[g.Word] = struct{}{}
	}

	if rec.game.Status.IsTerminal() && s.roomIndex[rec.game.RoomCode] == rec.game.ID {
		delete(s.roomIndex, rec.game.RoomCode)
	}
	return nil
}

func (s *Storage) TouchGamePlayer(ctx context.Context, gameID model.GameID, playerID model.PlayerID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.games[gameID]
	if !ok {
		return model.ErrGameNotFound
	}
	for _, p := range rec.players {
		if p.PlayerID == playerID {
			p.LastActiveAt = at
			return nil
		}
	}
	return model.ErrNotInGame
}

func (r *gameRecord) snapshot() *model.GameState {
	state := &model.GameState{
		Game:    r.game.Clone(),
		Players: make([]*model.GamePlayer, len(r.players)),
		Guesses: make([]*model.Guess, len(r.guesses)),
	}
	for i, p := range r.players {
		state.Players[i] = p.Clone()
	}
	for i, g := range r.guesses {
		guess := *g
		state.Guesses[i] = &guess
	}
	return state
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dictionaryWords == nil {
		return nil, model.ErrDictionaryNotLoaded
	}
	return slices.Clone(s.dictionaryWords), nil
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dictionaryWords = make([]string, len(words))
	copy(s.dictionaryWords, words)
	return nil
}
