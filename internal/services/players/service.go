// Package players manages player profiles and their win statistics.
package players

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/dependencies/clock"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/dependencies/random"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/storage"
)

const (
	DefaultNickname   = "Player"
	MaxNicknameLength = 24
)

// Palette is the set of avatar colours handed out to new players
var Palette = []string{
	"#E74C3C", "#E67E22", "#F1C40F", "#2ECC71",
	"#1ABC9C", "#3498DB", "#9B59B6", "#34495E",
}

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ProfileUpdate holds the fields a player may change; empty fields are left as they are
type ProfileUpdate struct {
	Nickname    string
	AvatarColor string
}

// Service handles player profiles
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random

	// serializes read-modify-write of player records
	mu sync.Mutex
}

// New creates a new players Service
func New(storage storage.Storage, clock clock.Clock, random random.Random) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		random:  random,
	}
}

// CreatePlayer creates a player with an opaque id.
// An empty nickname becomes DefaultNickname; an empty colour is picked from the Palette.
func (s *Service) CreatePlayer(ctx context.Context, nickname, avatarColor string) (*model.Player, error) {
	nickname, err := normalizeNickname(nickname, DefaultNickname)
	if err != nil {
		return nil, err
	}
	if avatarColor == "" {
		avatarColor = Palette[s.random.Intn(len(Palette))]
	}
	if !colorPattern.MatchString(avatarColor) {
		return nil, model.ErrInvalidProfile.Withf("avatar colour must look like #RRGGBB")
	}

	now := s.clock.Now()
	player := &model.Player{
		ID:          model.PlayerID(s.random.ID()),
		Nickname:    nickname,
		AvatarColor: strings.ToUpper(avatarColor),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}
	return player, nil
}

// GetPlayer returns a player by id
func (s *Service) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return s.storage.GetPlayer(ctx, id)
}

// UpdateProfile changes a player's nickname and/or avatar colour
func (s *Service) UpdateProfile(ctx context.Context, id model.PlayerID, update ProfileUpdate) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, err := s.storage.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Nickname != "" {
		nickname, err := normalizeNickname(update.Nickname, player.Nickname)
		if err != nil {
			return nil, err
		}
		player.Nickname = nickname
	}
	if update.AvatarColor != "" {
		if !colorPattern.MatchString(update.AvatarColor) {
			return nil, model.ErrInvalidProfile.Withf("avatar colour must look like #RRGGBB")
		}
		player.AvatarColor = strings.ToUpper(update.AvatarColor)
	}
	player.UpdatedAt = s.clock.Now()

	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, err
	}
	return player, nil
}

// RecordResult adds a finished game to every participant and a win to the winner
func (s *Service) RecordResult(ctx context.Context, participants []model.PlayerID, winnerID model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for _, id := range participants {
		player, err := s.storage.GetPlayer(ctx, id)
		if err != nil {
			return err
		}
		player.TotalGames++
		if id == winnerID {
			player.TotalWins++
		}
		player.UpdatedAt = now
		if err := s.storage.SavePlayer(ctx, player); err != nil {
			return err
		}
	}
	return nil
}

func normalizeNickname(nickname, fallback string) (string, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return fallback, nil
	}
	if utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return "", model.ErrInvalidProfile.Withf("nickname must be at most %d characters", MaxNicknameLength)
	}
	return nickname, nil
}

// ServiceInterface is the players surface used by the game services and the API
type ServiceInterface interface {
	CreatePlayer(ctx context.Context, nickname, avatarColor string) (*model.Player, error)
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	UpdateProfile(ctx context.Context, id model.PlayerID, update ProfileUpdate) (*model.Player, error)
	RecordResult(ctx context.Context, participants []model.PlayerID, winnerID model.PlayerID) error
}

var _ ServiceInterface = (*Service)(nil)
