package response

import (
	"time"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/game"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/supervisor"
)

// Player represents a player profile in API responses
type Player struct {
	ID          string    `json:"id"`
	Nickname    string    `json:"nickname"`
	AvatarColor string    `json:"avatarColor"`
	TotalGames  int       `json:"totalGames"`
	TotalWins   int       `json:"totalWins"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		Nickname:    p.Nickname,
		AvatarColor: p.AvatarColor,
		TotalGames:  p.TotalGames,
		TotalWins:   p.TotalWins,
		CreatedAt:   p.CreatedAt,
	}
}

// Member represents a player's seat in a game
type Member struct {
	PlayerID     string    `json:"playerId"`
	Nickname     string    `json:"nickname"`
	AvatarColor  string    `json:"avatarColor"`
	JoinOrder    int       `json:"joinOrder"`
	IsHost       bool      `json:"isHost"`
	IsReady      bool      `json:"isReady"`
	IsConnected  bool      `json:"isConnected"`
	GuessCount   int       `json:"guessCount"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

// MemberFromModel converts a membership; ready reflects the readiness predicate
func MemberFromModel(m *model.GamePlayer, ready bool) Member {
	return Member{
		PlayerID:     string(m.PlayerID),
		Nickname:     m.Nickname,
		AvatarColor:  m.AvatarColor,
		JoinOrder:    m.JoinOrder,
		IsHost:       m.IsHost,
		IsReady:      ready,
		IsConnected:  m.IsConnected,
		GuessCount:   m.GuessCount,
		LastActiveAt: m.LastActiveAt,
	}
}

// Game represents the game record. SecretWord is only set once the game is over.
type Game struct {
	ID                  string     `json:"id"`
	RoomCode            string     `json:"roomCode"`
	Status              string     `json:"status"`
	HostPlayerID        string     `json:"hostPlayerId"`
	CurrentTurnPlayerID string     `json:"currentTurnPlayerId,omitempty"`
	TurnNumber          int        `json:"turnNumber"`
	TurnDuration        int        `json:"turnDuration"`
	TurnStartedAt       *time.Time `json:"turnStartedAt,omitempty"`
	TurnDeadline        *time.Time `json:"turnDeadline,omitempty"`
	MaxPlayers          int        `json:"maxPlayers"`
	IsPublic            bool       `json:"isPublic"`
	WinnerID            string     `json:"winnerId,omitempty"`
	SecretWord          string     `json:"secretWord,omitempty"`
	Version             int64      `json:"version"`
	CreatedAt           time.Time  `json:"createdAt"`
	StartedAt           *time.Time `json:"startedAt,omitempty"`
	EndedAt             *time.Time `json:"endedAt,omitempty"`
}

// GameFromModel converts a model.Game, hiding the secret word while the game is running
func GameFromModel(g *model.Game) Game {
	out := Game{
		ID:                  string(g.ID),
		RoomCode:            string(g.RoomCode),
		Status:              string(g.Status),
		HostPlayerID:        string(g.HostPlayerID),
		CurrentTurnPlayerID: string(g.CurrentTurnPlayerID),
		TurnNumber:          g.TurnNumber,
		TurnDuration:        int(g.TurnDuration / time.Second),
		MaxPlayers:          g.MaxPlayers,
		IsPublic:            g.IsPublic,
		WinnerID:            string(g.WinnerID),
		Version:             g.Version,
		CreatedAt:           g.CreatedAt,
		StartedAt:           timePtr(g.StartedAt),
		EndedAt:             timePtr(g.EndedAt),
	}
	if g.Status == model.GameStatusActive {
		out.TurnStartedAt = timePtr(g.TurnStartedAt)
		out.TurnDeadline = timePtr(g.TurnDeadline())
	}
	if g.Status.IsTerminal() {
		out.SecretWord = g.SecretWord
		out.CurrentTurnPlayerID = ""
	}
	return out
}

// Guess represents a submitted word and its distance
type Guess struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"playerId"`
	Word       string    `json:"word"`
	Distance   int       `json:"distance"`
	IsCorrect  bool      `json:"isCorrect"`
	TurnNumber int       `json:"turnNumber"`
	Timestamp  time.Time `json:"timestamp"`
}

// GuessFromModel converts a model.Guess
func GuessFromModel(g *model.Guess) Guess {
	return Guess{
		ID:         string(g.ID),
		PlayerID:   string(g.PlayerID),
		Word:       g.Word,
		Distance:   g.Distance,
		IsCorrect:  g.IsCorrect,
		TurnNumber: g.TurnNumber,
		Timestamp:  g.Timestamp,
	}
}

// GameState is the full view of a game: record, members and guesses closest first
type GameState struct {
	Game    Game     `json:"game"`
	Players []Member `json:"players"`
	Guesses []Guess  `json:"guesses"`
}

// GameStateFromModel converts a model.GameState
func GameStateFromModel(s *model.GameState) GameState {
	out := GameState{
		Game:    GameFromModel(s.Game),
		Players: make([]Member, 0, len(s.Players)),
		Guesses: make([]Guess, 0, len(s.Guesses)),
	}
	for _, p := range s.Players {
		out.Players = append(out.Players, MemberFromModel(p, s.IsReady(p)))
	}
	for _, g := range s.GuessesByDistance() {
		out.Guesses = append(out.Guesses, GuessFromModel(g))
	}
	return out
}

// CreateGameResponse is the response for POST /games
type CreateGameResponse struct {
	GameID   string `json:"gameId"`
	RoomCode string `json:"roomCode"`
	Status   string `json:"status"`
}

// CreateGameResponseFromModel converts a freshly created game
func CreateGameResponseFromModel(g *model.Game) CreateGameResponse {
	return CreateGameResponse{
		GameID:   string(g.ID),
		RoomCode: string(g.RoomCode),
		Status:   string(g.Status),
	}
}

// GuessResponse is the response for POST /games/{id}/guess
type GuessResponse struct {
	Guess            Guess  `json:"guess"`
	IsCorrect        bool   `json:"isCorrect"`
	GameStatus       string `json:"gameStatus"`
	WinnerID         string `json:"winnerId,omitempty"`
	NextTurnPlayerID string `json:"nextTurnPlayerId,omitempty"`
	TurnNumber       int    `json:"turnNumber"`
}

// GuessResponseFromOutcome converts a game.GuessOutcome
func GuessResponseFromOutcome(o *game.GuessOutcome) GuessResponse {
	return GuessResponse{
		Guess:            GuessFromModel(o.Guess),
		IsCorrect:        o.IsCorrect,
		GameStatus:       string(o.GameStatus),
		WinnerID:         string(o.WinnerID),
		NextTurnPlayerID: string(o.NextTurnPlayerID),
		TurnNumber:       o.TurnNumber,
	}
}

// TimeoutResponse is the response for POST /games/{id}/timeout
type TimeoutResponse struct {
	NextTurnPlayerID string `json:"nextTurnPlayerId,omitempty"`
	TurnNumber       int    `json:"turnNumber"`
	Status           string `json:"status"`
	Advanced         bool   `json:"advanced"`
}

// TimeoutResponseFromTurnInfo converts a supervisor.TurnInfo
func TimeoutResponseFromTurnInfo(t *supervisor.TurnInfo) TimeoutResponse {
	return TimeoutResponse{
		NextTurnPlayerID: string(t.NextTurnPlayerID),
		TurnNumber:       t.TurnNumber,
		Status:           string(t.Status),
		Advanced:         t.Advanced,
	}
}

// LeaveResponse is the response for POST /games/{id}/leave
type LeaveResponse struct {
	Left bool `json:"left"`
}

// GameSummary is an entry in the open games listing
type GameSummary struct {
	GameID       string    `json:"gameId"`
	RoomCode     string    `json:"roomCode"`
	HostPlayerID string    `json:"hostPlayerId"`
	HostNickname string    `json:"hostNickname"`
	TurnDuration int       `json:"turnDuration"`
	PlayerCount  int       `json:"playerCount"`
	MaxPlayers   int       `json:"maxPlayers"`
	CreatedAt    time.Time `json:"createdAt"`
}

// GameSummariesFromModel converts open game summaries
func GameSummariesFromModel(summaries []*model.GameSummary) []GameSummary {
	out := make([]GameSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, GameSummary{
			GameID:       string(s.ID),
			RoomCode:     string(s.RoomCode),
			HostPlayerID: string(s.HostPlayerID),
			HostNickname: s.HostNickname,
			TurnDuration: int(s.TurnDuration / time.Second),
			PlayerCount:  s.PlayerCount,
			MaxPlayers:   s.MaxPlayers,
			CreatedAt:    s.CreatedAt,
		})
	}
	return out
}

// Health is the response for GET /health
type Health struct {
	Status string `json:"status"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
