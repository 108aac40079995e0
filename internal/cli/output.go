package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case CreatedGame:
		o.printCreatedGame(v)
	case []GameSummary:
		o.printGameList(v)
	case Member:
		o.printMember(v)
	case GameState:
		o.printGameState(v)
	case GuessResult:
		o.printGuessResult(v)
	case TimeoutResult:
		o.printTimeoutResult(v)
	case HealthResult:
		fmt.Fprintf(o.w, "Server status: %s\n", v.Status)
	default:
		o.printJSON(data)
	}
}

// Response types (match the server's JSON)

// Player is a player profile
type Player struct {
	ID          string    `json:"id"`
	Nickname    string    `json:"nickname"`
	AvatarColor string    `json:"avatarColor"`
	TotalGames  int       `json:"totalGames"`
	TotalWins   int       `json:"totalWins"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreatedGame is returned when a game is opened
type CreatedGame struct {
	GameID   string `json:"gameId"`
	RoomCode string `json:"roomCode"`
	Status   string `json:"status"`
}

// GameSummary is an open game in the listing
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

// Member is a player's seat in a game
type Member struct {
	PlayerID    string `json:"playerId"`
	Nickname    string `json:"nickname"`
	AvatarColor string `json:"avatarColor"`
	JoinOrder   int    `json:"joinOrder"`
	IsHost      bool   `json:"isHost"`
	IsReady     bool   `json:"isReady"`
	IsConnected bool   `json:"isConnected"`
	GuessCount  int    `json:"guessCount"`
}

// Game is the game record
type Game struct {
	ID                  string     `json:"id"`
	RoomCode            string     `json:"roomCode"`
	Status              string     `json:"status"`
	HostPlayerID        string     `json:"hostPlayerId"`
	CurrentTurnPlayerID string     `json:"currentTurnPlayerId,omitempty"`
	TurnNumber          int        `json:"turnNumber"`
	TurnDuration        int        `json:"turnDuration"`
	TurnDeadline        *time.Time `json:"turnDeadline,omitempty"`
	IsPublic            bool       `json:"isPublic"`
	WinnerID            string     `json:"winnerId,omitempty"`
	SecretWord          string     `json:"secretWord,omitempty"`
}

// Guess is a submitted word and its distance
type Guess struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"playerId"`
	Word       string    `json:"word"`
	Distance   int       `json:"distance"`
	IsCorrect  bool      `json:"isCorrect"`
	TurnNumber int       `json:"turnNumber"`
	Timestamp  time.Time `json:"timestamp"`
}

// GameState is the full view of a game
type GameState struct {
	Game    Game     `json:"game"`
	Players []Member `json:"players"`
	Guesses []Guess  `json:"guesses"`
}

// GuessResult is returned after a guess
type GuessResult struct {
	Guess            Guess  `json:"guess"`
	IsCorrect        bool   `json:"isCorrect"`
	GameStatus       string `json:"gameStatus"`
	WinnerID         string `json:"winnerId,omitempty"`
	NextTurnPlayerID string `json:"nextTurnPlayerId,omitempty"`
	TurnNumber       int    `json:"turnNumber"`
}

// TimeoutResult is returned after reporting an expired turn
type TimeoutResult struct {
	NextTurnPlayerID string `json:"nextTurnPlayerId,omitempty"`
	TurnNumber       int    `json:"turnNumber"`
	Status           string `json:"status"`
	Advanced         bool   `json:"advanced"`
}

// HealthResult is the server health check
type HealthResult struct {
	Status string `json:"status"`
}

// Text printers

func (o *Output) printPlayer(p Player) {
	fmt.Fprintf(o.w, "Player: %s\n", p.Nickname)
	fmt.Fprintf(o.w, "  ID: %s\n", p.ID)
	if p.AvatarColor != "" {
		fmt.Fprintf(o.w, "  Color: %s\n", p.AvatarColor)
	}
	fmt.Fprintf(o.w, "  Games: %d  Wins: %d\n", p.TotalGames, p.TotalWins)
}

func (o *Output) printCreatedGame(g CreatedGame) {
	fmt.Fprintf(o.w, "Game created: %s\n", g.GameID)
	fmt.Fprintf(o.w, "  Room code: %s\n", g.RoomCode)
	fmt.Fprintf(o.w, "  Status: %s\n", g.Status)
}

func (o *Output) printGameList(games []GameSummary) {
	if len(games) == 0 {
		fmt.Fprintln(o.w, "No open games")
		return
	}
	fmt.Fprintf(o.w, "%-8s %-20s %-8s %s\n", "CODE", "HOST", "TURN", "PLAYERS")
	for _, g := range games {
		fmt.Fprintf(o.w, "%-8s %-20s %-8s %d/%d\n",
			g.RoomCode, g.HostNickname, fmt.Sprintf("%ds", g.TurnDuration), g.PlayerCount, g.MaxPlayers)
	}
}

func (o *Output) printMember(m Member) {
	status := "not ready"
	if m.IsReady {
		status = "ready"
	}
	fmt.Fprintf(o.w, "%s is %s\n", m.Nickname, status)
}

func (o *Output) printGameState(s GameState) {
	g := s.Game
	fmt.Fprintf(o.w, "Game %s (room %s)\n", g.ID, g.RoomCode)
	fmt.Fprintf(o.w, "  Status: %s\n", g.Status)

	names := make(map[string]string, len(s.Players))
	fmt.Fprintln(o.w, "  Players:")
	for _, p := range s.Players {
		names[p.PlayerID] = p.Nickname

		var tags []string
		if p.IsHost {
			tags = append(tags, "host")
		}
		if p.IsReady {
			tags = append(tags, "ready")
		}
		if !p.IsConnected {
			tags = append(tags, "disconnected")
		}
		marker := " "
		if p.PlayerID == g.CurrentTurnPlayerID {
			marker = ">"
		}
		line := fmt.Sprintf("   %s %s", marker, p.Nickname)
		if len(tags) > 0 {
			line += " [" + strings.Join(tags, ", ") + "]"
		}
		fmt.Fprintln(o.w, line)
	}

	switch {
	case g.Status == "ACTIVE":
		fmt.Fprintf(o.w, "  Turn %d: %s", g.TurnNumber, nameOr(names, g.CurrentTurnPlayerID))
		if g.TurnDeadline != nil {
			fmt.Fprintf(o.w, " (until %s)", g.TurnDeadline.Local().Format(time.Kitchen))
		}
		fmt.Fprintln(o.w)
	case g.WinnerID != "":
		fmt.Fprintf(o.w, "  Winner: %s\n", nameOr(names, g.WinnerID))
	}
	if g.SecretWord != "" {
		fmt.Fprintf(o.w, "  Secret word: %s\n", g.SecretWord)
	}

	if len(s.Guesses) > 0 {
		fmt.Fprintln(o.w, "  Guesses:")
		for _, guess := range s.Guesses {
			fmt.Fprintf(o.w, "    %6d  %-20s %s\n", guess.Distance, guess.Word, nameOr(names, guess.PlayerID))
		}
	}
}

func (o *Output) printGuessResult(r GuessResult) {
	if r.IsCorrect {
		fmt.Fprintf(o.w, "%s is the secret word!\n", r.Guess.Word)
		return
	}
	fmt.Fprintf(o.w, "%s: distance %d\n", r.Guess.Word, r.Guess.Distance)
	if r.NextTurnPlayerID != "" {
		fmt.Fprintf(o.w, "Turn %d goes to %s\n", r.TurnNumber, r.NextTurnPlayerID)
	}
}

func (o *Output) printTimeoutResult(r TimeoutResult) {
	if !r.Advanced {
		fmt.Fprintf(o.w, "Turn already moved on (turn %d)\n", r.TurnNumber)
		return
	}
	fmt.Fprintf(o.w, "Turn %d goes to %s\n", r.TurnNumber, r.NextTurnPlayerID)
}

func nameOr(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return id
}
