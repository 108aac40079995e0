package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/apierr"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/middleware"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/response"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/factory"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/testutil"
)

// testServer wires the router over a TestApp
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T, limiter *middleware.RateLimiter) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	require.NoError(t, app.LoadTestDictionary())
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:          testutil.NopLogger(),
		PlayerService:   app.PlayerService,
		LobbyController: app.LobbyController,
		GameController:  app.GameController,
		HubManager:      app.HubManager,
		RateLimiter:     limiter,
	})

	return &testServer{handler: router, app: app}
}

// envelope is the decoded form of every response
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   apierr.APIError `json:"error"`
}

func (ts *testServer) request(method, path string, body any, playerID string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if playerID != "" {
		req.Header.Set(middleware.PlayerHeader, playerID)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	if data != nil && env.Success {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func requireError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rr.Code, rr.Body.String())
	env := decodeEnvelope(t, rr, nil)
	assert.False(t, env.Success)
	assert.Equal(t, code, env.Error.Code)
	assert.NotEmpty(t, env.Error.Message)
}

func (ts *testServer) createPlayer(t *testing.T, nickname string) response.Player {
	t.Helper()
	rr := ts.request(http.MethodPost, "/players", map[string]string{"nickname": nickname}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var p response.Player
	decodeEnvelope(t, rr, &p)
	return p
}

func (ts *testServer) createGame(t *testing.T, hostID string) response.CreateGameResponse {
	t.Helper()
	ts.app.MockRandom.QueueString("ROOM22")
	rr := ts.request(http.MethodPost, "/games", map[string]any{
		"hostPlayerId": hostID,
		"turnDuration": 30,
		"isPublic":     true,
	}, hostID)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var g response.CreateGameResponse
	decodeEnvelope(t, rr, &g)
	return g
}

// startedGame returns a started game where it is the host's turn
func (ts *testServer) startedGame(t *testing.T) (gameID string, host, guest response.Player) {
	t.Helper()
	host = ts.createPlayer(t, "Host")
	guest = ts.createPlayer(t, "Guest")
	g := ts.createGame(t, host.ID)

	rr := ts.request(http.MethodPost, "/games/"+g.RoomCode+"/join", map[string]string{"playerId": guest.ID}, guest.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.request(http.MethodPost, "/games/"+g.GameID+"/ready", map[string]any{"playerId": guest.ID, "isReady": true}, guest.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.request(http.MethodPost, "/games/"+g.GameID+"/start", map[string]string{"playerId": host.ID}, host.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return g.GameID, host, guest
}

func (ts *testServer) state(t *testing.T, gameID string) response.GameState {
	t.Helper()
	rr := ts.request(http.MethodGet, "/games/"+gameID+"/state", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var st response.GameState
	decodeEnvelope(t, rr, &st)
	return st
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.request(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var health response.Health
	env := decodeEnvelope(t, rr, &health)
	assert.True(t, env.Success)
	assert.Equal(t, "ok", health.Status)
}

func TestPlayerProfile(t *testing.T) {
	ts := newTestServer(t, nil)

	p := ts.createPlayer(t, "  Ada  ")
	assert.Equal(t, "Ada", p.Nickname)
	assert.NotEmpty(t, p.ID)
	assert.Regexp(t, `^#[0-9A-F]{6}$`, p.AvatarColor)

	rr := ts.request(http.MethodPatch, "/players/"+p.ID, map[string]string{"avatarColor": "#00aaff"}, p.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.request(http.MethodGet, "/players/"+p.ID, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got response.Player
	decodeEnvelope(t, rr, &got)
	assert.Equal(t, "Ada", got.Nickname)
	assert.Equal(t, "#00AAFF", got.AvatarColor)
	assert.Zero(t, got.TotalGames)
}

func TestPlayerErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.request(http.MethodGet, "/players/nobody", nil, "")
	requireError(t, rr, http.StatusNotFound, "PLAYER_NOT_FOUND")

	rr = ts.request(http.MethodPost, "/players", map[string]string{"avatarColor": "red"}, "")
	requireError(t, rr, http.StatusBadRequest, "INVALID_PROFILE")
}

func TestInvalidRequests(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/games", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	requireError(t, rr, http.StatusBadRequest, apierr.CodeInvalidRequest)

	rr = ts.request(http.MethodPost, "/games", map[string]any{"turnDuration": 30}, "")
	requireError(t, rr, http.StatusBadRequest, apierr.CodeInvalidRequest)

	rr = ts.request(http.MethodGet, "/games?limit=abc", nil, "")
	requireError(t, rr, http.StatusBadRequest, apierr.CodeInvalidRequest)

	host := ts.createPlayer(t, "Host")
	rr = ts.request(http.MethodPost, "/games", map[string]any{"hostPlayerId": host.ID, "turnDuration": 45}, host.ID)
	requireError(t, rr, http.StatusBadRequest, "INVALID_GAME_CONFIG")
}

func TestLobbyFlow(t *testing.T) {
	ts := newTestServer(t, nil)

	host := ts.createPlayer(t, "Host")
	guest := ts.createPlayer(t, "Guest")
	g := ts.createGame(t, host.ID)
	assert.Equal(t, "ROOM22", g.RoomCode)
	assert.Equal(t, "WAITING", g.Status)

	// listed while open
	rr := ts.request(http.MethodGet, "/games", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var open []response.GameSummary
	decodeEnvelope(t, rr, &open)
	require.Len(t, open, 1)
	assert.Equal(t, "Host", open[0].HostNickname)
	assert.Equal(t, 30, open[0].TurnDuration)
	assert.Equal(t, 1, open[0].PlayerCount)

	// room codes are case-insensitive
	rr = ts.request(http.MethodPost, "/games/room22/join", map[string]string{"playerId": guest.ID}, guest.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var joined response.GameState
	decodeEnvelope(t, rr, &joined)
	require.Len(t, joined.Players, 2)
	assert.True(t, joined.Players[0].IsReady, "host is always ready")
	assert.False(t, joined.Players[1].IsReady)

	// start needs the guest to be ready
	rr = ts.request(http.MethodPost, "/games/"+g.GameID+"/start", map[string]string{"playerId": host.ID}, host.ID)
	requireError(t, rr, http.StatusBadRequest, "PLAYERS_NOT_READY")

	rr = ts.request(http.MethodPost, "/games/"+g.GameID+"/ready", map[string]any{"playerId": guest.ID, "isReady": true}, guest.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	var member response.Member
	decodeEnvelope(t, rr, &member)
	assert.True(t, member.IsReady)

	// only the host starts
	rr = ts.request(http.MethodPost, "/games/"+g.GameID+"/start", map[string]string{"playerId": guest.ID}, guest.ID)
	requireError(t, rr, http.StatusForbidden, "NOT_HOST")

	rr = ts.request(http.MethodPost, "/games/"+g.GameID+"/start", map[string]string{"playerId": host.ID}, host.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var started response.GameState
	decodeEnvelope(t, rr, &started)
	assert.Equal(t, "ACTIVE", started.Game.Status)
	assert.Equal(t, host.ID, started.Game.CurrentTurnPlayerID)
	assert.Equal(t, 1, started.Game.TurnNumber)
	require.NotNil(t, started.Game.TurnDeadline)
	assert.True(t, started.Game.TurnStartedAt.Add(30*time.Second).Equal(*started.Game.TurnDeadline))

	// no longer listed or joinable
	rr = ts.request(http.MethodGet, "/games", nil, "")
	open = nil
	decodeEnvelope(t, rr, &open)
	assert.Empty(t, open)

	late := ts.createPlayer(t, "Late")
	rr = ts.request(http.MethodPost, "/games/ROOM22/join", map[string]string{"playerId": late.ID}, late.ID)
	requireError(t, rr, http.StatusNotFound, "ROOM_NOT_FOUND")
}

func TestGuessFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	gameID, host, guest := ts.startedGame(t)
	guessPath := "/games/" + gameID + "/guess"

	// the secret is hidden while the game runs
	st := ts.state(t, gameID)
	assert.Empty(t, st.Game.SecretWord)

	rr := ts.request(http.MethodPost, guessPath, map[string]string{"playerId": host.ID, "word": "Banana"}, host.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out response.GuessResponse
	decodeEnvelope(t, rr, &out)
	assert.False(t, out.IsCorrect)
	assert.Equal(t, "banana", out.Guess.Word)
	assert.Equal(t, guest.ID, out.NextTurnPlayerID)
	assert.Equal(t, 2, out.TurnNumber)

	rr = ts.request(http.MethodPost, guessPath, map[string]string{"playerId": host.ID, "word": "orbit"}, host.ID)
	requireError(t, rr, http.StatusForbidden, "NOT_YOUR_TURN")

	rr = ts.request(http.MethodPost, guessPath, map[string]string{"playerId": guest.ID, "word": "nebula"}, guest.ID)
	requireError(t, rr, http.StatusBadRequest, "UNKNOWN_WORD")

	rr = ts.request(http.MethodPost, guessPath, map[string]string{"playerId": guest.ID, "word": "two words"}, guest.ID)
	requireError(t, rr, http.StatusBadRequest, "INVALID_WORD")

	rr = ts.request(http.MethodPost, guessPath, map[string]string{"playerId": guest.ID, "word": "BANANA"}, guest.ID)
	requireError(t, rr, http.StatusConflict, "DUPLICATE_WORD")

	rr = ts.request(http.MethodPost, guessPath, map[string]string{"playerId": guest.ID, "word": "orbit"}, guest.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.request(http.MethodPost, guessPath, map[string]string{"playerId": host.ID, "word": "planet"}, host.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decodeEnvelope(t, rr, &out)
	assert.True(t, out.IsCorrect)
	assert.Equal(t, "COMPLETED", out.GameStatus)
	assert.Equal(t, host.ID, out.WinnerID)
	assert.Zero(t, out.Guess.Distance)

	// the finished game reveals the secret and lists guesses closest first
	st = ts.state(t, gameID)
	assert.Equal(t, "COMPLETED", st.Game.Status)
	assert.Equal(t, factory.TestSecret, st.Game.SecretWord)
	assert.Empty(t, st.Game.CurrentTurnPlayerID)
	require.Len(t, st.Guesses, 3)
	assert.Equal(t, "planet", st.Guesses[0].Word)
	assert.Equal(t, "orbit", st.Guesses[1].Word)
	assert.Equal(t, "banana", st.Guesses[2].Word)

	rr = ts.request(http.MethodPost, guessPath, map[string]string{"playerId": guest.ID, "word": "moon"}, guest.ID)
	requireError(t, rr, http.StatusBadRequest, "GAME_NOT_ACTIVE")

	rr = ts.request(http.MethodGet, "/players/"+host.ID, nil, "")
	var profile response.Player
	decodeEnvelope(t, rr, &profile)
	assert.Equal(t, 1, profile.TotalWins)
	assert.Equal(t, 1, profile.TotalGames)
}

func TestTimeoutFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	gameID, host, guest := ts.startedGame(t)
	timeoutPath := "/games/" + gameID + "/timeout"

	rr := ts.request(http.MethodPost, timeoutPath, map[string]any{"playerId": guest.ID, "turnNumber": 1}, guest.ID)
	requireError(t, rr, http.StatusBadRequest, "TURN_NOT_EXPIRED")

	ts.app.MockClock.Advance(26 * time.Second)
	rr = ts.request(http.MethodPost, timeoutPath, map[string]any{"playerId": guest.ID, "turnNumber": 1}, guest.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out response.TimeoutResponse
	decodeEnvelope(t, rr, &out)
	assert.True(t, out.Advanced)
	assert.Equal(t, guest.ID, out.NextTurnPlayerID)
	assert.Equal(t, 2, out.TurnNumber)

	// the host's report for the same turn is a no-op
	rr = ts.request(http.MethodPost, timeoutPath, map[string]any{"playerId": host.ID, "turnNumber": 1}, host.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decodeEnvelope(t, rr, &out)
	assert.False(t, out.Advanced)
	assert.Equal(t, 2, out.TurnNumber)
}

func TestHeartbeatAndLeave(t *testing.T) {
	ts := newTestServer(t, nil)
	gameID, host, guest := ts.startedGame(t)

	rr := ts.request(http.MethodPost, "/games/"+gameID+"/heartbeat", map[string]string{"playerId": host.ID}, host.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	outsider := ts.createPlayer(t, "Outsider")
	rr = ts.request(http.MethodPost, "/games/"+gameID+"/heartbeat", map[string]string{"playerId": outsider.ID}, outsider.ID)
	requireError(t, rr, http.StatusNotFound, "NOT_IN_GAME")

	rr = ts.request(http.MethodPost, "/games/"+gameID+"/leave", map[string]string{"playerId": guest.ID}, guest.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var left response.LeaveResponse
	decodeEnvelope(t, rr, &left)
	assert.True(t, left.Left)

	st := ts.state(t, gameID)
	assert.Equal(t, "COMPLETED", st.Game.Status)
	assert.Equal(t, host.ID, st.Game.WinnerID)
}

func TestUnknownGame(t *testing.T) {
	ts := newTestServer(t, nil)

	rr := ts.request(http.MethodGet, "/games/missing/state", nil, "")
	requireError(t, rr, http.StatusNotFound, "GAME_NOT_FOUND")

	rr = ts.request(http.MethodGet, "/games/missing/events", nil, "")
	requireError(t, rr, http.StatusNotFound, "GAME_NOT_FOUND")
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, nil)
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{RequestsPerSecond: 1, Burst: 2}, ts.app.MockClock)
	ts = &testServer{
		app: ts.app,
		handler: api.NewRouter(api.RouterConfig{
			Logger:          testutil.NopLogger(),
			PlayerService:   ts.app.PlayerService,
			LobbyController: ts.app.LobbyController,
			GameController:  ts.app.GameController,
			RateLimiter:     limiter,
		}),
	}

	for i := 0; i < 2; i++ {
		rr := ts.request(http.MethodGet, "/health", nil, "alice")
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := ts.request(http.MethodGet, "/health", nil, "alice")
	requireError(t, rr, http.StatusTooManyRequests, apierr.CodeRateLimited)

	// other callers have their own bucket
	rr = ts.request(http.MethodGet, "/health", nil, "bob")
	assert.Equal(t, http.StatusOK, rr.Code)

	// tokens refill over time
	ts.app.MockClock.Advance(time.Second)
	rr = ts.request(http.MethodGet, "/health", nil, "alice")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/games", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Less(t, rr.Code, 300)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestEventStream(t *testing.T) {
	ts := newTestServer(t, nil)
	gameID, host, _ := ts.startedGame(t)

	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/games/"+gameID+"/events?playerId="+host.ID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		name := strings.TrimPrefix(strings.TrimSpace(line), "event: ")
		// skip the data lines and the blank separator
		for {
			line, err = reader.ReadString('\n')
			require.NoError(t, err)
			if strings.TrimSpace(line) == "" {
				return name
			}
		}
	}

	assert.Equal(t, "connected", readEvent())

	rr := ts.request(http.MethodPost, "/games/"+gameID+"/guess", map[string]string{"playerId": host.ID, "word": "moon"}, host.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Equal(t, "guess_made", readEvent())
}
