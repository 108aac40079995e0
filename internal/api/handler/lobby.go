package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/apierr"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/request"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/response"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/lobby"
)

// LobbyHandler handles the WAITING phase endpoints
type LobbyHandler struct {
	lobbyController lobby.ControllerInterface
}

// NewLobbyHandler creates a new lobby handler
func NewLobbyHandler(lobbyController lobby.ControllerInterface) *LobbyHandler {
	return &LobbyHandler{
		lobbyController: lobbyController,
	}
}

// Create handles POST /games
func (h *LobbyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGameRequest
	if !decode(w, r, &req) || !requirePlayer(w, req.HostPlayerID) {
		return
	}

	g, err := h.lobbyController.CreateGame(r.Context(), model.PlayerID(req.HostPlayerID), model.GameConfig{
		TurnDuration: req.TurnDuration,
		IsPublic:     req.IsPublic,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.CreateGameResponseFromModel(g))
}

// Join handles POST /games/{roomCode}/join
func (h *LobbyHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req request.PlayerRequest
	if !decode(w, r, &req) || !requirePlayer(w, req.PlayerID) {
		return
	}

	state, err := h.lobbyController.JoinGame(r.Context(), mux.Vars(r)["roomCode"], model.PlayerID(req.PlayerID))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameStateFromModel(state))
}

// Ready handles POST /games/{gameId}/ready
func (h *LobbyHandler) Ready(w http.ResponseWriter, r *http.Request) {
	var req request.ReadyRequest
	if !decode(w, r, &req) || !requirePlayer(w, req.PlayerID) {
		return
	}

	member, err := h.lobbyController.SetReady(r.Context(), gameID(r), model.PlayerID(req.PlayerID), req.IsReady)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MemberFromModel(member, member.IsReady || member.IsHost))
}

// Start handles POST /games/{gameId}/start
func (h *LobbyHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req request.PlayerRequest
	if !decode(w, r, &req) || !requirePlayer(w, req.PlayerID) {
		return
	}

	state, err := h.lobbyController.StartGame(r.Context(), gameID(r), model.PlayerID(req.PlayerID))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameStateFromModel(state))
}

// List handles GET /games
func (h *LobbyHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, apierr.NewInvalidRequestError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	summaries, err := h.lobbyController.ListOpenGames(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameSummariesFromModel(summaries))
}

func gameID(r *http.Request) model.GameID {
	return model.GameID(mux.Vars(r)["gameId"])
}
