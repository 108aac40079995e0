package handler

import (
	"net/http"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/request"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/response"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/game"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/sse"
)

// GameHandler handles the ACTIVE phase endpoints and the game view
type GameHandler struct {
	gameController game.ControllerInterface
	hubManager     *sse.HubManager
}

// NewGameHandler creates a new game handler. hubManager may be nil, which disables the event stream.
func NewGameHandler(gameController game.ControllerInterface, hubManager *sse.HubManager) *GameHandler {
	return &GameHandler{
		gameController: gameController,
		hubManager:     hubManager,
	}
}

// Guess handles POST /games/{gameId}/guess
func (h *GameHandler) Guess(w http.ResponseWriter, r *http.Request) {
	var req request.GuessRequest
	if !decode(w, r, &req) || !requirePlayer(w, req.PlayerID) {
		return
	}

	outcome, err := h.gameController.ProcessGuess(r.Context(), gameID(r), model.PlayerID(req.PlayerID), req.Word)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GuessResponseFromOutcome(outcome))
}

// Timeout handles POST /games/{gameId}/timeout
func (h *GameHandler) Timeout(w http.ResponseWriter, r *http.Request) {
	var req request.TimeoutRequest
	if !decode(w, r, &req) || !requirePlayer(w, req.PlayerID) {
		return
	}

	info, err := h.gameController.ForceTimeout(r.Context(), gameID(r), model.PlayerID(req.PlayerID), req.TurnNumber)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TimeoutResponseFromTurnInfo(info))
}

// Leave handles POST /games/{gameId}/leave
func (h *GameHandler) Leave(w http.ResponseWriter, r *http.Request) {
	var req request.PlayerRequest
	if !decode(w, r, &req) || !requirePlayer(w, req.PlayerID) {
		return
	}

	if err := h.gameController.LeaveGame(r.Context(), gameID(r), model.PlayerID(req.PlayerID)); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaveResponse{Left: true})
}

// State handles GET /games/{gameId}/state
func (h *GameHandler) State(w http.ResponseWriter, r *http.Request) {
	state, err := h.gameController.GetState(r.Context(), gameID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameStateFromModel(state))
}

// Heartbeat handles POST /games/{gameId}/heartbeat
func (h *GameHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req request.PlayerRequest
	if !decode(w, r, &req) || !requirePlayer(w, req.PlayerID) {
		return
	}

	state, err := h.gameController.Heartbeat(r.Context(), gameID(r), model.PlayerID(req.PlayerID))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameStateFromModel(state))
}

// Events handles GET /games/{gameId}/events
func (h *GameHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := gameID(r)
	if _, err := h.gameController.GetState(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	if h.hubManager == nil {
		WriteError(w, model.ErrNotFound.Withf("event stream is not enabled"))
		return
	}

	sse.ServeSSE(w, r, h.hubManager, id, model.PlayerID(r.URL.Query().Get("playerId")))
}
