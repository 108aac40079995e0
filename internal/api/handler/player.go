package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/request"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/response"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/players"
)

// PlayerHandler handles player profile endpoints
type PlayerHandler struct {
	players players.ServiceInterface
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(players players.ServiceInterface) *PlayerHandler {
	return &PlayerHandler{
		players: players,
	}
}

// Create handles POST /players
func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePlayerRequest
	if !decode(w, r, &req) {
		return
	}

	player, err := h.players.CreatePlayer(r.Context(), req.Nickname, req.AvatarColor)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PlayerFromModel(player))
}

// Get handles GET /players/{playerId}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	player, err := h.players.GetPlayer(r.Context(), playerID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

// Update handles PATCH /players/{playerId}
func (h *PlayerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req request.UpdatePlayerRequest
	if !decode(w, r, &req) {
		return
	}

	player, err := h.players.UpdateProfile(r.Context(), playerID(r), players.ProfileUpdate{
		Nickname:    req.Nickname,
		AvatarColor: req.AvatarColor,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

func playerID(r *http.Request) model.PlayerID {
	return model.PlayerID(mux.Vars(r)["playerId"])
}
