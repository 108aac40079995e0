package api

import (
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/handler"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/middleware"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/response"
	httpmw "github.com/Ken-1219/multiplayer-contexto-sub000/internal/middleware"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/game"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/lobby"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/services/players"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	PlayerService   players.ServiceInterface
	LobbyController lobby.ControllerInterface
	GameController  game.ControllerInterface
	// HubManager serves the event stream; nil disables it
	HubManager *sse.HubManager
	// RateLimiter throttles each client; nil disables it
	RateLimiter *middleware.RateLimiter
	// CORSOrigins lists allowed browser origins; empty allows any
	CORSOrigins []string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	playerHandler := handler.NewPlayerHandler(cfg.PlayerService)
	lobbyHandler := handler.NewLobbyHandler(cfg.LobbyController)
	gameHandler := handler.NewGameHandler(cfg.GameController, cfg.HubManager)

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(httpmw.Logging(cfg.Logger))
	r.Use(middleware.Identity)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}

	// Player routes
	r.HandleFunc("/players", playerHandler.Create).Methods(http.MethodPost)
	r.HandleFunc("/players/{playerId}", playerHandler.Get).Methods(http.MethodGet)
	r.HandleFunc("/players/{playerId}", playerHandler.Update).Methods(http.MethodPatch)

	// Lobby routes
	r.HandleFunc("/games", lobbyHandler.List).Methods(http.MethodGet)
	r.HandleFunc("/games", lobbyHandler.Create).Methods(http.MethodPost)
	r.HandleFunc("/games/{roomCode}/join", lobbyHandler.Join).Methods(http.MethodPost)
	r.HandleFunc("/games/{gameId}/ready", lobbyHandler.Ready).Methods(http.MethodPost)
	r.HandleFunc("/games/{gameId}/start", lobbyHandler.Start).Methods(http.MethodPost)

	// Game routes
	r.HandleFunc("/games/{gameId}/guess", gameHandler.Guess).Methods(http.MethodPost)
	r.HandleFunc("/games/{gameId}/timeout", gameHandler.Timeout).Methods(http.MethodPost)
	r.HandleFunc("/games/{gameId}/leave", gameHandler.Leave).Methods(http.MethodPost)
	r.HandleFunc("/games/{gameId}/heartbeat", gameHandler.Heartbeat).Methods(http.MethodPost)
	r.HandleFunc("/games/{gameId}/state", gameHandler.State).Methods(http.MethodGet)
	r.HandleFunc("/games/{gameId}/events", gameHandler.Events).Methods(http.MethodGet)

	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return corsHandler(cfg.CORSOrigins).Handler(r)
}

func corsHandler(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.PlayerHeader},
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
