package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
)

// PlayerHeader carries the caller's opaque player id. It identifies the
// caller for rate limiting only; actions are authorised by the playerId in
// the request body.
const PlayerHeader = "X-Player-ID"

type contextKey string

const playerContextKey contextKey = "player_id"

// Identity stores the caller's player id, if any, in the request context
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(PlayerHeader)); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), playerContextKey, model.PlayerID(id)))
		}
		next.ServeHTTP(w, r)
	})
}

// GetPlayerID returns the caller's player id from the request context
func GetPlayerID(ctx context.Context) (model.PlayerID, bool) {
	id, ok := ctx.Value(playerContextKey).(model.PlayerID)
	return id, ok
}

// ClientKey identifies the caller: the player id when present, the client IP otherwise
func ClientKey(r *http.Request) string {
	if id, ok := GetPlayerID(r.Context()); ok {
		return "player:" + string(id)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
