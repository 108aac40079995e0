package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/apierr"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/middleware"
)

// Recovery creates panic recovery middleware for the API.
// Panics are reported as an INTERNAL_ERROR envelope.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, apiPanicHandler)
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
