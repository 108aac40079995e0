package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/apierr"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 16

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	WriteError(w, apierr.NewInvalidRequestError("Invalid request body"))
	return false
}

// requirePlayer rejects requests that do not name the acting player
func requirePlayer(w http.ResponseWriter, playerID string) bool {
	if playerID == "" {
		WriteError(w, apierr.NewInvalidRequestError("playerId is required"))
		return false
	}
	return true
}
