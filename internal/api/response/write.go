package response

import (
	"encoding/json"
	"net/http"
)

// Envelope wraps every successful response
type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// JSON writes data inside a success envelope
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Success: true, Data: data})
}
