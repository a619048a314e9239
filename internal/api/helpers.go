// Package api exposes the read-only query interface and active-scan
// control plane over local HTTP, plus a WebSocket feed for live scan
// progress.
package api

import (
	"encoding/json"
	"net/http"

	"netwatch.dev/netwatch/internal/logging"
)

// envelope is the uniform failure shape every handler returns on error.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WriteJSON sends a JSON success response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError sends the {success:false, message:...} failure envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, envelope{Success: false, Message: message})
}

// BindJSON decodes the request body into dest, writing a 400 envelope and
// returning false on failure.
func BindJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func logHandlerError(logger *logging.Logger, route string, err error) {
	if logger != nil {
		logger.Warn("api handler error", "route", route, "error", err)
	}
}
