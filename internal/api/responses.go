package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/fleetgo/dispatch-api/pkg/errors"
)

// ApiResponse is the envelope every endpoint responds with
type ApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// respondWithJSON sends a JSON response
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)

	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithError sends a JSON response with an error message
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, ApiResponse{
		Success: false,
		Error:   message,
	})
}

// respondWithAppError maps a service error onto the response envelope.
// Internal errors keep their detail in the logs and return a generic message.
func (s *Server) respondWithAppError(w http.ResponseWriter, err error) {
	code := apperrors.StatusCode(err)

	var appErr *apperrors.AppError

	if code >= http.StatusInternalServerError || !errors.As(err, &appErr) {
		s.logger.Error("Request failed", "error", err)
		s.respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.respondWithError(w, code, appErr.Message)
}
