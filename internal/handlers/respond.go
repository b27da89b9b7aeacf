package handlers

import (
	"encoding/json"
	"net/http"

	"chatbot-kit/internal/middleware"
	"chatbot-kit/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		},
	}
}

// streamErrorMessage is what clients see when a provider fails mid-stream.
// The underlying error is logged, never forwarded.
const streamErrorMessage = "An error occurred."
