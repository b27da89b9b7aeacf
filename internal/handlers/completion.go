package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"

	"chatbot-kit/internal/middleware"
	"chatbot-kit/internal/models"
	"chatbot-kit/internal/services"
	"chatbot-kit/internal/stream"
)

type CompletionHandler struct {
	provider services.Provider
}

func NewCompletionHandler(provider services.Provider) *CompletionHandler {
	return &CompletionHandler{provider: provider}
}

// Complete forwards the message list to the provider and streams the reply
// back as a data stream.
func (h *CompletionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req models.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	stream.SetHeaders(w.Header())
	w.WriteHeader(http.StatusOK)

	enc := stream.NewEncoder(w)
	if err := enc.Start("msg-" + uuid.NewString()); err != nil {
		return
	}

	finish, err := h.provider.Stream(r.Context(), req.Messages, enc.Text)
	if err != nil {
		if r.Context().Err() != nil {
			log.Printf("completion %s: client went away: %v", r.Header.Get(middleware.RequestIDHeader), err)
			return
		}
		log.Printf("completion %s: %s provider failed: %v", r.Header.Get(middleware.RequestIDHeader), h.provider.Name(), err)
		enc.Error(streamErrorMessage)
		return
	}

	enc.Finish(finish)
}
