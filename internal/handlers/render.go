package handlers

import (
	"encoding/json"
	"net/http"

	"chatbot-kit/internal/models"
	"chatbot-kit/internal/render"
)

type RenderHandler struct {
	renderer *render.HTMLRenderer
}

func NewRenderHandler(renderer *render.HTMLRenderer) *RenderHandler {
	return &RenderHandler{renderer: renderer}
}

// Render returns the text/code decomposition of a message and its HTML.
func (h *RenderHandler) Render(w http.ResponseWriter, r *http.Request) {
	var req models.RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	html, err := h.renderer.Render(req.Content)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to render content", r))
		return
	}

	segs := render.Split(req.Content)
	resp := models.RenderResponse{Segments: make([]models.RenderSegment, 0, len(segs)), HTML: html}
	for _, s := range segs {
		resp.Segments = append(resp.Segments, models.RenderSegment{
			Kind:     string(s.Kind),
			Language: s.Language,
			Content:  s.Content,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
