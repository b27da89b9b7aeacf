package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"chatbot-kit/internal/models"
	"chatbot-kit/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SocketHandler serves completions over a WebSocket. Each inbound
// CompletionRequest frame is answered with text frames followed by exactly
// one finish or error frame.
type SocketHandler struct {
	provider services.Provider
}

func NewSocketHandler(provider services.Provider) *SocketHandler {
	return &SocketHandler{provider: provider}
}

func (h *SocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req models.CompletionRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if conn.WriteJSON(models.WSMessage{Type: "error", Payload: "Invalid request body"}) != nil {
				return
			}
			continue
		}

		finish, err := h.provider.Stream(ctx, req.Messages, func(delta string) error {
			return conn.WriteJSON(models.WSMessage{Type: "text", Payload: delta})
		})
		if err != nil {
			log.Printf("websocket completion: %s provider failed: %v", h.provider.Name(), err)
			if conn.WriteJSON(models.WSMessage{Type: "error", Payload: streamErrorMessage}) != nil {
				return
			}
			continue
		}

		err = conn.WriteJSON(models.WSMessage{Type: "finish", Payload: models.FinishPayload{
			FinishReason:     finish.Reason,
			PromptTokens:     finish.PromptTokens,
			CompletionTokens: finish.CompletionTokens,
		}})
		if err != nil {
			return
		}
	}
}
