package models

// WSMessage is a frame sent over the completion socket.
type WSMessage struct {
	Type    string      `json:"type"` // "text" | "error" | "finish"
	Payload interface{} `json:"payload"`
}

type FinishPayload struct {
	FinishReason     string `json:"finish_reason"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
