package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"chatbot-kit/internal/models"
	"chatbot-kit/internal/stream"
)

// GroqService talks to any OpenAI-compatible chat completions API; Groq by
// default.
type GroqService struct {
	client *openai.Client
	model  string
}

func NewGroqService(apiKey, baseURL, model string, httpClient *http.Client) *GroqService {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if httpClient != nil {
		config.HTTPClient = httpClient
	}
	return &GroqService{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (s *GroqService) Name() string { return "groq" }

func (s *GroqService) Stream(ctx context.Context, messages []models.ChatMessage, onDelta func(string) error) (stream.Finish, error) {
	msgs := forwardable(messages)
	if len(msgs) == 0 {
		return stream.Finish{}, ErrNoMessages
	}

	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	req := openai.ChatCompletionRequest{
		Model:         s.model,
		Messages:      oaMsgs,
		Stream:        true,
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	}

	st, err := s.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return stream.Finish{}, fmt.Errorf("failed to create chat completion stream: %w", err)
	}
	defer st.Close()

	finish := stream.Finish{Reason: "stop"}
	for {
		resp, err := st.Recv()
		if errors.Is(err, io.EOF) {
			return finish, nil
		}
		if err != nil {
			return finish, fmt.Errorf("chat completion stream: %w", err)
		}

		if resp.Usage != nil {
			finish.PromptTokens = resp.Usage.PromptTokens
			finish.CompletionTokens = resp.Usage.CompletionTokens
		}
		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		if choice.FinishReason != "" {
			finish.Reason = string(choice.FinishReason)
		}
		if choice.Delta.Content != "" {
			if err := onDelta(choice.Delta.Content); err != nil {
				return finish, err
			}
		}
	}
}
