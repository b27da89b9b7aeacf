package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"chatbot-kit/internal/models"
	"chatbot-kit/internal/stream"
)

type GeminiService struct {
	client *genai.Client
	model  string
}

func NewGeminiService(apiKey, model string) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiService{
		client: client,
		model:  model,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

func (s *GeminiService) Name() string { return "gemini" }

func (s *GeminiService) Stream(ctx context.Context, messages []models.ChatMessage, onDelta func(string) error) (stream.Finish, error) {
	system, history, last, err := toGeminiContents(forwardable(messages))
	if err != nil {
		return stream.Finish{}, err
	}

	model := s.client.GenerativeModel(s.model)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := model.StartChat()
	cs.History = history

	it := cs.SendMessageStream(ctx, last...)
	finish := stream.Finish{Reason: "stop"}
	for {
		resp, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return finish, nil
		}
		if err != nil {
			return finish, fmt.Errorf("Gemini API error: %w", err)
		}

		if resp.UsageMetadata != nil {
			finish.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
			finish.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}
		for _, cand := range resp.Candidates {
			if r := finishReason(cand.FinishReason); r != "" {
				finish.Reason = r
			}
		}
		if text := extractText(resp); text != "" {
			if err := onDelta(text); err != nil {
				return finish, err
			}
		}
	}
}

// toGeminiContents splits a message list into the system instruction, the
// chat history, and the parts of the final user turn.
func toGeminiContents(msgs []models.ChatMessage) (string, []*genai.Content, []genai.Part, error) {
	var system []string
	var turns []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, m.Content)
		case models.RoleUser:
			turns = append(turns, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		case models.RoleAssistant:
			turns = append(turns, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	if len(turns) == 0 {
		return "", nil, nil, ErrNoMessages
	}
	last := turns[len(turns)-1]
	if last.Role != "user" {
		return "", nil, nil, fmt.Errorf("last message must come from the user")
	}
	return strings.Join(system, "\n\n"), turns[:len(turns)-1], last.Parts, nil
}

func finishReason(r genai.FinishReason) string {
	switch r {
	case genai.FinishReasonUnspecified:
		return ""
	case genai.FinishReasonStop:
		return "stop"
	case genai.FinishReasonMaxTokens:
		return "length"
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return "content-filter"
	default:
		return "other"
	}
}

func extractText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
	}
	return sb.String()
}
