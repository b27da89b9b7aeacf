// Package completion is the HTTP client side of the completion endpoint.
package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"chatbot-kit/internal/middleware"
	"chatbot-kit/internal/models"
	"chatbot-kit/internal/stream"
)

const (
	completionPath = "/api/completion"
	tokenTTL       = 15 * time.Minute
	tokenSubject   = "chat-client"
)

// Client posts conversations to a completion endpoint and decodes the
// streamed reply.
type Client struct {
	client *resty.Client
	auth   *middleware.JWTAuth
}

// NewClient targets baseURL. When accessTokenSecret is set every request
// carries a freshly minted bearer token.
func NewClient(baseURL, accessTokenSecret string) *Client {
	c := &Client{
		client: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Accept", stream.ContentType),
	}
	if accessTokenSecret != "" {
		c.auth = middleware.NewJWTAuth(accessTokenSecret)
	}
	return c
}

// Complete starts a completion. The returned channel closes after the
// terminal part, or when ctx is cancelled.
func (c *Client) Complete(ctx context.Context, messages []models.ChatMessage) (<-chan stream.Part, error) {
	req := c.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Content-Type", "application/json").
		SetBody(models.CompletionRequest{Messages: messages})

	if c.auth != nil {
		token, err := c.auth.GenerateAccessToken(tokenSubject, tokenTTL)
		if err != nil {
			return nil, fmt.Errorf("mint access token: %w", err)
		}
		req.SetAuthToken(token)
	}

	res, err := req.Post(completionPath)
	if err != nil {
		return nil, fmt.Errorf("post completion: %w", err)
	}

	body := res.RawBody()
	if res.StatusCode() != http.StatusOK {
		defer body.Close()
		return nil, statusError(res.StatusCode(), body)
	}

	return stream.Pipe(ctx, body), nil
}

// statusError turns a non-stream response into an error, preferring the
// server's error envelope message.
func statusError(status int, body io.Reader) error {
	raw, _ := io.ReadAll(io.LimitReader(body, 64*1024))

	var envelope models.ErrorResponse
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
		return fmt.Errorf("completion endpoint returned %d: %s", status, envelope.Error.Message)
	}
	return fmt.Errorf("completion endpoint returned %d", status)
}
