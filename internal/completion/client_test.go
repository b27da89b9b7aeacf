package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbot-kit/internal/middleware"
	"chatbot-kit/internal/models"
	"chatbot-kit/internal/stream"
)

func collect(t *testing.T, parts <-chan stream.Part) []stream.Part {
	t.Helper()
	var out []stream.Part
	for p := range parts {
		out = append(out, p)
	}
	return out
}

func TestComplete_DecodesStream(t *testing.T) {
	var got models.CompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/completion", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		stream.SetHeaders(w.Header())
		enc := stream.NewEncoder(w)
		enc.Start("msg-1")
		enc.Text("Hi")
		enc.Text(" there!")
		enc.Finish(stream.Finish{Reason: "stop", PromptTokens: 3, CompletionTokens: 2})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	parts, err := c.Complete(context.Background(), []models.ChatMessage{
		models.NewMessage(models.RoleUser, "Hello"),
	})
	require.NoError(t, err)

	all := collect(t, parts)
	require.Len(t, all, 4)
	assert.Equal(t, stream.PartStart, all[0].Type)
	assert.Equal(t, "Hi", all[1].Text)
	assert.Equal(t, " there!", all[2].Text)
	assert.Equal(t, stream.PartFinish, all[3].Type)
	assert.Equal(t, 2, all[3].Finish.CompletionTokens)

	require.Len(t, got.Messages, 1)
	assert.Equal(t, "Hello", got.Messages[0].Content)
}

func TestComplete_SendsMintedToken(t *testing.T) {
	auth := middleware.NewJWTAuth("secret")
	srv := httptest.NewServer(auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, tokenSubject, middleware.GetSubject(r.Context()))
		stream.SetHeaders(w.Header())
		stream.NewEncoder(w).Finish(stream.Finish{})
	})))
	defer srv.Close()

	parts, err := NewClient(srv.URL, "secret").Complete(context.Background(), nil)
	require.NoError(t, err)
	all := collect(t, parts)
	require.Len(t, all, 1)
	assert.Equal(t, stream.PartFinish, all[0].Type)

	_, err = NewClient(srv.URL, "wrong").Complete(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestComplete_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"VALIDATION_ERROR","message":"Invalid request body","request_id":"r"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").Complete(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "Invalid request body")
}

func TestComplete_TruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stream.SetHeaders(w.Header())
		w.Write([]byte("0:\"partial\"\n"))
	}))
	defer srv.Close()

	parts, err := NewClient(srv.URL, "").Complete(context.Background(), nil)
	require.NoError(t, err)

	all := collect(t, parts)
	require.Len(t, all, 2)
	assert.Equal(t, "partial", all[0].Text)
	assert.Equal(t, stream.PartError, all[1].Type)
	assert.True(t, strings.Contains(all[1].Text, "unexpected end"))
}
