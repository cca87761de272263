package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"nyan-bot/pkg/llm"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type textBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type sentMessage struct {
	Role    string      `json:"role"`
	Content []textBlock `json:"content"`
}

// sentRequest is the Messages API body as it reaches the server.
type sentRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      []textBlock   `json:"system"`
	Messages    []sentMessage `json:"messages"`
	Temperature *float64      `json:"temperature"`
}

func messageBody(text string) string {
	return `{"id":"msg_1","type":"message","role":"assistant","model":"m",` +
		`"content":[{"type":"text","text":` + mustJSON(text) + `}],` +
		`"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`
}

func mustJSON(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func newServer(t *testing.T, got *sentRequest, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			assert.Equal(t, "/v1/messages", r.URL.Path)
			assert.Equal(t, "secret", r.Header.Get("x-api-key"))
			assert.NotEmpty(t, r.Header.Get("anthropic-version"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateSendsMessagesRequest(t *testing.T) {
	var got sentRequest
	srv := newServer(t, &got, http.StatusOK, messageBody("Hello there."))

	p := NewAnthropicProvider("secret", srv.URL+"/", "", 0)
	out, err := p.Generate(context.Background(), "hi", llm.WithSystemPrompt("be a cat"))
	require.NoError(t, err)

	assert.Equal(t, "Hello there.", out)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.Equal(t, []textBlock{{Type: "text", Text: "be a cat"}}, got.System)
	assert.Nil(t, got.Temperature)
	assert.Equal(t, []sentMessage{
		{Role: "user", Content: []textBlock{{Type: "text", Text: "hi"}}},
	}, got.Messages)
}

func TestChatMovesSystemTurns(t *testing.T) {
	var got sentRequest
	srv := newServer(t, &got, http.StatusOK, messageBody("ok"))

	p := NewAnthropicProvider("secret", srv.URL, "claude-x", 50)
	_, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "rules"},
		{Role: llm.RoleUser, Content: "q"},
		{Role: "model", Content: "a"},
	}, llm.WithTemperature(0.2))
	require.NoError(t, err)

	assert.Equal(t, "claude-x", got.Model)
	assert.Equal(t, 50, got.MaxTokens)
	assert.Equal(t, []textBlock{{Type: "text", Text: "rules"}}, got.System)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.2, *got.Temperature, 1e-9)
	assert.Equal(t, []sentMessage{
		{Role: "user", Content: []textBlock{{Type: "text", Text: "q"}}},
		{Role: "assistant", Content: []textBlock{{Type: "text", Text: "a"}}},
	}, got.Messages)
}

func TestGenerateAPIErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	_, err := NewAnthropicProvider("k", srv.URL, "", 0).Generate(context.Background(), "q")
	require.Error(t, err)

	var apiErr *anthropic.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "upstream down",
			status:  http.StatusBadGateway,
			body:    `{"type":"error","error":{"type":"api_error","message":"upstream down"}}`,
			wantErr: "anthropic request failed",
		},
		{
			name:    "no text content",
			status:  http.StatusOK,
			body:    `{"id":"msg_1","type":"message","role":"assistant","content":[],"stop_reason":"max_tokens"}`,
			wantErr: "no text content",
		},
		{
			name:    "malformed json",
			status:  http.StatusOK,
			body:    `{`,
			wantErr: "anthropic request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, nil, tt.status, tt.body)

			_, err := NewAnthropicProvider("k", srv.URL, "", 0).Generate(context.Background(), "q")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
