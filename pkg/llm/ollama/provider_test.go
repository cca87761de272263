package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"nyan-bot/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatMapsRolesAndOptions(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"purr"},"done":true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3", 64)
	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: "model", Content: "hello"},
	}, llm.WithSystemPrompt("cat"))
	require.NoError(t, err)

	assert.Equal(t, "purr", out)
	assert.False(t, got.Stream)
	assert.Equal(t, "llama3", got.Model)
	require.NotNil(t, got.Options)
	assert.Equal(t, 64, got.Options.NumPredict)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleSystem, Content: "cat"},
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello"},
	}, got.Messages)
}

func TestChatSurfacesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "missing", 0).Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
