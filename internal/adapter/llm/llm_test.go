package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor/internal/domain"
)

func TestOllamaClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.1:8b", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, 0.7, req.Options.Temperature)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, domain.RoleSystem, req.Messages[0].Role)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"model":   req.Model,
			"message": map[string]string{"role": "assistant", "content": "Try the React course."},
			"done":    true,
		})
	}))
	defer server.Close()

	c := NewOllamaClient(server.URL, "", 0)
	out, err := c.Generate(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "be helpful"},
		{Role: domain.RoleUser, Content: "what should I learn?"},
	}, domain.GenerateOptions{Temperature: 0.7})

	require.NoError(t, err)
	assert.Equal(t, "Try the React course.", out)
}

func TestOllamaClient_GenerateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer server.Close()

	c := NewOllamaClient(server.URL, "missing", 0)
	_, err := c.Generate(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}}, domain.GenerateOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestOllamaClient_ListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[{"name":"llama3.1:8b"},{"name":"nomic-embed-text"}]}`))
	}))
	defer server.Close()

	c := NewOllamaClient(server.URL, "", 0)
	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.1:8b", "nomic-embed-text"}, models)
	assert.NoError(t, c.HealthCheck(context.Background()))
}

func TestOpenAIClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "custom", req.Model)

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  hello  "}}]}`))
	}))
	defer server.Close()

	c, err := NewOpenAIClient("k", server.URL, "gpt-4o-mini", 0)
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}}, domain.GenerateOptions{Model: "custom"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestOpenAIClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer server.Close()

	c, _ := NewOpenAIClient("k", server.URL, "", 0)
	_, err := c.Generate(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}}, domain.GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("", "", "", 0)
	assert.Error(t, err)
}

func TestMockClient_Topics(t *testing.T) {
	prompt := "Extract the main topics.\n\nConversation:\nuser: I want Docker training\nassistant: Docker and Kubernetes are covered\nuser: Kubernetes in depth please\n\nTopics:"

	out, err := NewMockClient().Generate(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: prompt}}, domain.GenerateOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "Docker")
	assert.Contains(t, out, "Kubernetes")
	assert.NotContains(t, out, "Conversation")
}
