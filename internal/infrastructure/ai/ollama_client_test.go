package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shokugyo/not-a-car/internal/config"
)

func newTestOllamaClient(baseURL string) *OllamaClient {
	return NewOllamaClient(config.OllamaConfig{
		BaseURL:        baseURL,
		Model:          "qwen3:1.7b",
		ModelFast:      "qwen3:0.6b",
		TimeoutSeconds: 5,
		NumCtx:         4096,
		Temperature:    0.7,
	}, nil)
}

func TestOllamaClient_Chat(t *testing.T) {
	var got ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"model":"qwen3:1.7b","message":{"role":"assistant","content":"了解しました"},"done":true}`)
	}))
	defer server.Close()

	client := newTestOllamaClient(server.URL)
	result, err := client.Chat(context.Background(), []Message{UserMessage("こんにちは")},
		ChatOptions{Temperature: Temperature(0.2), MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "了解しました", result)

	assert.Equal(t, "qwen3:1.7b", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, 0.2, got.Options.Temperature)
	assert.Equal(t, 4096, got.Options.NumCtx)
	assert.Equal(t, 100, got.Options.NumPredict)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, RoleUser, got.Messages[0].Role)

	_, err = client.ChatFast(context.Background(), []Message{UserMessage("a")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "qwen3:0.6b", got.Model)
	assert.Equal(t, 0.7, got.Options.Temperature)
}

func TestOllamaClient_ChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"静かな"},"done":false}`)
		fmt.Fprintln(w, `not json`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"温泉"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer server.Close()

	client := newTestOllamaClient(server.URL)
	text, err := collect(client.ChatStream(context.Background(), []Message{UserMessage("a")}, ChatOptions{}))
	require.NoError(t, err)
	assert.Equal(t, "静かな温泉", text)
}

func TestOllamaClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestOllamaClient(server.URL)
	_, err := client.Chat(context.Background(), []Message{UserMessage("a")}, ChatOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	_, err = collect(client.ChatStream(context.Background(), []Message{UserMessage("a")}, ChatOptions{}))
	assert.Error(t, err)
}

func TestOllamaClient_HealthCheck(t *testing.T) {
	t.Run("モデルあり", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/tags", r.URL.Path)
			fmt.Fprint(w, `{"models":[{"name":"qwen3:1.7b"},{"name":"llama3:8b"}]}`)
		}))
		defer server.Close()

		client := newTestOllamaClient(server.URL)
		health := client.HealthCheck(context.Background())
		assert.True(t, health.Healthy)
		assert.Equal(t, []string{"qwen3:1.7b", "llama3:8b"}, health.AvailableModels)
		assert.True(t, client.IsAvailable())
	})

	t.Run("モデルなし", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"models":[{"name":"llama3:8b"}]}`)
		}))
		defer server.Close()

		client := newTestOllamaClient(server.URL)
		health := client.HealthCheck(context.Background())
		assert.False(t, health.Healthy)
		assert.Contains(t, health.Error, "qwen3:1.7b")
		assert.False(t, client.IsAvailable())
	})

	t.Run("接続できない", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		client := newTestOllamaClient(url)
		health := client.HealthCheck(context.Background())
		assert.False(t, health.Healthy)
		assert.NotEmpty(t, health.Error)
	})
}
