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

func newTestCloudClient(baseURL, apiKey string) *CloudClient {
	return NewCloudClient(config.CloudConfig{
		APIKey:         apiKey,
		BaseURL:        baseURL,
		Model:          "qwen-plus",
		ModelFast:      "qwen-turbo",
		MaxTokens:      512,
		Temperature:    0.7,
		TimeoutSeconds: 5,
	}, nil)
}

func TestCloudClient_Chat(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var reqBody map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		gotModel, _ = reqBody["model"].(string)
		messages, _ := reqBody["messages"].([]any)
		assert.Len(t, messages, 2)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   gotModel,
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": "こんにちは！"},
					"finish_reason": "stop",
				},
			},
		})
	}))
	defer server.Close()

	client := newTestCloudClient(server.URL+"/v1", "sk-test")
	messages := []Message{SystemMessage("あなたはアシスタントです"), UserMessage("こんにちは")}

	result, err := client.Chat(context.Background(), messages, ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "こんにちは！", result)
	assert.Equal(t, "qwen-plus", gotModel)

	_, err = client.ChatFast(context.Background(), messages, nil)
	require.NoError(t, err)
	assert.Equal(t, "qwen-turbo", gotModel)
}

func TestCloudClient_ChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, token := range []string{"箱根", "経由で", "河口湖"} {
			chunk := map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"created": 1700000000,
				"model":   "qwen-plus",
				"choices": []map[string]any{
					{"index": 0, "delta": map[string]any{"content": token}},
				},
			}
			body, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", body)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := newTestCloudClient(server.URL+"/v1", "sk-test")
	text, err := collect(client.ChatStream(context.Background(), []Message{UserMessage("a")}, ChatOptions{}))
	require.NoError(t, err)
	assert.Equal(t, "箱根経由で河口湖", text)
}

func TestCloudClient_Errors(t *testing.T) {
	t.Run("APIキーなし", func(t *testing.T) {
		client := newTestCloudClient("http://127.0.0.1:1/v1", "")
		assert.False(t, client.IsAvailable())

		_, err := client.Chat(context.Background(), []Message{UserMessage("a")}, ChatOptions{})
		assert.ErrorIs(t, err, ErrNotConfigured)

		_, err = collect(client.ChatStream(context.Background(), []Message{UserMessage("a")}, ChatOptions{}))
		assert.ErrorIs(t, err, ErrNotConfigured)

		health := client.HealthCheck(context.Background())
		assert.False(t, health.Healthy)
	})

	t.Run("サーバーエラー", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"internal error","type":"server_error"}}`)
		}))
		defer server.Close()

		client := newTestCloudClient(server.URL+"/v1", "sk-test")
		_, err := client.Chat(context.Background(), []Message{UserMessage("a")}, ChatOptions{})
		assert.Error(t, err)

		health := client.HealthCheck(context.Background())
		assert.False(t, health.Healthy)
		assert.NotEmpty(t, health.Error)
	})
}
