package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	t.Setenv("TEST_OPENAI_KEY", "test-key")

	client, err := NewOpenAIClient(OpenAIConfig{
		BaseURL:   server.URL,
		APIKeyEnv: "TEST_OPENAI_KEY",
		Model:     "test-model",
	})
	require.NoError(t, err, "Expected client creation to succeed")
	return client
}

func TestNewOpenAIClient(t *testing.T) {
	t.Run("Missing API key fails", func(t *testing.T) {
		t.Setenv("UNSET_KEY_ENV", "")
		_, err := NewOpenAIClient(OpenAIConfig{APIKeyEnv: "UNSET_KEY_ENV"})
		assert.Error(t, err, "Expected missing key rejected")
	})
}

func TestInvoke(t *testing.T) {
	t.Run("Sends messages and parses the completion", func(t *testing.T) {
		var got chatRequest
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path, "Expected the chat completions path")
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"), "Expected the bearer token")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

			json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"role": "assistant", "content": "the answer"}},
				},
				"usage": map[string]int{"prompt_tokens": 42, "completion_tokens": 7},
			})
		})

		resp, err := client.Invoke(context.Background(), InvokeRequest{
			Prompt:        "the question",
			SystemMessage: "the system message",
			MaxTokens:     128,
			Temperature:   0.2,
		})
		require.NoError(t, err, "Expected invocation to succeed")
		assert.Equal(t, "the answer", resp.Text, "Expected the completion text")
		assert.Equal(t, 42, resp.PromptTokens, "Expected prompt token usage")
		assert.Equal(t, 7, resp.CompletionTokens, "Expected completion token usage")

		require.Len(t, got.Messages, 2, "Expected system and user messages")
		assert.Equal(t, "system", got.Messages[0].Role)
		assert.Equal(t, "the system message", got.Messages[0].Content)
		assert.Equal(t, "the question", got.Messages[1].Content)
		assert.Equal(t, "test-model", got.Model, "Expected the configured model")
	})

	t.Run("Omits the system message when empty", func(t *testing.T) {
		var got chatRequest
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"content": "ok"}},
				},
			})
		})

		_, err := client.Invoke(context.Background(), InvokeRequest{Prompt: "hi"})
		require.NoError(t, err)
		require.Len(t, got.Messages, 1, "Expected only the user message")
		assert.Equal(t, "user", got.Messages[0].Role)
	})

	t.Run("Server errors fail without retrying", func(t *testing.T) {
		calls := 0
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		})

		_, err := client.Invoke(context.Background(), InvokeRequest{Prompt: "hi"})
		require.Error(t, err, "Expected the server error surfaced")
		assert.Equal(t, 1, calls, "Expected a single round trip per call")
	})

	t.Run("Empty choices fail", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
		})

		_, err := client.Invoke(context.Background(), InvokeRequest{Prompt: "hi"})
		assert.Error(t, err, "Expected empty choices rejected")
	})
}
