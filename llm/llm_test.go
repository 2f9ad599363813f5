package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"audit-automate/internal/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *types.Config {
	config := types.DefaultConfig()
	config.Provider = "ollama"
	config.BaseURL = baseURL
	config.RequestDelay = time.Millisecond
	config.RequestTimeout = 5 * time.Second
	config.MaxRetries = 1
	return config
}

func TestOllamaProvider_Analyze(t *testing.T) {
	var got ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ollamaResponse{
			Model:      "llava",
			Message:    ollamaMessage{Role: "assistant", Content: "**Title Actual:** Drill"},
			Done:       true,
			DoneReason: "stop",
			EvalCount:  12,
		})
	}))
	defer server.Close()

	provider := NewOllamaProvider(testConfig(server.URL), logrus.New())
	defer provider.Close()

	resp, err := provider.Analyze(context.Background(), Request{
		Instruction: "Audit this page.",
		PageText:    "Cordless Drill",
		Image:       []byte{0x89, 'P', 'N', 'G'},
	})

	require.NoError(t, err)
	assert.Equal(t, "**Title Actual:** Drill", resp.Content)
	assert.Equal(t, 12, resp.OutputTokens)
	assert.Equal(t, "llava", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "Audit this page.\n\nExtracted Text:\nCordless Drill", got.Messages[0].Content)
	assert.Equal(t, []string{base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'})}, got.Messages[0].Images)
	assert.False(t, got.Stream)
}

func TestOllamaProvider_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaResponse{Message: ollamaMessage{Content: "  "}})
	}))
	defer server.Close()

	provider := NewOllamaProvider(testConfig(server.URL), logrus.New())
	defer provider.Close()

	_, err := provider.Analyze(context.Background(), Request{Instruction: "x"})

	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOllamaProvider_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	provider := NewOllamaProvider(testConfig(server.URL), logrus.New())
	defer provider.Close()

	_, err := provider.Analyze(context.Background(), Request{Instruction: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama request failed")
}

func TestNew_SelectsProvider(t *testing.T) {
	config := testConfig("")
	config.APIKey = "test-key"

	tests := []struct {
		provider string
		name     string
		model    string
	}{
		{"anthropic", "anthropic", "claude-sonnet-4-20250514"},
		{"openai", "openai", "gpt-4o"},
		{"gemini", "gemini", "gemini-1.5-flash"},
		{"ollama", "ollama", "llava"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			config.Provider = tt.provider
			p, err := New(config, logrus.New())
			require.NoError(t, err)
			assert.Equal(t, tt.name, p.Name())
			assert.Equal(t, tt.model, p.Model())
		})
	}
}

func TestNew_RequiresKeyForHostedProviders(t *testing.T) {
	config := testConfig("")
	config.Provider = "anthropic"

	_, err := New(config, logrus.New())
	assert.Error(t, err)

	config.Provider = "mystery"
	_, err = New(config, logrus.New())
	assert.Error(t, err)
}

func TestRequest_Defaults(t *testing.T) {
	req := Request{}
	assert.Equal(t, "image/png", req.mediaType())
	assert.Equal(t, 4096, req.maxTokens())
}
