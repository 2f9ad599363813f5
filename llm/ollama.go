package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"audit-automate/internal/types"
	"audit-automate/utils"
)

// OllamaProvider communicates with a local Ollama instance through the shared
// rate-limited HTTP client
type OllamaProvider struct {
	baseURL string
	model   string
	http    *utils.HTTPClient
	logger  types.Logger
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(config *types.Config, logger types.Logger) *OllamaProvider {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	model := config.Model
	if model == "" {
		model = "llava"
	}

	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    utils.NewHTTPClient(config, logger),
		logger:  logger,
	}
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaOptions struct {
	NumPredict int `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

// Analyze posts a non-streaming chat request with the screenshot attached
func (p *OllamaProvider) Analyze(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	payload := ollamaRequest{
		Model: p.model,
		Messages: []ollamaMessage{{
			Role:    "user",
			Content: req.Prompt(),
			Images:  []string{req.encodedImage()},
		}},
		Options: ollamaOptions{NumPredict: req.maxTokens()},
	}

	p.logger.Debugf("Calling ollama model %s at %s", p.model, p.baseURL)
	var out ollamaResponse
	if err := p.http.PostJSON(ctx, p.baseURL+"/api/chat", payload, &out); err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}

	content, err := checkContent(out.Message.Content)
	if err != nil {
		return nil, err
	}

	return &Response{
		Content:      content,
		FinishReason: out.DoneReason,
		InputTokens:  out.PromptEvalCount,
		OutputTokens: out.EvalCount,
		Model:        out.Model,
		Duration:     time.Since(start),
	}, nil
}

// Name returns the provider identifier
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Model returns the configured model name
func (p *OllamaProvider) Model() string {
	return p.model
}

// Close stops the HTTP client's rate limiter
func (p *OllamaProvider) Close() {
	p.http.Close()
}
