// Package llm wraps the vision-capable reasoning services used to assess captured product pages.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"audit-automate/internal/types"
)

// ErrEmptyResponse is returned when a provider answers without any text
var ErrEmptyResponse = errors.New("empty response from provider")

// GeminiBaseURL is the OpenAI-compatible endpoint for Gemini models
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// Request is one page assessment: instruction, extracted page text and the screenshot
type Request struct {
	Instruction string
	PageText    string
	Image       []byte
	MediaType   string
	MaxTokens   int
}

// Prompt joins the instruction and the page text into the text part of the request
func (r Request) Prompt() string {
	return r.Instruction + "\n\nExtracted Text:\n" + r.PageText
}

func (r Request) mediaType() string {
	if r.MediaType == "" {
		return "image/png"
	}
	return r.MediaType
}

func (r Request) encodedImage() string {
	return base64.StdEncoding.EncodeToString(r.Image)
}

func (r Request) maxTokens() int {
	if r.MaxTokens <= 0 {
		return 4096
	}
	return r.MaxTokens
}

// Response is the free-text reply of a provider
type Response struct {
	Content      string
	FinishReason string
	InputTokens  int
	OutputTokens int
	Model        string
	Duration     time.Duration
}

// Provider is a reasoning service that can look at a page image and its text
type Provider interface {
	Analyze(ctx context.Context, req Request) (*Response, error)
	Name() string
	Model() string
}

// New builds the provider selected by config
func New(config *types.Config, logger types.Logger) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "anthropic", "":
		return NewAnthropicProvider(config, logger)
	case "openai":
		return NewOpenAIProvider(config, logger, config.BaseURL)
	case "gemini":
		baseURL := config.BaseURL
		if baseURL == "" {
			baseURL = GeminiBaseURL
		}
		return NewOpenAIProvider(config, logger, baseURL)
	case "ollama":
		return NewOllamaProvider(config, logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", config.Provider)
	}
}

func checkContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
