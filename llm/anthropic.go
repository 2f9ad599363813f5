package llm

import (
	"context"
	"fmt"
	"time"

	"audit-automate/internal/types"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider sends page assessments to the Anthropic Messages API
type AnthropicProvider struct {
	client anthropic.Client
	model  string
	logger types.Logger
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(config *types.Config, logger types.Logger) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(config.MaxRetries),
		option.WithRequestTimeout(config.RequestTimeout),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	model := config.Model
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
		logger: logger,
	}, nil
}

// Analyze sends the image and prompt in a single user turn
func (p *AnthropicProvider) Analyze(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(req.maxTokens()),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(req.mediaType(), req.encodedImage()),
				anthropic.NewTextBlock(req.Prompt()),
			),
		},
	}

	p.logger.Debugf("Calling anthropic model %s (%d image bytes)", p.model, len(req.Image))
	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += b.Text
		}
	}
	content, err := checkContent(text)
	if err != nil {
		return nil, fmt.Errorf("anthropic stop reason %q: %w", resp.StopReason, err)
	}

	return &Response{
		Content:      content,
		FinishReason: string(resp.StopReason),
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
		Model:        string(resp.Model),
		Duration:     time.Since(start),
	}, nil
}

// Name returns the provider identifier
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the configured model name
func (p *AnthropicProvider) Model() string {
	return p.model
}
