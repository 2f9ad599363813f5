package llm

import (
	"context"
	"fmt"
	"time"

	"audit-automate/internal/types"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider talks to the OpenAI chat completions API or any compatible endpoint
// (Gemini exposes one)
type OpenAIProvider struct {
	client openai.Client
	model  string
	name   string
	logger types.Logger
}

// NewOpenAIProvider creates a provider for baseURL (empty means api.openai.com)
func NewOpenAIProvider(config *types.Config, logger types.Logger, baseURL string) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s API key required", config.Provider)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(config.MaxRetries),
		option.WithRequestTimeout(config.RequestTimeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	model := config.Model
	name := "openai"
	if baseURL == GeminiBaseURL {
		name = "gemini"
		if model == "" {
			model = "gemini-1.5-flash"
		}
	}
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		model:  model,
		name:   name,
		logger: logger,
	}, nil
}

// Analyze sends the prompt and the image as a data URL in a single user message
func (p *OpenAIProvider) Analyze(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	dataURL := fmt.Sprintf("data:%s;base64,%s", req.mediaType(), req.encodedImage())
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(req.Prompt()),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
		MaxTokens: openai.Int(int64(req.maxTokens())),
	}

	p.logger.Debugf("Calling %s model %s (%d image bytes)", p.name, p.model, len(req.Image))
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response: %w", ErrEmptyResponse)
	}

	choice := resp.Choices[0]
	content, err := checkContent(choice.Message.Content)
	if err != nil {
		return nil, fmt.Errorf("%s finish reason %q: %w", p.name, choice.FinishReason, err)
	}

	return &Response{
		Content:      content,
		FinishReason: string(choice.FinishReason),
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		Model:        resp.Model,
		Duration:     time.Since(start),
	}, nil
}

// Name returns the provider identifier
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Model returns the configured model name
func (p *OpenAIProvider) Model() string {
	return p.model
}
