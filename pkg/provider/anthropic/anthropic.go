package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	asdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"aromabot/pkg/config"
	providertypes "aromabot/pkg/provider/types"
)

const (
	providerID       = "anthropic"
	defaultMaxTokens = 1024
)

type Client struct {
	client         asdk.Client
	model          string
	maxTokens      int
	temperature    float64
	requestTimeout time.Duration
}

func New(cfg *config.Config, extra ...option.RequestOption) (*Client, error) {
	providerCfg := cfg.Providers.Anthropic
	apiKey := resolveAPIKey(providerCfg)
	if apiKey == "" {
		return nil, errors.New("providers.anthropic.api_key_env is required or ANTHROPIC_API_KEY must be set")
	}

	model, err := normalizeModel(cfg.AI.Model)
	if err != nil {
		return nil, err
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(providerCfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	requestTimeout := time.Duration(cfg.AI.RequestTimeoutSeconds) * time.Second
	if requestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(requestTimeout))
	}
	opts = append(opts, extra...)

	return &Client{
		client:         asdk.NewClient(opts...),
		model:          model,
		maxTokens:      cfg.AI.MaxTokens,
		temperature:    cfg.AI.Temperature,
		requestTimeout: requestTimeout,
	}, nil
}

func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log := providerLogger().With("operation", "health")
	startedAt := time.Now()
	log.Debug("provider request started")

	if _, err := c.client.Models.List(ctx, asdk.ModelListParams{}); err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds())

	return nil
}

func (c *Client) Complete(ctx context.Context, request providertypes.CompletionRequest) (providertypes.CompletionResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log := providerLogger().With("operation", "complete")
	startedAt := time.Now()

	prompt := strings.TrimSpace(request.Prompt)
	if prompt == "" {
		return providertypes.CompletionResult{}, errors.New("prompt is required")
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := asdk.MessageNewParams{
		Model:     asdk.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []asdk.MessageParam{
			asdk.NewUserMessage(asdk.NewTextBlock(prompt)),
		},
	}
	if system := strings.TrimSpace(request.SystemPrompt); system != "" {
		params.System = []asdk.TextBlockParam{{Text: system}}
	}
	temperature := request.Temperature
	if temperature <= 0 {
		temperature = c.temperature
	}
	// The Messages API caps temperature at 1.
	if temperature > 0 {
		params.Temperature = asdk.Float(min(temperature, 1))
	}

	log.Debug("provider request started", "model", c.model, "prompt_length", len(prompt))

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return providertypes.CompletionResult{}, fmt.Errorf("completion failed: %w", err)
	}

	var parts []string
	for _, block := range message.Content {
		if block.Type == "text" {
			if text := strings.TrimSpace(block.Text); text != "" {
				parts = append(parts, text)
			}
		}
	}
	text := strings.Join(parts, "\n")
	if text == "" {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", "no text content")
		return providertypes.CompletionResult{}, errors.New("completion succeeded but returned no text")
	}

	usage := providertypes.TokenUsage{
		InputTokens:         message.Usage.InputTokens,
		OutputTokens:        message.Usage.OutputTokens,
		TotalTokens:         message.Usage.InputTokens + message.Usage.OutputTokens,
		CacheCreationTokens: message.Usage.CacheCreationInputTokens,
		CacheReadTokens:     message.Usage.CacheReadInputTokens,
	}
	log.Debug("provider request completed",
		"duration_ms", time.Since(startedAt).Milliseconds(),
		"response_length", len(text),
		"tokens_in", usage.InputTokens,
		"tokens_out", usage.OutputTokens,
	)

	return providertypes.CompletionResult{
		Text: text,
		Metadata: providertypes.CompletionMetadata{
			Provider: providerID,
			Model:    c.model,
			Usage:    providertypes.UsagePtr(usage),
		},
	}, nil
}

func providerLogger() *slog.Logger {
	return slog.Default().With("component", "provider.anthropic")
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.requestTimeout)
}

func resolveAPIKey(cfg config.AnthropicProviderConfig) string {
	if apiKeyEnv := strings.TrimSpace(cfg.APIKeyEnv); apiKeyEnv != "" {
		if apiKey := strings.TrimSpace(os.Getenv(apiKeyEnv)); apiKey != "" {
			return apiKey
		}
	}

	return strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
}

func normalizeModel(model string) (string, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return "", errors.New("model is required")
	}

	prefix, modelID, found := strings.Cut(model, "/")
	if !found {
		return model, nil
	}

	prefix = strings.TrimSpace(prefix)
	modelID = strings.TrimSpace(modelID)
	if prefix == "" || modelID == "" {
		return "", errors.New("model is invalid")
	}
	if prefix != providerID {
		return "", fmt.Errorf("model provider %q is not supported by anthropic provider", prefix)
	}

	return modelID, nil
}
