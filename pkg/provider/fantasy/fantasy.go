package fantasy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	core "charm.land/fantasy"
	provideropenai "charm.land/fantasy/providers/openai"

	"aromabot/pkg/config"
	providertypes "aromabot/pkg/provider/types"
)

type languageModelProvider interface {
	LanguageModel(ctx context.Context, modelID string) (core.LanguageModel, error)
}

// Client runs completions through a fantasy agent backed by OpenAI.
type Client struct {
	provider        languageModelProvider
	requestTimeout  time.Duration
	modelID         string
	maxOutputTokens *int64
	temperature     *float64
	generate        func(context.Context, core.LanguageModel, core.AgentCall) (*core.AgentResult, error)
}

func New(cfg *config.Config) (*Client, error) {
	apiKey := resolveAPIKey(cfg.Providers.OpenAI)
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY must be set")
	}

	modelID, err := normalizeOpenAIModel(cfg.AI.Model)
	if err != nil {
		return nil, err
	}

	providerOptions := []provideropenai.Option{provideropenai.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(cfg.Providers.OpenAI.BaseURL); baseURL != "" {
		providerOptions = append(providerOptions, provideropenai.WithBaseURL(baseURL))
	}
	if organization := strings.TrimSpace(cfg.Providers.OpenAI.Organization); organization != "" {
		providerOptions = append(providerOptions, provideropenai.WithOrganization(organization))
	}
	if project := strings.TrimSpace(cfg.Providers.OpenAI.Project); project != "" {
		providerOptions = append(providerOptions, provideropenai.WithProject(project))
	}

	fantasyProvider, err := provideropenai.New(providerOptions...)
	if err != nil {
		return nil, fmt.Errorf("initialize fantasy openai provider: %w", err)
	}

	client := &Client{
		provider:       fantasyProvider,
		requestTimeout: time.Duration(cfg.AI.RequestTimeoutSeconds) * time.Second,
		modelID:        modelID,
		generate:       generateWithFantasyAgent,
	}

	if cfg.AI.MaxTokens > 0 {
		maxTokens := int64(cfg.AI.MaxTokens)
		client.maxOutputTokens = &maxTokens
	}
	if cfg.AI.Temperature > 0 {
		temp := cfg.AI.Temperature
		client.temperature = &temp
	}

	return client, nil
}

func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if _, err := c.provider.LanguageModel(ctx, c.modelID); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

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

	var messages []core.Message
	if system := strings.TrimSpace(request.SystemPrompt); system != "" {
		messages = append(messages, core.Message{
			Role: core.MessageRoleSystem,
			Content: []core.MessagePart{
				core.TextPart{Text: system},
			},
		})
	}

	languageModel, err := c.provider.LanguageModel(ctx, c.modelID)
	if err != nil {
		return providertypes.CompletionResult{}, fmt.Errorf("resolve language model: %w", err)
	}

	call := core.AgentCall{
		Prompt:          prompt,
		Messages:        messages,
		MaxOutputTokens: c.maxOutputTokens,
		Temperature:     c.temperature,
	}
	if request.MaxTokens > 0 {
		maxTokens := int64(request.MaxTokens)
		call.MaxOutputTokens = &maxTokens
	}
	if request.Temperature > 0 {
		temp := request.Temperature
		call.Temperature = &temp
	}

	generate := c.generate
	if generate == nil {
		generate = generateWithFantasyAgent
	}

	log.Debug("provider request started", "model", c.modelID, "prompt_length", len(prompt))

	result, err := generate(ctx, languageModel, call)
	if err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return providertypes.CompletionResult{}, fmt.Errorf("completion failed: %w", err)
	}

	response := extractText(result.Response.Content)
	if response == "" {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", "no text")
		return providertypes.CompletionResult{}, errors.New("completion succeeded but returned no text")
	}
	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "response_length", len(response))

	usage := providertypes.TokenUsage{
		InputTokens:         result.TotalUsage.InputTokens,
		OutputTokens:        result.TotalUsage.OutputTokens,
		TotalTokens:         result.TotalUsage.TotalTokens,
		ReasoningTokens:     result.TotalUsage.ReasoningTokens,
		CacheCreationTokens: result.TotalUsage.CacheCreationTokens,
		CacheReadTokens:     result.TotalUsage.CacheReadTokens,
	}

	return providertypes.CompletionResult{
		Text: response,
		Metadata: providertypes.CompletionMetadata{
			Provider: "openai",
			Model:    c.modelID,
			Usage:    providertypes.UsagePtr(usage),
		},
	}, nil
}

func providerLogger() *slog.Logger {
	return slog.Default().With("component", "provider.fantasy")
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.requestTimeout)
}

func resolveAPIKey(cfg config.OpenAIProviderConfig) string {
	if apiKeyEnv := strings.TrimSpace(cfg.APIKeyEnv); apiKeyEnv != "" {
		if apiKey := strings.TrimSpace(os.Getenv(apiKeyEnv)); apiKey != "" {
			return apiKey
		}
	}

	return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
}

func normalizeOpenAIModel(model string) (string, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return "", errors.New("model is required")
	}

	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 {
		return model, nil
	}

	providerID := strings.TrimSpace(parts[0])
	modelID := strings.TrimSpace(parts[1])
	if providerID == "" || modelID == "" {
		return "", errors.New("model is invalid")
	}
	if providerID != "openai" {
		return "", fmt.Errorf("model provider %q is not supported by fantasy openai provider", providerID)
	}

	return modelID, nil
}

func extractText(content core.ResponseContent) string {
	lines := make([]string, 0)
	for _, part := range content {
		if part.GetType() != core.ContentTypeText {
			continue
		}

		textPart, ok := core.AsContentType[core.TextContent](part)
		if !ok {
			continue
		}

		line := strings.TrimSpace(textPart.Text)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func generateWithFantasyAgent(ctx context.Context, model core.LanguageModel, call core.AgentCall) (*core.AgentResult, error) {
	runtime := core.NewAgent(model)
	return runtime.Generate(ctx, call)
}
