package opencode

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"aromabot/pkg/config"
	providertypes "aromabot/pkg/provider/types"

	sdk "github.com/sst/opencode-sdk-go"
	"github.com/sst/opencode-sdk-go/option"
)

const sessionTitle = "aromabot completion"

// Client runs each completion in a fresh OpenCode session.
type Client struct {
	client         *sdk.Client
	model          string
	requestTimeout time.Duration
}

type healthResponse struct {
	Healthy bool   `json:"healthy"`
	Version string `json:"version"`
}

func New(cfg *config.Config, extra ...option.RequestOption) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.Providers.OpenCode.BaseURL)
	if baseURL == "" {
		return nil, errors.New("providers.opencode.base_url is required")
	}

	opts := []option.RequestOption{option.WithBaseURL(baseURL)}
	if authHeader, ok := buildBasicAuthHeader(cfg.Providers.OpenCode); ok {
		opts = append(opts, option.WithHeader("Authorization", authHeader))
	}
	opts = append(opts, extra...)

	return &Client{
		client:         sdk.NewClient(opts...),
		model:          strings.TrimSpace(cfg.AI.Model),
		requestTimeout: time.Duration(cfg.AI.RequestTimeoutSeconds) * time.Second,
	}, nil
}

func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	log := providerLogger().With("operation", "health")
	startedAt := time.Now()
	log.Debug("provider request started")

	var response healthResponse
	if err := c.client.Get(ctx, "/global/health", nil, &response); err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return fmt.Errorf("health check failed: %w", err)
	}
	if !response.Healthy {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", "server unhealthy")
		return errors.New("opencode server reported unhealthy status")
	}
	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "version", response.Version)
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

	session, err := c.client.Session.New(ctx, sdk.SessionNewParams{Title: sdk.F(sessionTitle)})
	if err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return providertypes.CompletionResult{}, fmt.Errorf("create session failed: %w", err)
	}
	if session.ID == "" {
		return providertypes.CompletionResult{}, errors.New("create session returned empty session id")
	}

	log.Debug("provider request started",
		"session_id", session.ID,
		"model", c.model,
		"prompt_length", len(prompt),
	)

	params := sdk.SessionPromptParams{
		Parts: sdk.F(promptParts(request.SystemPrompt, prompt)),
	}
	if providerID, modelID, ok := parseModelRef(c.model); ok {
		params.Model = sdk.F(sdk.SessionPromptParamsModel{
			ProviderID: sdk.F(providerID),
			ModelID:    sdk.F(modelID),
		})
	}

	response, err := c.client.Session.Prompt(ctx, session.ID, params)
	if err != nil {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return providertypes.CompletionResult{}, fmt.Errorf("completion failed: %w", err)
	}

	text := extractText(response.Parts)
	if text == "" {
		log.Debug("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", "no text parts")
		return providertypes.CompletionResult{}, errors.New("completion succeeded but returned no text parts")
	}
	log.Debug("provider request completed",
		"duration_ms", time.Since(startedAt).Milliseconds(),
		"response_length", len(text),
		"parts_count", len(response.Parts),
	)

	usage := providertypes.TokenUsage{
		InputTokens:     tokenCount(response.Info.Tokens.Input),
		OutputTokens:    tokenCount(response.Info.Tokens.Output),
		TotalTokens:     tokenCount(response.Info.Tokens.Input) + tokenCount(response.Info.Tokens.Output),
		ReasoningTokens: tokenCount(response.Info.Tokens.Reasoning),
		CacheReadTokens: tokenCount(response.Info.Tokens.Cache.Read),
	}

	return providertypes.CompletionResult{
		Text: text,
		Metadata: providertypes.CompletionMetadata{
			Provider: strings.TrimSpace(response.Info.ProviderID),
			Model:    strings.TrimSpace(response.Info.ModelID),
			Usage:    providertypes.UsagePtr(usage),
		},
	}, nil
}

// promptParts sends the system prompt as a leading text part; sessions are
// single-use so there is no history to carry it.
func promptParts(systemPrompt string, prompt string) []sdk.SessionPromptParamsPartUnion {
	var parts []sdk.SessionPromptParamsPartUnion
	if system := strings.TrimSpace(systemPrompt); system != "" {
		parts = append(parts, sdk.TextPartInputParam{
			Type: sdk.F(sdk.TextPartInputTypeText),
			Text: sdk.F(system),
		})
	}

	return append(parts, sdk.TextPartInputParam{
		Type: sdk.F(sdk.TextPartInputTypeText),
		Text: sdk.F(prompt),
	})
}

func providerLogger() *slog.Logger {
	return slog.Default().With("component", "provider.opencode")
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func buildBasicAuthHeader(cfg config.OpenCodeProviderConfig) (string, bool) {
	passwordEnv := strings.TrimSpace(cfg.PasswordEnv)
	if passwordEnv == "" {
		return "", false
	}

	password := strings.TrimSpace(os.Getenv(passwordEnv))
	if password == "" {
		return "", false
	}

	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		username = "opencode"
	}

	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return "Basic " + token, true
}

func parseModelRef(input string) (providerID string, modelID string, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(input), "/", 2)
	if len(parts) != 2 {
		return "", "", false
	}

	providerID = strings.TrimSpace(parts[0])
	modelID = strings.TrimSpace(parts[1])
	if providerID == "" || modelID == "" {
		return "", "", false
	}

	return providerID, modelID, true
}

func extractText(parts []sdk.Part) string {
	var lines []string
	for _, part := range parts {
		if part.Type == sdk.PartTypeText {
			text := strings.TrimSpace(part.Text)
			if text != "" {
				lines = append(lines, text)
			}
		}
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func tokenCount(value float64) int64 {
	if value <= 0 {
		return 0
	}

	return int64(math.Round(value))
}
