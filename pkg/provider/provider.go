// Package provider selects the AI completion backend used for mood and music
// recommendations.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"aromabot/pkg/config"
	provideranthropic "aromabot/pkg/provider/anthropic"
	providerfantasy "aromabot/pkg/provider/fantasy"
	provideropenai "aromabot/pkg/provider/openai"
	"aromabot/pkg/provider/opencode"
	providertypes "aromabot/pkg/provider/types"
)

// Client is a single-turn text completion backend.
type Client interface {
	Health(ctx context.Context) error
	Complete(ctx context.Context, request providertypes.CompletionRequest) (providertypes.CompletionResult, error)
}

// New builds the client named by ai.provider.
func New(cfg *config.Config) (Client, error) {
	providerID := strings.ToLower(strings.TrimSpace(cfg.AI.Provider))
	if providerID == "" {
		providerID = config.DefaultProvider
	}

	slog.Default().With("component", "provider.factory").Debug("Resolving provider client", "provider", providerID)

	switch providerID {
	case "openai":
		return provideropenai.New(cfg)
	case "anthropic":
		return provideranthropic.New(cfg)
	case "fantasy":
		return providerfantasy.New(cfg)
	case "opencode":
		return opencode.New(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerID)
	}
}
