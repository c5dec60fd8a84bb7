// Package advisor turns mood and music requests into AI-written
// recommendations, falling back to static copy when no provider answers.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"aromabot/pkg/config"
	"aromabot/pkg/logger"
	providertypes "aromabot/pkg/provider/types"
	"aromabot/pkg/store"
)

// MaxPromptOils caps how many catalog entries are listed in a mood prompt.
const MaxPromptOils = 20

// Completer is the provider surface the advisor needs.
type Completer interface {
	Complete(ctx context.Context, req providertypes.CompletionRequest) (providertypes.CompletionResult, error)
}

// Recommendation is one rendered reply.
type Recommendation struct {
	Text     string
	Fallback bool
	Model    string
	Usage    *providertypes.TokenUsage
}

// Advisor builds prompts from embedded templates and calls the completer.
type Advisor struct {
	client    Completer
	settings  config.AIConfig
	templates *template.Template
	log       *slog.Logger
}

// New returns an advisor. A nil client makes every answer a fallback.
func New(client Completer, settings config.AIConfig, log *slog.Logger) (*Advisor, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	return &Advisor{
		client:    client,
		settings:  settings,
		templates: templates,
		log:       logger.Component(log, "advisor"),
	}, nil
}

type moodData struct {
	Mood     string
	Oils     []store.Oil
	Keywords []string
}

type musicData struct {
	Request string
}

// MoodRecommendation suggests oils for a mood phrase.
func (a *Advisor) MoodRecommendation(ctx context.Context, mood string, oils []store.Oil, keywords []string) Recommendation {
	if len(oils) > MaxPromptOils {
		oils = oils[:MaxPromptOils]
	}
	data := moodData{Mood: strings.TrimSpace(mood), Oils: oils, Keywords: keywords}

	return a.recommend(ctx, "mood", data, templateMoodSystem, templateMoodPrompt, templateMoodFallback,
		a.settings.MaxTokens, a.settings.Temperature)
}

// MusicRecommendation suggests relaxation music for the raw request text.
func (a *Advisor) MusicRecommendation(ctx context.Context, request string) Recommendation {
	data := musicData{Request: strings.TrimSpace(request)}
	maxTokens := a.settings.MusicMaxTokens
	if maxTokens <= 0 {
		maxTokens = a.settings.MaxTokens
	}
	temperature := a.settings.MusicTemperature
	if temperature <= 0 {
		temperature = a.settings.Temperature
	}

	return a.recommend(ctx, "music", data, templateMusicSystem, templateMusicPrompt, templateMusicFallback,
		maxTokens, temperature)
}

func (a *Advisor) recommend(ctx context.Context, kind string, data any, systemName, promptName, fallbackName string, maxTokens int, temperature float64) Recommendation {
	fallback := func(reason error) Recommendation {
		if reason != nil {
			a.log.Warn("advisor using fallback", "kind", kind, "error", reason)
		}
		text, err := render(a.templates, fallbackName, data)
		if err != nil {
			a.log.Error("render fallback failed", "kind", kind, "error", err)
			return Recommendation{Fallback: true}
		}
		return Recommendation{Text: text, Fallback: true}
	}

	if a.client == nil {
		return fallback(nil)
	}

	system, err := render(a.templates, systemName, data)
	if err != nil {
		return fallback(err)
	}
	prompt, err := render(a.templates, promptName, data)
	if err != nil {
		return fallback(err)
	}

	started := time.Now()
	result, err := a.client.Complete(ctx, providertypes.CompletionRequest{
		SystemPrompt: system,
		Prompt:       prompt,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
	})
	if err != nil {
		return fallback(fmt.Errorf("complete %s: %w", kind, err))
	}

	text := CleanResponse(result.Text)
	if text == "" {
		return fallback(fmt.Errorf("complete %s: empty response", kind))
	}

	a.log.Debug("advisor completed",
		"kind", kind,
		"model", result.Metadata.Model,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return Recommendation{
		Text:  text,
		Model: result.Metadata.Model,
		Usage: result.Metadata.Usage,
	}
}
