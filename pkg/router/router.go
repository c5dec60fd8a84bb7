// Package router classifies inbound chat events into intents and extracts
// the fields each intent needs. It performs no I/O and keeps no state
// between calls, so a Router is safe for concurrent use.
package router

import (
	"fmt"
	"strings"
	"time"
)

// UnknownChatID is reported when an event carries no usable chat identifier.
const UnknownChatID = "unknown"

const defaultDisplayName = "User"

const (
	ReasonNoInput    = "no input data"
	ReasonNoText     = "no text provided"
	ReasonNoChat     = "no chat id"
	ReasonProcessing = "processing error"
)

// Result is the classification of one inbound event.
type Result struct {
	OriginalText    string    `json:"original_text"`
	NormalizedText  string    `json:"normalized_text,omitempty"`
	Category        Category  `json:"request_type"`
	ChatID          string    `json:"chat_id"`
	UserID          string    `json:"user_id,omitempty"`
	UserDisplayName string    `json:"user_name,omitempty"`
	Metadata        Metadata  `json:"metadata"`
	Reason          string    `json:"error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Router is the single entry point of the package.
type Router struct {
	taxonomy   *Taxonomy
	classifier *Classifier
	now        func() time.Time
}

// New builds a router over taxonomy. A nil taxonomy selects the embedded default.
func New(taxonomy *Taxonomy) *Router {
	if taxonomy == nil {
		taxonomy = MustDefaultTaxonomy()
	}

	return &Router{
		taxonomy:   taxonomy,
		classifier: NewClassifier(taxonomy),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Taxonomy returns the taxonomy the router classifies against.
func (r *Router) Taxonomy() *Taxonomy {
	return r.taxonomy
}

// Analyze classifies event. It always returns a Result: malformed input and
// internal faults are reported as CategoryError with a Reason.
func (r *Router) Analyze(event InboundEvent) (result Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = r.errorResult(fmt.Sprintf("%s: %v", ReasonProcessing, recovered), UnknownChatID)
		}
	}()

	switch typed := event.(type) {
	case TextMessage:
		return r.analyzeText(typed)
	case *TextMessage:
		if typed == nil {
			return r.errorResult(ReasonNoInput, UnknownChatID)
		}
		return r.analyzeText(*typed)
	case CallbackEvent:
		return r.analyzeCallback(typed)
	case *CallbackEvent:
		if typed == nil {
			return r.errorResult(ReasonNoInput, UnknownChatID)
		}
		return r.analyzeCallback(*typed)
	default:
		return r.errorResult(ReasonNoInput, UnknownChatID)
	}
}

func (r *Router) analyzeCallback(event CallbackEvent) Result {
	if strings.TrimSpace(event.ChatID) == "" {
		return r.errorResult(ReasonNoChat, UnknownChatID)
	}

	return AdaptCallback(event, r.now())
}

func (r *Router) analyzeText(message TextMessage) Result {
	chatID := strings.TrimSpace(message.ChatID)
	rawText := strings.TrimSpace(message.Text)

	if rawText == "" {
		if chatID == "" {
			chatID = UnknownChatID
		}
		return r.errorResult(ReasonNoText, chatID)
	}
	if chatID == "" {
		return r.errorResult(ReasonNoChat, UnknownChatID)
	}

	normalizedText := Normalize(rawText)
	category := r.classifier.Classify(rawText, normalizedText)

	return Result{
		OriginalText:    rawText,
		NormalizedText:  normalizedText,
		Category:        category,
		ChatID:          chatID,
		UserID:          message.UserID,
		UserDisplayName: displayName(message.UserDisplayName),
		Metadata:        r.taxonomy.ExtractMetadata(rawText, normalizedText, category),
		Timestamp:       r.now(),
	}
}

func (r *Router) errorResult(reason string, chatID string) Result {
	return Result{
		Category:  CategoryError,
		ChatID:    chatID,
		Reason:    reason,
		Timestamp: r.now(),
	}
}

func displayName(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}

	return defaultDisplayName
}
