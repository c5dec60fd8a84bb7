package types

// CompletionRequest is one single-turn completion call.
type CompletionRequest struct {
	SystemPrompt string
	Prompt       string
	// MaxTokens and Temperature fall back to the configured defaults when zero.
	MaxTokens   int
	Temperature float64
}

// CompletionResult is the normalized provider response payload.
type CompletionResult struct {
	Text     string
	Metadata CompletionMetadata
}

// CompletionMetadata carries provider/model identity and optional usage accounting.
type CompletionMetadata struct {
	Provider string
	Model    string
	Usage    *TokenUsage
}

// TokenUsage captures token accounting across providers.
type TokenUsage struct {
	InputTokens         int64
	OutputTokens        int64
	TotalTokens         int64
	ReasoningTokens     int64
	CacheCreationTokens int64
	CacheReadTokens     int64
}

// IsZero reports whether all token counters are unset/zero.
func (u TokenUsage) IsZero() bool {
	return u.InputTokens == 0 &&
		u.OutputTokens == 0 &&
		u.TotalTokens == 0 &&
		u.ReasoningTokens == 0 &&
		u.CacheCreationTokens == 0 &&
		u.CacheReadTokens == 0
}

// UsagePtr returns nil for zero usage so callers can omit it.
func UsagePtr(u TokenUsage) *TokenUsage {
	if u.IsZero() {
		return nil
	}
	return &u
}
