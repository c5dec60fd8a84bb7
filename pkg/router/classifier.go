package router

import "strings"

// Rule is one step of the classification priority list. Match reports the
// category for the message and whether the rule applies at all.
type Rule struct {
	Name  string
	Match func(rawText string, normalizedText string) (Category, bool)
}

// Classifier evaluates its rules in order and returns the first match.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds the classifier for a taxonomy.
func NewClassifier(taxonomy *Taxonomy) *Classifier {
	return &Classifier{rules: Rules(taxonomy)}
}

// Rules returns the classification rules in priority order. Messages often
// match several groups (an oil name next to a mood word), so the order is
// the tie-break and must not change.
func Rules(taxonomy *Taxonomy) []Rule {
	return []Rule{
		{Name: "command", Match: matchCommand},
		{Name: "oil", Match: termRule(CategoryOilSearch, taxonomy.hasOil)},
		{Name: "mood", Match: termRule(CategoryMoodRequest, taxonomy.hasMood)},
		{Name: "subscription", Match: termRule(CategorySubscriptionInquiry, func(text string) bool {
			return containsAny(text, taxonomy.subscription)
		})},
		{Name: "music", Match: termRule(CategoryMusicRequest, func(text string) bool {
			return containsAny(text, taxonomy.music)
		})},
		{Name: "greeting", Match: termRule(CategoryGreeting, func(text string) bool {
			return containsAny(text, taxonomy.greetings)
		})},
	}
}

// Classify returns the category of the first matching rule, or CategoryUnknown.
func (c *Classifier) Classify(rawText string, normalizedText string) Category {
	for _, rule := range c.rules {
		if category, ok := rule.Match(rawText, normalizedText); ok {
			return category
		}
	}

	return CategoryUnknown
}

func termRule(category Category, contains func(string) bool) func(string, string) (Category, bool) {
	return func(_ string, normalizedText string) (Category, bool) {
		if contains(normalizedText) {
			return category, true
		}
		return "", false
	}
}

// matchCommand handles slash commands. Only the exact leading token counts,
// so "/start@somebot" is an unknown command.
func matchCommand(rawText string, _ string) (Category, bool) {
	if !strings.HasPrefix(rawText, "/") {
		return "", false
	}

	command, _, _ := strings.Cut(rawText, " ")
	switch command {
	case "/start":
		return CategoryStartCommand, true
	case "/help":
		return CategoryHelpCommand, true
	case "/menu":
		return CategoryMenuCommand, true
	default:
		return CategoryUnknownCommand, true
	}
}
