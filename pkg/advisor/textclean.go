package advisor

import (
	"regexp"
	"strings"
)

var (
	headingMarks  = regexp.MustCompile(`(?m)^#{1,4}[ \t]*`)
	boldMarks     = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicMarks   = regexp.MustCompile(`\*(.*?)\*`)
	codeMarks     = regexp.MustCompile("`(.*?)`")
	linkMarks     = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	blankLineRuns = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)*`)
	newlineRuns   = regexp.MustCompile(`\n{3,}`)
	lineIndent    = regexp.MustCompile(`(?m)^[ \t]+`)
)

var sectionEmojis = []struct {
	pattern *regexp.Regexp
	emoji   string
}{
	{regexp.MustCompile(`(?m)^(Ароматерапия.*)$`), "🌿"},
	{regexp.MustCompile(`(?m)^(Эфирные масла:)$`), "🌿"},
	{regexp.MustCompile(`(?m)^(Способы применения.*)$`), "💡"},
	{regexp.MustCompile(`(?m)^(Безопасность.*)$`), "⚠️"},
	{regexp.MustCompile(`(?m)^(Рецепты.*)$`), "🧴"},
	{regexp.MustCompile(`(?m)^(План применения.*)$`), "⏰"},
}

// RemoveHashtags strips one to four leading '#' marks from every line.
func RemoveHashtags(text string) string {
	if text == "" {
		return ""
	}
	return headingMarks.ReplaceAllString(text, "")
}

// RemoveMarkdown reduces markdown to plain text.
func RemoveMarkdown(text string) string {
	if text == "" {
		return ""
	}

	text = RemoveHashtags(text)
	text = boldMarks.ReplaceAllString(text, "$1")
	text = italicMarks.ReplaceAllString(text, "$1")
	text = codeMarks.ReplaceAllString(text, "$1")
	text = linkMarks.ReplaceAllString(text, "$1")
	text = blankLineRuns.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// FormatForTelegram swaps markdown emphasis for emoji accents Telegram
// renders without a parse mode.
func FormatForTelegram(text string) string {
	if text == "" {
		return ""
	}

	text = RemoveHashtags(text)
	text = boldMarks.ReplaceAllString(text, "🎯 $1")
	text = italicMarks.ReplaceAllString(text, "$1")
	for _, section := range sectionEmojis {
		text = section.pattern.ReplaceAllString(text, section.emoji+" $1")
	}

	return strings.TrimSpace(text)
}

// CleanResponse tidies a model reply: no heading marks, no indentation and
// at most one blank line between paragraphs.
func CleanResponse(text string) string {
	if text == "" {
		return ""
	}

	text = RemoveHashtags(text)
	text = lineIndent.ReplaceAllString(text, "")
	text = newlineRuns.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
