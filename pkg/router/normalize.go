package router

import (
	"strings"
)

const punctuation = `.,!?;:()"\`

// Normalize lowercases text, turns punctuation into spaces and collapses
// whitespace runs into a single space.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	replaced := strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return ' '
		}
		return r
	}, strings.ToLower(text))

	return strings.Join(strings.Fields(replaced), " ")
}
