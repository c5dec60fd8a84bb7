package advisor

import "testing"

func TestRemoveHashtags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "heading levels", in: "# one\n## two\n#### four", want: "one\ntwo\nfour"},
		{name: "five marks keep one", in: "##### five", want: "# five"},
		{name: "inline hash kept", in: "tag #relax", want: "tag #relax"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemoveHashtags(tt.in); got != tt.want {
				t.Fatalf("RemoveHashtags(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRemoveMarkdown(t *testing.T) {
	in := "### Лаванда\n**Важно**: *мягко* `2 капли`\n\n  \n\n[сайт](https://example.com)  "
	want := "Лаванда\nВажно: мягко 2 капли\n\nсайт"

	if got := RemoveMarkdown(in); got != want {
		t.Fatalf("RemoveMarkdown() = %q, want %q", got, want)
	}
}

func TestFormatForTelegram(t *testing.T) {
	in := "## **Выбор**\nАроматерапия для сна\nЭфирные масла:\nСпособы применения\nБезопасность прежде всего\nРецепты\nПлан применения на неделю\n*тихо*"
	want := "🎯 Выбор\n🌿 Ароматерапия для сна\n🌿 Эфирные масла:\n💡 Способы применения\n⚠️ Безопасность прежде всего\n🧴 Рецепты\n⏰ План применения на неделю\nтихо"

	if got := FormatForTelegram(in); got != want {
		t.Fatalf("FormatForTelegram() = %q, want %q", got, want)
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "collapses newline runs", in: "a\n\n\n\nb", want: "a\n\nb"},
		{name: "strips indentation", in: "  a\n\t b", want: "a\nb"},
		{name: "keeps paragraphs", in: "## Title\n\n  body", want: "Title\n\nbody"},
		{name: "indented blank lines", in: "a\n  \n  \n\nb", want: "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanResponse(tt.in); got != tt.want {
				t.Fatalf("CleanResponse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
