package advisor

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var templatesFS embed.FS

const (
	templateMoodSystem    = "mood_system.md"
	templateMoodPrompt    = "mood_prompt.md"
	templateMoodFallback  = "mood_fallback.md"
	templateMusicSystem   = "music_system.md"
	templateMusicPrompt   = "music_prompt.md"
	templateMusicFallback = "music_fallback.md"
)

func parseTemplates() (*template.Template, error) {
	templates, err := template.New("advisor").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templatesFS, "templates/*.md")
	if err != nil {
		return nil, fmt.Errorf("parse advisor templates: %w", err)
	}

	return templates, nil
}

func render(templates *template.Template, name string, data any) (string, error) {
	var out bytes.Buffer
	if err := templates.ExecuteTemplate(&out, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("template %q rendered empty", name)
	}

	return text, nil
}
