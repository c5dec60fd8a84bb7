// Package oils answers catalog questions: lookups, suggestions for misses
// and the chat-facing oil card.
package oils

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"aromabot/pkg/store"
)

// MaxSuggestions caps the suggestion list shown for a miss.
const MaxSuggestions = 5

// Repository is the catalog storage the service reads.
type Repository interface {
	SearchOil(ctx context.Context, name string) (*store.Oil, error)
	ListOils(ctx context.Context, limit int) ([]store.Oil, error)
	RandomOil(ctx context.Context) (*store.Oil, error)
}

// Service wraps a catalog repository.
type Service struct {
	repo Repository
}

// NewService returns a catalog service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Lookup finds an oil by a case-insensitive name fragment. A miss returns
// (nil, nil); only storage failures are errors.
func (s *Service) Lookup(ctx context.Context, name string) (*store.Oil, error) {
	oil, err := s.repo.SearchOil(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup oil %q: %w", name, err)
	}
	return oil, nil
}

// AllOils lists the whole catalog.
func (s *Service) AllOils(ctx context.Context) ([]store.Oil, error) {
	oils, err := s.repo.ListOils(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list oils: %w", err)
	}
	return oils, nil
}

// RandomOil picks the oil for a daily tip.
func (s *Service) RandomOil(ctx context.Context) (*store.Oil, error) {
	oil, err := s.repo.RandomOil(ctx)
	if err != nil {
		return nil, fmt.Errorf("random oil: %w", err)
	}
	return oil, nil
}

type suggestionGroup struct {
	pattern *regexp.Regexp
	oils    []string
}

var suggestionGroups = []suggestionGroup{
	{regexp.MustCompile(`цитрус|апельсин|лимон|лайм|свеж`), []string{"Лимон", "Дикий апельсин", "Грейпфрут", "Лайм", "Бергамот"}},
	{regexp.MustCompile(`спокой|релакс|сон|расслаб|стресс`), []string{"Лаванда", "Ромашка", "Иланг-иланг", "Баланс", "Виспер"}},
	{regexp.MustCompile(`энерг|бодр|актив|мотив|сил`), []string{"Мята перечная", "Розмарин", "Эвкалипт", "Мотивейт", "Чир"}},
	{regexp.MustCompile(`лечен|здоров|болезн|простуд|лечит`), []string{"Чайное дерево", "Ладан", "Гелихризум", "Мелалеука", "Стронгер"}},
	{regexp.MustCompile(`смесь|блен|комплекс`), []string{"ДайджестЗен", "Изи Эйр", "Дип Блу", "Ситрус Блисс", "АромаТач"}},
}

var basicSuggestions = []string{
	`Попробуй: "Лаванда" - для спокойствия`,
	`Попробуй: "Мята перечная" - для энергии`,
	`Попробуй: "Лимон" - для настроения`,
	`Или напиши: "расскажи про эвкалипт"`,
	`Или просто: "нужна энергия"`,
}

// Suggestions proposes alternatives for a query that matched nothing. The
// first group whose pattern matches the lowercased query wins.
func Suggestions(query string) []string {
	lowered := strings.ToLower(query)
	for _, group := range suggestionGroups {
		if !group.pattern.MatchString(lowered) {
			continue
		}
		out := make([]string, 0, len(group.oils))
		for _, name := range group.oils {
			out = append(out, fmt.Sprintf("Попробуй: %q", name))
		}
		return out
	}

	out := make([]string, len(basicSuggestions))
	copy(out, basicSuggestions)
	return out
}

// FormatInfo renders the oil card. Blank fields get placeholder copy.
func FormatInfo(oil *store.Oil) string {
	if oil == nil {
		return "Масло не найдено"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🌿 **%s**\n\n", oil.Name)
	fmt.Fprintf(&b, "📝 **Описание:**\n%s\n\n", orDefault(oil.Description, "Описание отсутствует"))
	fmt.Fprintf(&b, "💚 **Эмоциональный эффект:**\n%s\n\n", orDefault(oil.EmotionalEffect, "Информация отсутствует"))
	fmt.Fprintf(&b, "💪 **Физический эффект:**\n%s\n\n", orDefault(oil.PhysicalEffect, "Информация отсутствует"))
	fmt.Fprintf(&b, "🔧 **Применение:**\n%s\n\n", orDefault(oil.Applications, "Информация отсутствует"))
	fmt.Fprintf(&b, "⚠️ **Меры предосторожности:**\n%s\n\n", orDefault(oil.SafetyWarning, "Проконсультируйтесь с врачом перед использованием"))
	fmt.Fprintf(&b, "😄 **%s**", orDefault(oil.Joke, "Улыбнитесь! Эфирные масла - это природная аптека!"))

	return b.String()
}

// FormatNotFound renders the miss reply with at most MaxSuggestions hints.
func FormatNotFound(name string, suggestions []string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "неизвестное масло"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Не нашел масло \"%s\".\n\n", name)
	if len(suggestions) > 0 {
		b.WriteString("💡 Возможно, ты искал:\n")
		for i, suggestion := range suggestions {
			if i == MaxSuggestions {
				break
			}
			fmt.Fprintf(&b, "• %s\n", suggestion)
		}
		b.WriteString("\n")
	}
	b.WriteString("🎯 Как правильно искать:\n")
	b.WriteString("• Просто название: \"лаванда\", \"мята\"\n")
	b.WriteString("• С командой: \"расскажи про эвкалипт\"\n")
	b.WriteString("• По эффекту: \"нужна энергия\", \"хочу расслабиться\"")

	return b.String()
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
