package router

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var defaultTaxonomyYAML []byte

// MoodBucketNames are the mood groups every taxonomy must define.
var MoodBucketNames = []string{"stress", "fatigue", "sadness", "insomnia", "energy", "calm", "joy"}

// MoodBucket is one named mood with its trigger substrings.
type MoodBucket struct {
	Name     string
	Triggers []string
}

// Taxonomy holds the trigger substrings for each intent group. A Taxonomy is
// never modified after it is built, so one value can be shared by any number
// of goroutines.
type Taxonomy struct {
	oils         []string
	moods        []MoodBucket
	subscription []string
	music        []string
	greetings    []string
}

type taxonomyFile struct {
	Oils  []string `yaml:"oils"`
	Moods []struct {
		Name     string   `yaml:"name"`
		Triggers []string `yaml:"triggers"`
	} `yaml:"moods"`
	Subscription []string `yaml:"subscription"`
	Music        []string `yaml:"music"`
	Greetings    []string `yaml:"greetings"`
}

// DefaultTaxonomy parses the taxonomy compiled into the binary.
func DefaultTaxonomy() (*Taxonomy, error) {
	return ParseTaxonomy(defaultTaxonomyYAML)
}

// MustDefaultTaxonomy is like DefaultTaxonomy but panics on error.
func MustDefaultTaxonomy() *Taxonomy {
	taxonomy, err := DefaultTaxonomy()
	if err != nil {
		panic(fmt.Sprintf("router: embedded taxonomy: %v", err))
	}

	return taxonomy
}

// LoadTaxonomy reads a taxonomy YAML file. An empty path yields the default taxonomy.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultTaxonomy()
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy file: %w", err)
	}

	taxonomy, err := ParseTaxonomy(content)
	if err != nil {
		return nil, fmt.Errorf("parse taxonomy file %s: %w", path, err)
	}

	return taxonomy, nil
}

// ParseTaxonomy decodes and validates taxonomy YAML. Entries are lowercased.
func ParseTaxonomy(content []byte) (*Taxonomy, error) {
	var file taxonomyFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}

	var errs []error

	oils, err := cleanTerms("oils", file.Oils)
	errs = append(errs, err)
	subscription, err := cleanTerms("subscription", file.Subscription)
	errs = append(errs, err)
	music, err := cleanTerms("music", file.Music)
	errs = append(errs, err)
	greetings, err := cleanTerms("greetings", file.Greetings)
	errs = append(errs, err)

	moods := make([]MoodBucket, 0, len(file.Moods))
	seen := make(map[string]bool, len(file.Moods))
	for _, bucket := range file.Moods {
		name := strings.ToLower(strings.TrimSpace(bucket.Name))
		if !slices.Contains(MoodBucketNames, name) {
			errs = append(errs, fmt.Errorf("moods: unknown bucket %q", bucket.Name))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("moods: duplicate bucket %q", name))
			continue
		}
		seen[name] = true

		triggers, err := cleanTerms("moods."+name, bucket.Triggers)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		moods = append(moods, MoodBucket{Name: name, Triggers: triggers})
	}
	for _, name := range MoodBucketNames {
		if !seen[name] {
			errs = append(errs, fmt.Errorf("moods: missing bucket %q", name))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &Taxonomy{
		oils:         oils,
		moods:        moods,
		subscription: subscription,
		music:        music,
		greetings:    greetings,
	}, nil
}

func cleanTerms(group string, terms []string) ([]string, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("%s: at least one entry is required", group)
	}

	clean := make([]string, 0, len(terms))
	for i, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			return nil, fmt.Errorf("%s[%d]: entry is blank", group, i)
		}
		// Entries are matched against normalized text, so they must survive
		// normalization unchanged.
		if Normalize(term) != term {
			return nil, fmt.Errorf("%s[%d]: entry %q contains punctuation or repeated spaces", group, i, term)
		}
		clean = append(clean, term)
	}

	return clean, nil
}

// Oils returns the oil names in declaration order.
func (t *Taxonomy) Oils() []string {
	return slices.Clone(t.oils)
}

// MoodBuckets returns the mood buckets in declaration order.
func (t *Taxonomy) MoodBuckets() []MoodBucket {
	out := make([]MoodBucket, len(t.moods))
	for i, bucket := range t.moods {
		out[i] = MoodBucket{Name: bucket.Name, Triggers: slices.Clone(bucket.Triggers)}
	}

	return out
}

// SubscriptionTerms returns the subscription vocabulary.
func (t *Taxonomy) SubscriptionTerms() []string {
	return slices.Clone(t.subscription)
}

// MusicTerms returns the music vocabulary.
func (t *Taxonomy) MusicTerms() []string {
	return slices.Clone(t.music)
}

// GreetingTerms returns the greeting vocabulary.
func (t *Taxonomy) GreetingTerms() []string {
	return slices.Clone(t.greetings)
}

// FirstOil returns the first oil, in declaration order, contained in text.
func (t *Taxonomy) FirstOil(text string) (string, bool) {
	for _, oil := range t.oils {
		if strings.Contains(text, oil) {
			return oil, true
		}
	}

	return "", false
}

func (t *Taxonomy) hasOil(text string) bool {
	_, ok := t.FirstOil(text)
	return ok
}

func (t *Taxonomy) hasMood(text string) bool {
	for _, bucket := range t.moods {
		if containsAny(text, bucket.Triggers) {
			return true
		}
	}

	return false
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}

	return false
}
