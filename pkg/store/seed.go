package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed seed/oils.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Oils []Oil `yaml:"oils"`
}

// DefaultCatalog returns the oil catalog compiled into the binary.
func DefaultCatalog() ([]Oil, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads a catalog YAML file. An empty path yields the default catalog.
func LoadCatalog(path string) ([]Oil, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog()
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	return ParseCatalog(content)
}

// ParseCatalog decodes catalog YAML and checks every entry has a unique name.
func ParseCatalog(content []byte) ([]Oil, error) {
	var file catalogFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(file.Oils) == 0 {
		return nil, errors.New("catalog has no oils")
	}

	seen := make(map[string]bool, len(file.Oils))
	for i := range file.Oils {
		name := strings.TrimSpace(file.Oils[i].Name)
		if name == "" {
			return nil, fmt.Errorf("catalog entry %d has no oil_name", i)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, fmt.Errorf("catalog entry %q is duplicated", name)
		}
		seen[key] = true
		file.Oils[i].Name = name
	}

	return file.Oils, nil
}

// Seed upserts oils and returns how many were written.
func (d *DB) Seed(ctx context.Context, oils []Oil) (int, error) {
	if err := d.UpsertOils(ctx, oils); err != nil {
		return 0, err
	}
	return len(oils), nil
}

// EnsureSeeded loads the default catalog when the oils table is empty. It
// returns the number of oils written.
func (d *DB) EnsureSeeded(ctx context.Context) (int, error) {
	count, err := d.CountOils(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	oils, err := DefaultCatalog()
	if err != nil {
		return 0, err
	}

	return d.Seed(ctx, oils)
}
