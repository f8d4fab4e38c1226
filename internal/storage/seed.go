package storage

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"finanze/internal/core"
)

//go:embed seed/default_categories.yaml
var defaultCategoriesYAML []byte

type seedEntry struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type seedFile struct {
	Income  []seedEntry `yaml:"income"`
	Expense []seedEntry `yaml:"expense"`
}

// DefaultCategories returns the bundled categories given to every new account.
func DefaultCategories() ([]core.Category, error) {
	return parseSeed(defaultCategoriesYAML)
}

func parseSeed(data []byte) ([]core.Category, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse default categories: %w", err)
	}
	out := make([]core.Category, 0, len(f.Income)+len(f.Expense))
	add := func(kind core.Kind, entries []seedEntry) error {
		for _, e := range entries {
			c := core.Category{Kind: kind, Name: e.Name, Description: e.Description}
			if err := c.Validate(); err != nil {
				return fmt.Errorf("default %s category %q: %w", kind, e.Name, err)
			}
			out = append(out, c)
		}
		return nil
	}
	if err := add(core.KindIncome, f.Income); err != nil {
		return nil, err
	}
	if err := add(core.KindExpense, f.Expense); err != nil {
		return nil, err
	}
	return out, nil
}
