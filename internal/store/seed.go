package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/LiorShrago/BudgetBuddy/internal/models"
)

//go:embed default_seed.yaml
var defaultSeed []byte

// SeedCategory is one default category with the patterns routed to it.
type SeedCategory struct {
	Name     string   `yaml:"name"`
	Color    string   `yaml:"color"`
	Patterns []string `yaml:"patterns"`
}

// Seed is the default category and pattern set created for a new owner.
type Seed struct {
	Categories []SeedCategory `yaml:"categories"`
}

// LoadSeed reads the seed file at path, or the built-in seed when path is empty.
// Relative paths are looked up in the working directory, then ./config, then
// ~/.budgetbuddy.
func LoadSeed(path string) (*Seed, error) {
	data := defaultSeed
	if path != "" {
		resolved, err := findConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("seed file %s: %w", path, err)
		}
		data, err = os.ReadFile(resolved)
		if err != nil {
			return nil, fmt.Errorf("error reading seed file: %w", err)
		}
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed YAML.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("error parsing seed file: %w", err)
	}
	if len(seed.Categories) == 0 {
		return nil, errors.New("seed file defines no categories")
	}
	for i, c := range seed.Categories {
		if c.Name == "" {
			return nil, fmt.Errorf("seed category %d has no name", i+1)
		}
	}
	return &seed, nil
}

func findConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err != nil {
			return "", err
		}
		return filename, nil
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".budgetbuddy", filename))
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}
	return "", os.ErrNotExist
}

// SeedResult counts what SeedDefaults created.
type SeedResult struct {
	Categories int
	Rules      int
}

// SeedDefaults creates the seed's categories and pattern rules for an owner.
// Existing categories (matched by name) are reused and existing rules are left
// untouched, so running it again creates nothing.
func (s *Store) SeedDefaults(ctx context.Context, ownerID uint, seed *Seed, priority int) (SeedResult, error) {
	var result SeedResult
	err := s.InTx(ctx, func(tx *Store) error {
		before, err := tx.Rules.List(ctx, ownerID)
		if err != nil {
			return err
		}

		for _, sc := range seed.Categories {
			category, err := tx.Categories.FindByName(ctx, ownerID, sc.Name)
			if errors.Is(err, ErrCategoryNotFound) {
				category = &models.Category{OwnerID: ownerID, Name: sc.Name, Color: sc.Color}
				if err := tx.Categories.Create(ctx, category); err != nil {
					return fmt.Errorf("seed category %s: %w", sc.Name, err)
				}
				result.Categories++
			} else if err != nil {
				return err
			}

			for _, pattern := range sc.Patterns {
				rule := &models.CategorizationRule{
					OwnerID:    ownerID,
					Keyword:    strings.ToLower(pattern),
					CategoryID: category.ID,
					IsPattern:  true,
					Priority:   priority,
					Active:     true,
					Source:     models.RuleSourceDefault,
				}
				if _, err := tx.Rules.Upsert(ctx, rule); err != nil {
					return fmt.Errorf("seed rule %q: %w", pattern, err)
				}
			}
		}

		after, err := tx.Rules.List(ctx, ownerID)
		if err != nil {
			return err
		}
		result.Rules = len(after) - len(before)
		return nil
	})
	return result, err
}
