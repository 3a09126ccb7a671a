package memory

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/syntrixbase/dockit/pkg/model"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML layout of a seed file:
//
//	collections:
//	  users:
//	    - id: u1
//	      name: Ann
//	  users/u1/posts:
//	    - title: Hello
type Fixture struct {
	Collections map[string][]map[string]interface{} `yaml:"collections"`
}

// ParseFixture decodes a fixture document.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	for path := range f.Collections {
		if _, err := model.ParseCollection(path); err != nil {
			return nil, fmt.Errorf("fixture collection %q: %w", path, err)
		}
	}
	return &f, nil
}

// LoadFixtures seeds the store from YAML fixture files, in argument order.
func (s *Store) LoadFixtures(ctx context.Context, files ...string) error {
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read fixture %s: %w", file, err)
		}
		f, err := ParseFixture(data)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		if err := s.ApplyFixture(ctx, f); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		s.logger.Info("Loaded fixture", "file", file, "collections", len(f.Collections))
	}
	return nil
}

// ApplyFixture writes every record of f. Collections are applied in path order.
func (s *Store) ApplyFixture(ctx context.Context, f *Fixture) error {
	paths := make([]string, 0, len(f.Collections))
	for p := range f.Collections {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		col, err := model.ParseCollection(p)
		if err != nil {
			return err
		}
		records := make([]interface{}, 0, len(f.Collections[p]))
		for _, rec := range f.Collections[p] {
			records = append(records, model.Document(rec))
		}
		if err := s.Seed(ctx, col, records...); err != nil {
			return err
		}
	}
	return nil
}
