package catalog

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed levels/*.yaml
var levelsFS embed.FS

// Set holds the loaded, validated level definitions.
type Set struct {
	levels map[string]*Level
	order  []string
}

// Get returns a level by id, or nil.
func (s *Set) Get(id string) *Level {
	return s.levels[id]
}

// List returns all levels in id order.
func (s *Set) List() []*Level {
	list := make([]*Level, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.levels[id])
	}
	return list
}

// Load parses the embedded level definitions.
func Load() (*Set, error) {
	entries, err := levelsFS.ReadDir("levels")
	if err != nil {
		return nil, fmt.Errorf("reading embedded levels: %w", err)
	}
	s := newSet()
	for _, entry := range entries {
		b, err := levelsFS.ReadFile("levels/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading level %s: %w", entry.Name(), err)
		}
		if err := s.add(b, entry.Name()); err != nil {
			return nil, err
		}
	}
	sort.Strings(s.order)
	return s, nil
}

// LoadDir parses level definitions from a directory instead of the embedded
// defaults.
func LoadDir(dir string) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading levels dir: %w", err)
	}
	s := newSet()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading level %s: %w", entry.Name(), err)
		}
		if err := s.add(b, entry.Name()); err != nil {
			return nil, err
		}
	}
	if len(s.levels) == 0 {
		return nil, fmt.Errorf("no level definitions in %s", dir)
	}
	sort.Strings(s.order)
	return s, nil
}

func newSet() *Set {
	return &Set{levels: make(map[string]*Level)}
}

func (s *Set) add(b []byte, name string) error {
	var lvl Level
	if err := yaml.Unmarshal(b, &lvl); err != nil {
		return fmt.Errorf("parsing level %s: %w", name, err)
	}
	if err := lvl.Validate(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if _, exists := s.levels[lvl.ID]; exists {
		return fmt.Errorf("%s: duplicate level id %q", name, lvl.ID)
	}
	applyDefaults(&lvl)
	s.levels[lvl.ID] = &lvl
	s.order = append(s.order, lvl.ID)
	return nil
}
