// Package selections persists named target sets so a recurring calculation
// can be re-run without re-entering its assemblies.
package selections

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
)

// ErrNotFound is returned when no selection has the requested name
var ErrNotFound = errors.New("selection not found")

// Selection is a saved set of target assemblies
type Selection struct {
	Name      string                   `yaml:"name" json:"name"`
	Targets   []entities.TargetRequest `yaml:"targets" json:"targets"`
	CreatedAt time.Time                `yaml:"created_at" json:"created_at"`
}

type document struct {
	Selections []Selection `yaml:"selections"`
}

// YAMLStore keeps every selection in one YAML file. Writes replace the file
// atomically.
type YAMLStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewYAMLStore creates a store backed by path. The file is created on the
// first save.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path, now: time.Now}
}

// Save stores sel under its name, replacing an existing selection of the same
// name
func (s *YAMLStore) Save(sel Selection) error {
	sel.Name = strings.TrimSpace(sel.Name)
	if sel.Name == "" {
		return errors.New("selection name must not be empty")
	}
	if len(sel.Targets) == 0 {
		return fmt.Errorf("selection %q has no targets", sel.Name)
	}
	for _, t := range sel.Targets {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("selection %q: %w", sel.Name, err)
		}
	}
	if sel.CreatedAt.IsZero() {
		sel.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	replaced := false
	for i := range doc.Selections {
		if doc.Selections[i].Name == sel.Name {
			doc.Selections[i] = sel
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Selections = append(doc.Selections, sel)
	}
	return s.write(doc)
}

// Load returns the selection called name
func (s *YAMLStore) Load(name string) (*Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	for _, sel := range doc.Selections {
		if sel.Name == name {
			return &sel, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
}

// List returns all selections, newest first
func (s *YAMLStore) List() ([]Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	list := append([]Selection(nil), doc.Selections...)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// Delete removes the selection called name
func (s *YAMLStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	for i, sel := range doc.Selections {
		if sel.Name == name {
			doc.Selections = append(doc.Selections[:i], doc.Selections[i+1:]...)
			return s.write(doc)
		}
	}
	return fmt.Errorf("%q: %w", name, ErrNotFound)
}

func (s *YAMLStore) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read selections file: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse selections file %s: %w", s.path, err)
	}
	return &doc, nil
}

func (s *YAMLStore) write(doc *document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode selections: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create selections directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".selections-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write selections: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write selections: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace selections file: %w", err)
	}
	return nil
}
