// Package settings persists the console's user-editable settings (currently
// the default model) in a small JSON file.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"modelconsole/internal/common/fsutil"
)

// NoModel is stored when no model is available; it reads back as unset.
const NoModel = "none"

// Settings is the on-disk document. Unknown keys are preserved.
type Settings struct {
	DefaultModel string         `json:"default_model"`
	Extra        map[string]any `json:"-"`
}

// Store reads and writes the settings file.
type Store struct {
	path     string
	fallback string
	mu       sync.Mutex
}

// NewStore returns a store at path. fallback is the default model reported
// when the file does not exist yet.
func NewStore(path, fallback string) *Store {
	return &Store{path: path, fallback: fallback}
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// DefaultModel returns the configured default, or "" when it is explicitly unset.
func (s *Store) DefaultModel() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return "", err
	}
	if st.DefaultModel == NoModel {
		return "", nil
	}
	return st.DefaultModel, nil
}

// SetDefaultModel persists name; "" stores NoModel.
func (s *Store) SetDefaultModel(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		name = NoModel
	}
	st.DefaultModel = name
	return s.save(st)
}

func (s *Store) load() (Settings, error) {
	st := Settings{DefaultModel: s.fallback}
	if !fsutil.PathExists(s.path) {
		return st, nil
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return st, fmt.Errorf("read settings: %w", err)
	}
	raw := map[string]any{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return st, fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	if v, ok := raw["default_model"].(string); ok && v != "" {
		st.DefaultModel = v
	}
	delete(raw, "default_model")
	st.Extra = raw
	return st, nil
}

func (s *Store) save(st Settings) error {
	doc := map[string]any{}
	for k, v := range st.Extra {
		doc[k] = v
	}
	doc["default_model"] = st.DefaultModel
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, b, 0o644); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
