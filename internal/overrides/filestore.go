package overrides

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultStorePath is where applied overrides accumulate. The config
// loader merges this file on top of the base YAML bundle.
const DefaultStorePath = "configs/overrides_applied.yml"

// FileStore persists applied overrides as a nested YAML document.
type FileStore struct {
	path string
}

// NewFileStore creates a store at path; empty selects DefaultStorePath.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultStorePath
	}
	return &FileStore{path: path}
}

// Read returns the current override document, empty when the file does
// not exist yet.
func (s *FileStore) Read() (map[string]any, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read override store: %w", err)
	}

	data := map[string]any{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse override store: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

// Write replaces the override document.
func (s *FileStore) Write(data map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create override store dir: %w", err)
	}
	raw, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode override store: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write override store: %w", err)
	}
	return nil
}

// UpdateField sets a dotted field path, e.g.
// "strategy.liquidity_filters.lookback_days", creating intermediate maps
// as needed.
func (s *FileStore) UpdateField(fieldPath string, value any) error {
	data, err := s.Read()
	if err != nil {
		return err
	}

	parts := strings.Split(fieldPath, ".")
	node := data
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value

	return s.Write(data)
}
