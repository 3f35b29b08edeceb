package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileStorage keeps the value tree in a YAML file. It is used when the
// patcher does not run as a snap.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// DefaultStoragePath is $XDG_CONFIG_HOME/legacy-patcher/config.yaml, or the
// same below ~/.config.
func DefaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "legacy-patcher", "config.yaml")
}

func (s *FileStorage) load() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("error reading %s: %v", s.path, err)
	}
	tree := map[string]any{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("error parsing %s: %v", s.path, err)
	}
	return tree, nil
}

func (s *FileStorage) save(tree map[string]any) error {
	data, err := yaml.Marshal(tree)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStorage) Set(key, value string) error {
	return s.SetDocument(key, value)
}

func (s *FileStorage) SetDocument(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.load()
	if err != nil {
		return err
	}
	parts := strings.Split(key, ".")
	node := tree
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value
	return s.save(tree)
}

func (s *FileStorage) Get(key string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.load()
	if err != nil {
		return nil, err
	}
	var node any = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, ErrorNotFound
		}
		if node, ok = m[part]; !ok {
			return nil, ErrorNotFound
		}
	}
	if m, ok := node.(map[string]any); ok {
		return m, nil
	}
	return map[string]any{key: node}, nil
}

func (s *FileStorage) Unset(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.load()
	if err != nil {
		return err
	}
	parts := strings.Split(key, ".")
	node := tree
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			return nil
		}
		node = child
	}
	delete(node, parts[len(parts)-1])
	return s.save(tree)
}
