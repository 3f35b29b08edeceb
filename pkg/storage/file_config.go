package storage

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig implements Config from a YAML settings file, e.g. one saved
// from another machine with `config get -o yaml`. Keys may be nested or
// dotted. It is read-only; Set, SetDocument, and Unset return errors.
type fileConfig struct {
	values map[string]any
}

// NewFileConfig reads the file at path and returns a Config backed by its contents.
func NewFileConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}

	tree := map[string]any{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	values := flattenMap(tree)
	for key := range values {
		if _, ok := settingsByKey[key]; !ok {
			return nil, fmt.Errorf("reading config file: unknown key %q", key)
		}
	}
	return &fileConfig{values: values}, nil
}

func (c *fileConfig) Get(key string) (map[string]any, error) {
	result := make(map[string]any)
	for k, v := range c.values {
		if k == key || strings.HasPrefix(k, key+".") {
			result[k] = v
		}
	}
	return result, nil
}

func (c *fileConfig) GetAll() (map[string]any, error) {
	result := make(map[string]any, len(c.values))
	for k, v := range c.values {
		result[k] = v
	}
	return result, nil
}

func (c *fileConfig) Set(key, value string, confType configType) error {
	return fmt.Errorf("config file is read-only")
}

func (c *fileConfig) SetDocument(key string, value any, confType configType) error {
	return fmt.Errorf("config file is read-only")
}

func (c *fileConfig) Unset(key string, confType configType) error {
	return fmt.Errorf("config file is read-only")
}
