package storage

import (
	"encoding/json"
	"strings"

	"github.com/canonical/go-snapctl"
)

// SnapctlStorage keeps the value tree in the snap's configuration.
type SnapctlStorage struct{}

func NewSnapctlStorage() *SnapctlStorage {
	return &SnapctlStorage{}
}

func (s *SnapctlStorage) Set(key, value string) error {
	return snapctl.Set(key, value).Run()
}

func (s *SnapctlStorage) SetDocument(key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return snapctl.Set(key, string(b)).Document().Run()
}

func (s *SnapctlStorage) Get(key string) (map[string]any, error) {
	valJson, err := snapctl.Get(key).Run()
	if err != nil {
		return nil, err
	}
	valJson = strings.TrimSpace(valJson)
	if valJson == "" {
		return nil, ErrorNotFound
	}

	if strings.HasPrefix(valJson, "{") && strings.HasSuffix(valJson, "}") {
		// Object value, parse as JSON
		var valMap map[string]any
		if err := json.Unmarshal([]byte(valJson), &valMap); err != nil {
			return nil, err
		}
		return valMap, nil
	}

	// Primitive value. Numbers and booleans come back as JSON, strings raw.
	var value any = valJson
	var decoded any
	if json.Unmarshal([]byte(valJson), &decoded) == nil {
		value = decoded
	}
	return map[string]any{key: value}, nil
}

func (s *SnapctlStorage) Unset(key string) error {
	return snapctl.Unset(key).Run()
}
