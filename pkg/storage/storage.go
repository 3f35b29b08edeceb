package storage

import "fmt"

var ErrorNotFound = fmt.Errorf("not found")

// storage is a tree of values addressed by dot separated keys. Get returns
// the children of an object, or a single entry keyed by the full key for a
// primitive value.
type storage interface {
	Set(key string, value string) error
	SetDocument(key string, value any) error
	Get(key string) (map[string]any, error)
	Unset(key string) error
}
