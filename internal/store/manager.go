package store

import (
	"context"

	"github.com/pkg/errors"
)

// Result describes a stored payload.
type Result struct {
	Key    string
	Path   string
	Size   int
	Digest string
}

// Manager defines a general interface for persisting fetched payloads.
type Manager interface {
	Close() error

	// Put stores `value` under the file name `key`, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) (*Result, error)
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the keys starting with `prefix`, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// TimestampedFilename returns `{prefix}[_{id}]_{timestamp}.{ext}`.
	TimestampedFilename(prefix, id, ext string) string
	OutputDir() string
}

// ErrorNoRecord is returned by Get for unknown keys.
var ErrorNoRecord = errors.New("no key found")

// NewManager creates a new manager based on the type of config supplied.
func NewManager(ctx context.Context, config interface{}) (Manager, error) {
	switch cfg := config.(type) {
	case FileConfig:
		return NewFileManager(ctx, cfg)
	case *FileConfig:
		return NewFileManager(ctx, *cfg)
	}
	return nil, errors.Errorf("no store manager found for config type %T", config)
}
