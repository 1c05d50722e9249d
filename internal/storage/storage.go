// Package storage defines the persistence interface for dictionary models.
package storage

import (
	"context"

	"github.com/hyperjump/termquery/internal/dictionary"
)

// Storage persists namespaces and property definitions.
type Storage interface {
	ListNamespaces(ctx context.Context) (map[string]string, error)
	ListProperties(ctx context.Context) ([]*dictionary.PropertyDefinition, error)

	// Registry operations
	SaveRegistry(ctx context.Context, reg *dictionary.Registry) error
	LoadRegistry(ctx context.Context) (*dictionary.Registry, error)

	// Stats
	CountProperties(ctx context.Context) (int64, error)

	Close() error
}
