// Package store defines the UserStore interface and the plugin registry that
// backs --db-kind selection.
package store

import (
	"context"
	"fmt"

	"github.com/acme/user-service/internal/model"
	"github.com/google/uuid"
)

// UserStore is the persistence interface for users. Implementations return
// apperr kinds for expected failures (not found, duplicate email) and wrap
// everything else in apperr.RepositoryError.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, offset, limit int) ([]model.User, int64, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Loader initializes a UserStore from configuration in the context.
type Loader func(ctx context.Context) (UserStore, error)

// Plugin represents a named store backend.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a store plugin. Called from init() in plugin packages.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered store plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named store plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown store %q; valid: %v", name, Names())
}
